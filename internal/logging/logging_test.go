package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(&buf, Options{Level: slog.LevelInfo, Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("quest approved", "quest_id", "q1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decoding log line: %v", err)
	}
	if rec["msg"] != "quest approved" || rec["quest_id"] != "q1" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNewTextWithFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "questboard.log")

	logger, closer, err := New(&buf, Options{Level: slog.LevelDebug, Format: "text", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("feedback sent", "sent", 2)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !strings.Contains(buf.String(), "feedback sent") {
		t.Errorf("stdout missing message: %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "sent=2") {
		t.Errorf("log file missing attr: %q", data)
	}
}
