// Package docstoretest opens migrated in-memory stores for tests.
package docstoretest

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/playperu/questboard/internal/database"
	"github.com/playperu/questboard/internal/docstore"
	"github.com/playperu/questboard/internal/migrations"
)

// Open returns a store backed by a fresh in-memory database.
func Open(t *testing.T) *docstore.Store {
	t.Helper()
	store, _ := OpenDB(t)
	return store
}

// OpenDB is Open that also returns the underlying database.
func OpenDB(t *testing.T) (*docstore.Store, *sql.DB) {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := migrations.Run(context.Background(), db, logger); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return docstore.New(db), db
}
