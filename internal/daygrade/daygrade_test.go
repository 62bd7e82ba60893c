package daygrade

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/playperu/questboard/internal/apperr"
	"github.com/playperu/questboard/internal/docstore/docstoretest"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/questboard"
)

func setup(t *testing.T, now time.Time) *Service {
	t.Helper()
	store := docstoretest.Open(t)
	for _, id := range []string{"u1", "u2"} {
		if err := player.Save(context.Background(), store, questboard.Player{ID: id, Name: id, Level: 1}); err != nil {
			t.Fatalf("seeding player: %v", err)
		}
	}
	svc := NewService(store, now.Location(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return now }
	return svc
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC))

	if _, err := svc.Save(ctx, "", "u1", 3, "admin-1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := svc.Save(ctx, "2026-05-10", "u1", 5, "admin-2"); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	grades, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(grades) != 1 {
		t.Fatalf("len = %d, want 1", len(grades))
	}
	if grades[0].Grade != 5 || grades[0].GradedBy != "admin-2" {
		t.Errorf("unexpected grade: %+v", grades[0])
	}
}

func TestSaveValidation(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC))

	tests := []struct {
		name     string
		date     string
		playerID string
		grade    int
	}{
		{"grade zero", "", "u1", 0},
		{"grade six", "", "u1", 6},
		{"bad date", "10/05/2026", "u1", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(ctx, tt.date, tt.playerID, tt.grade, "admin")
			var ve apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}

	var nf apperr.NotFoundError
	if _, err := svc.Save(ctx, "", "ghost", 3, "admin"); !errors.As(err, &nf) {
		t.Errorf("unknown player err = %v, want NotFoundError", err)
	}
}

func TestClearAndReset(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC))

	svc.Save(ctx, "", "u1", 4, "admin")
	svc.Save(ctx, "", "u2", 2, "admin")
	svc.Save(ctx, "2026-05-09", "u1", 1, "admin")

	if err := svc.Clear(ctx, "", "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := svc.Clear(ctx, "", "u1"); err != nil {
		t.Fatalf("Clear missing: %v", err)
	}
	grades, _ := svc.List(ctx, "")
	if len(grades) != 1 || grades[0].PlayerID != "u2" {
		t.Fatalf("after clear: %+v", grades)
	}

	n, err := svc.ResetDay(ctx, "2026-05-10")
	if err != nil {
		t.Fatalf("ResetDay: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	if grades, _ := svc.List(ctx, "2026-05-09"); len(grades) != 1 {
		t.Errorf("other day touched: %+v", grades)
	}
}

func TestNextMidnight(t *testing.T) {
	lima, err := time.LoadLocation("America/Lima")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"evening", time.Date(2026, 5, 10, 23, 30, 0, 0, lima), time.Date(2026, 5, 11, 0, 0, 0, 0, lima)},
		{"exactly midnight", time.Date(2026, 5, 10, 0, 0, 0, 0, lima), time.Date(2026, 5, 11, 0, 0, 0, 0, lima)},
		{"end of month", time.Date(2026, 1, 31, 8, 0, 0, 0, lima), time.Date(2026, 2, 1, 0, 0, 0, 0, lima)},
		{"utc input", time.Date(2026, 5, 11, 3, 0, 0, 0, time.UTC), time.Date(2026, 5, 11, 0, 0, 0, 0, lima)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextMidnight(tt.now, lima); !got.Equal(tt.want) {
				t.Errorf("NextMidnight = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunMidnightReset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := setup(t, time.Date(2026, 5, 10, 23, 30, 0, 0, time.UTC))
	svc.Save(ctx, "2026-05-10", "u1", 4, "admin")
	svc.Save(ctx, "2026-05-11", "u2", 3, "admin")

	fire := make(chan time.Time)
	var waited time.Duration
	svc.after = func(d time.Duration) <-chan time.Time {
		waited = d
		return fire
	}

	done := make(chan error, 1)
	go func() { done <- svc.RunMidnightReset(ctx) }()

	fire <- time.Time{}
	// The second send only completes once the loop is waiting again,
	// so the first reset has finished.
	fire <- time.Time{}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunMidnightReset: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	if waited != 30*time.Minute {
		t.Errorf("waited %v, want 30m", waited)
	}
	if grades, _ := svc.List(context.Background(), "2026-05-10"); len(grades) != 0 {
		t.Errorf("ended day not wiped: %+v", grades)
	}
	if grades, _ := svc.List(context.Background(), "2026-05-11"); len(grades) != 1 {
		t.Errorf("next day touched: %+v", grades)
	}
}

func TestRunMidnightResetStopsImmediately(t *testing.T) {
	svc := setup(t, time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	svc.after = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.RunMidnightReset(ctx); err != nil {
		t.Fatalf("RunMidnightReset: %v", err)
	}
}
