package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/questboard/internal/daygrade"
	"github.com/playperu/questboard/internal/docstore"
	"github.com/playperu/questboard/internal/docstore/docstoretest"
	"github.com/playperu/questboard/internal/feedback"
	"github.com/playperu/questboard/internal/identity"
	"github.com/playperu/questboard/internal/inbox"
	"github.com/playperu/questboard/internal/mission"
	"github.com/playperu/questboard/internal/notify"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/progression"
	"github.com/playperu/questboard/internal/quest"
	"github.com/playperu/questboard/internal/questboard"
)

type testEnv struct {
	t      *testing.T
	router *chi.Mux
	deps   Deps
	store  *docstore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, db := docstoretest.OpenDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broker := notify.NewBroker()
	ready := &atomic.Bool{}
	ready.Store(true)

	deps := Deps{
		Players:   player.NewService(store, broker, progression.FloorAtZero, logger),
		Quests:    quest.NewService(store, broker, progression.FloorAtZero, logger),
		Feedback:  feedback.NewService(store, broker, progression.FloorAtZero, logger),
		DayGrades: daygrade.NewService(store, time.UTC, logger),
		Missions:  mission.NewService(store, time.UTC, logger),
		Inbox:     inbox.NewService(store, logger),
		Admins:    identity.NewAdmins(db, store, time.Hour, logger),
		Tokens:    identity.NewTokens("test-secret", time.Hour),
		Broker:    broker,
		Ready:     ready,
	}

	ctx := context.Background()
	if _, err := deps.Admins.SeedAdmin(ctx, "admin@playperu.com", "changeme", "Admin"); err != nil {
		t.Fatalf("seeding admin: %v", err)
	}
	for _, p := range []questboard.Player{
		{ID: "u1", Name: "Ana", Email: "ana@example.com", Level: 1},
		{ID: "u2", Name: "Beto", Email: "beto@example.com", Level: 2, Experience: 150},
	} {
		if err := player.Save(ctx, store, p); err != nil {
			t.Fatalf("seeding player: %v", err)
		}
	}

	r := chi.NewRouter()
	addRoutes(r, logger, deps)
	return &testEnv{t: t, router: r, deps: deps, store: store}
}

// login signs in the seeded admin and returns the session cookies.
func (e *testEnv) login() []*http.Cookie {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/admin/login", AdminLoginRequest{Email: "admin@playperu.com", Password: "changeme"}, nil)
	if w.Code != http.StatusOK {
		e.t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func (e *testEnv) token(playerID string) string {
	e.t.Helper()
	tok, _, err := e.deps.Tokens.Issue(playerID, "")
	if err != nil {
		e.t.Fatalf("issuing token: %v", err)
	}
	return tok
}

func (e *testEnv) do(method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	req := newRequest(e.t, method, path, body)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) game(method, path, playerID string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	req := newRequest(e.t, method, path, body)
	req.Header.Set("Authorization", "Bearer "+e.token(playerID))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func newRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	return httptest.NewRequest(method, path, rd)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, w.Body.String())
	}
	return v
}
