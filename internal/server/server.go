package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/playperu/questboard/internal/daygrade"
	"github.com/playperu/questboard/internal/feedback"
	"github.com/playperu/questboard/internal/identity"
	"github.com/playperu/questboard/internal/inbox"
	"github.com/playperu/questboard/internal/mission"
	"github.com/playperu/questboard/internal/notify"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/quest"
)

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	Players   *player.Service
	Quests    *quest.Service
	Feedback  *feedback.Service
	DayGrades *daygrade.Service
	Missions  *mission.Service
	Inbox     *inbox.Service
	Admins    *identity.Admins
	Tokens    *identity.Tokens
	Broker    *notify.Broker

	// Ranking serves the leaderboard. When nil it is computed from Players.
	Ranking Ranking

	// Ready gates the game API. Until it is set game routes answer 503.
	Ready *atomic.Bool

	// ConsoleDir, when set, is served as the admin console.
	ConsoleDir string
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the server. mount registers extra routes such as health
// checks on the root router.
func New(addr string, logger *slog.Logger, deps Deps, mount func(r chi.Router)) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	if mount != nil {
		mount(r)
	}
	addRoutes(r, logger, deps)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
