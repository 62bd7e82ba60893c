package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/playperu/questboard/internal/identity"
)

type ctxKey int

const (
	ctxKeyAdmin ctxKey = iota
	ctxKeyPlayer
)

func adminAuthMiddleware(logger *slog.Logger, admins *identity.Admins) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := admins.Current(r.Context(), adminSessionID(r))
			if errors.Is(err, identity.ErrNoSession) {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyAdmin, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func playerAuthMiddleware(tokens *identity.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := playerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "player token required")
				return
			}
			playerID, err := tokens.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid player token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyPlayer, playerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// readyMiddleware answers 503 until initialization has finished.
func readyMiddleware(ready *atomic.Bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ready == nil || !ready.Load() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "service not ready")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func adminFrom(r *http.Request) identity.Session {
	return r.Context().Value(ctxKeyAdmin).(identity.Session)
}

func playerFrom(r *http.Request) string {
	return r.Context().Value(ctxKeyPlayer).(string)
}
