package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/questboard/internal/apperr"
	"github.com/playperu/questboard/internal/identity"
)

// AdminLoginRequest is the request body for POST /api/admin/login.
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminMeResponse is the response for GET /api/admin/me.
type AdminMeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func adminMe(sess identity.Session) AdminMeResponse {
	return AdminMeResponse{ID: sess.Admin.ID, Email: sess.Admin.Email, Name: sess.Admin.Name}
}

func handleAdminLogin(logger *slog.Logger, admins *identity.Admins) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess, err := admins.SignIn(r.Context(), req.Email, req.Password)
		var fe apperr.ForbiddenError
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials), errors.As(err, &fe):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		case err != nil:
			writeServiceError(w, r, logger, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   int(time.Until(sess.ExpiresAt) / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, adminMe(sess))
	}
}

func handleAdminMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, adminMe(adminFrom(r)))
	}
}

func handleAdminLogout(logger *slog.Logger, admins *identity.Admins) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id := adminSessionID(r); id != "" {
			if err := admins.SignOut(r.Context(), id); err != nil {
				logger.Warn("deleting admin session", "error", err)
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     adminCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}
