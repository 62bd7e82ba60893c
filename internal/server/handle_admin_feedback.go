package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/questboard/internal/feedback"
)

// ApplyXPResponse is the response for POST /api/admin/feedback/{id}/apply-xp.
type ApplyXPResponse struct {
	Applied bool `json:"applied"`
}

func handleAdminListFeedback(logger *slog.Logger, fb *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := fb.History(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// handleAdminSendFeedback sends feedback to each selected player. Clients
// that retry should repeat the Idempotency-Key header so no player is
// credited twice.
func handleAdminSendFeedback(logger *slog.Logger, fb *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req feedback.SendRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")

		admin := adminFrom(r).Admin
		res, err := fb.Send(r.Context(), req, feedback.Sender{ID: admin.ID, Name: admin.Name})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleAdminApplyFeedbackXP(logger *slog.Logger, fb *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applied, err := fb.ApplyXP(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ApplyXPResponse{Applied: applied})
	}
}

func handleAdminDeleteFeedback(logger *slog.Logger, fb *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fb.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
	}
}
