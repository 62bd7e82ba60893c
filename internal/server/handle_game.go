package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/questboard/internal/feedback"
	"github.com/playperu/questboard/internal/inbox"
	"github.com/playperu/questboard/internal/mission"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/quest"
)

// ReportDoneRequest is the request body for POST /api/game/quests/{id}/done.
type ReportDoneRequest struct {
	Justification string `json:"justification,omitempty"`
}

// MessageRequest is the request body for POST /api/game/messages.
type MessageRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func handleGameMe(logger *slog.Logger, players *player.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := players.Get(r.Context(), playerFrom(r))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// handleGameSession records a login and returns the player.
func handleGameSession(logger *slog.Logger, players *player.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := players.RecordLogin(r.Context(), playerFrom(r))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleGameQuests(logger *slog.Logger, quests *quest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := quests.ListForPlayer(r.Context(), playerFrom(r))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleGameReportDone(logger *slog.Logger, quests *quest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReportDoneRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		q, err := quests.ReportDone(r.Context(), chi.URLParam(r, "id"), playerFrom(r), req.Justification)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func handleGameAddMission(logger *slog.Logger, missions *mission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in mission.SubmissionInput
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sub, err := missions.Add(r.Context(), playerFrom(r), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	}
}

func handleGameFeedback(logger *slog.Logger, fb *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := fb.ForPlayer(r.Context(), playerFrom(r))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleGameSendFeedback(logger *slog.Logger, fb *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in feedback.GameFeedback
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		out, err := fb.SendToPlayer(r.Context(), playerFrom(r), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func handleGameReadFeedback(logger *slog.Logger, fb *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fb.MarkRead(r.Context(), chi.URLParam(r, "id"), playerFrom(r))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGameMessages(logger *slog.Logger, msgs *inbox.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := msgs.ForPlayer(r.Context(), playerFrom(r))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleGameSendMessage(logger *slog.Logger, msgs *inbox.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MessageRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		m, err := msgs.Send(r.Context(), playerFrom(r), req.Subject, req.Body)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}
