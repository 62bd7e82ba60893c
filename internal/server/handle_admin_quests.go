package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/questboard/internal/quest"
)

func handleAdminListQuests(logger *slog.Logger, quests *quest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := quests.ListActive(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleAdminGetQuest(logger *slog.Logger, quests *quest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := quests.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// handleAdminCreateQuests creates one quest per selected player. Failures
// for individual players are reported in the body, not as an error status.
func handleAdminCreateQuests(logger *slog.Logger, quests *quest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quest.CreateInput
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		res, err := quests.Create(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func handleAdminUpdateQuest(logger *slog.Logger, quests *quest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quest.UpdateInput
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		q, err := quests.Update(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func handleAdminApproveQuest(logger *slog.Logger, quests *quest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := quests.Approve(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		logger.Info("quest approved",
			"quest_id", res.Quest.ID,
			"player_id", res.Player.ID,
			"admin_id", adminFrom(r).Admin.ID,
		)
		writeJSON(w, http.StatusOK, res)
	}
}

func handleAdminDuplicateQuest(logger *slog.Logger, quests *quest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := quests.Duplicate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func handleAdminDeleteQuest(logger *slog.Logger, quests *quest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := quests.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
	}
}
