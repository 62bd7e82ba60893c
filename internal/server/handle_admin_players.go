package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/questboard/internal/identity"
	"github.com/playperu/questboard/internal/leaderboard"
	"github.com/playperu/questboard/internal/player"
)

// PlayerTokenResponse is the response for POST /api/admin/players/{id}/token.
type PlayerTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func handleAdminListPlayers(logger *slog.Logger, players *player.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := players.List(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleAdminGetPlayer(logger *slog.Logger, players *player.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := players.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleAdminCreatePlayer(logger *slog.Logger, players *player.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in player.CreateInput
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		p, err := players.Create(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func handleAdminUpdatePlayer(logger *slog.Logger, players *player.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in player.UpdateInput
		if err := readJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		p, err := players.Update(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleAdminDeletePlayer(logger *slog.Logger, players *player.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := players.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
	}
}

// handleAdminIssuePlayerToken mints a game-client token for a player.
func handleAdminIssuePlayerToken(logger *slog.Logger, players *player.Service, tokens *identity.Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := players.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		token, expiresAt, err := tokens.Issue(p.ID, p.Name)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		logger.Info("issued player token", "player_id", p.ID, "admin_id", adminFrom(r).Admin.ID)
		writeJSON(w, http.StatusOK, PlayerTokenResponse{Token: token, ExpiresAt: expiresAt})
	}
}

func handleAdminLeaderboard(logger *slog.Logger, ranking Ranking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := player.DefaultLeaderboardSize
		if raw := r.URL.Query().Get("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 || v > 100 {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
				return
			}
			n = v
		}
		entries, err := ranking.Top(r.Context(), n)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if entries == nil {
			entries = []leaderboard.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
