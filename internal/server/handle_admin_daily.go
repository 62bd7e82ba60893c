package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/questboard/internal/daygrade"
	"github.com/playperu/questboard/internal/inbox"
	"github.com/playperu/questboard/internal/mission"
	"github.com/playperu/questboard/internal/questboard"
)

// DayGradeRequest is the request body for PUT /api/admin/daygrades/{playerID}.
type DayGradeRequest struct {
	Date  string `json:"date,omitempty"`
	Grade int    `json:"grade"`
}

// DayGradesResponse lists the grades of one day.
type DayGradesResponse struct {
	Date   string                `json:"date"`
	Grades []questboard.DayGrade `json:"grades"`
}

// ResetRequest is the request body for POST /api/admin/daygrades/reset.
type ResetRequest struct {
	Date string `json:"date,omitempty"`
}

// ResetResponse reports how many grades were removed.
type ResetResponse struct {
	Date    string `json:"date"`
	Removed int64  `json:"removed"`
}

// MissionsResponse lists the mission submissions of one day.
type MissionsResponse struct {
	Date    string                  `json:"date"`
	Players []questboard.MissionDay `json:"players"`
}

func dateParam(r *http.Request, grades *daygrade.Service) string {
	if d := r.URL.Query().Get("date"); d != "" {
		return d
	}
	return grades.Today()
}

func handleAdminListDayGrades(logger *slog.Logger, grades *daygrade.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := dateParam(r, grades)
		list, err := grades.List(r.Context(), date)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, DayGradesResponse{Date: date, Grades: list})
	}
}

func handleAdminSaveDayGrade(logger *slog.Logger, grades *daygrade.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DayGradeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		g, err := grades.Save(r.Context(), req.Date, chi.URLParam(r, "playerID"), req.Grade, adminFrom(r).Admin.ID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleAdminClearDayGrade(logger *slog.Logger, grades *daygrade.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := grades.Clear(r.Context(), r.URL.Query().Get("date"), chi.URLParam(r, "playerID")); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "cleared"})
	}
}

func handleAdminResetDayGrades(logger *slog.Logger, grades *daygrade.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Date == "" {
			req.Date = grades.Today()
		}
		n, err := grades.ResetDay(r.Context(), req.Date)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		logger.Info("day grades reset", "date", req.Date, "removed", n, "admin_id", adminFrom(r).Admin.ID)
		writeJSON(w, http.StatusOK, ResetResponse{Date: req.Date, Removed: n})
	}
}

func handleAdminListMissions(logger *slog.Logger, missions *mission.Service, grades *daygrade.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := dateParam(r, grades)
		list, err := missions.List(r.Context(), date)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, MissionsResponse{Date: date, Players: list})
	}
}

func handleAdminListMessages(logger *slog.Logger, msgs *inbox.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := msgs.List(r.Context())
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleAdminReadMessage(logger *slog.Logger, msgs *inbox.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := msgs.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "read"})
	}
}

func handleAdminDeleteMessage(logger *slog.Logger, msgs *inbox.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := msgs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
	}
}
