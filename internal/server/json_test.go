package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playperu/questboard/internal/apperr"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", apperr.ValidationError{Field: "name", Message: "is required"}, http.StatusBadRequest, "name: is required"},
		{"not found", apperr.NotFoundError{Kind: "quest", ID: "q1"}, http.StatusNotFound, "quest not found"},
		{"already completed", apperr.AlreadyCompletedError{QuestID: "q1"}, http.StatusConflict, "quest already completed"},
		{"invalid state", apperr.InvalidStateError{Kind: "quest", ID: "q1", State: "completed", Op: "edit"}, http.StatusConflict, "quest is completed"},
		{"resolution", apperr.PlayerResolutionError{Ref: "zed"}, http.StatusUnprocessableEntity, "player not found for assignment"},
		{"forbidden", apperr.ForbiddenError{Reason: "not yours"}, http.StatusForbidden, "not allowed"},
		{"store", apperr.PersistenceError{Op: "save", Err: errors.New("disk full")}, http.StatusInternalServerError, "internal error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			writeServiceError(rec, req, logger, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decode[ErrorResponse](t, rec); got.Error != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Error, tt.wantMsg)
			}
		})
	}
}
