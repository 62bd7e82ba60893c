// Package mission records the daily mission submissions sent by the game.
// A player's submissions for a day are append-only.
package mission

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/playperu/questboard/internal/apperr"
	"github.com/playperu/questboard/internal/docstore"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/questboard"
)

const statusSubmitted = "submitted"

type SubmissionInput struct {
	MissionName string `json:"missionName" validate:"max=120"`
	Description string `json:"description" validate:"required,max=2000"`
	Evidence    string `json:"evidence" validate:"omitempty,url"`
	Notes       string `json:"notes" validate:"max=2000"`
}

type Service struct {
	db       docstore.DB
	loc      *time.Location
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(db docstore.DB, loc *time.Location, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		loc:      loc,
		validate: player.NewValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// Add appends a submission to the player's record for today.
func (s *Service) Add(ctx context.Context, playerID string, in SubmissionInput) (questboard.Submission, error) {
	in.MissionName = strings.TrimSpace(in.MissionName)
	in.Description = strings.TrimSpace(in.Description)
	in.Evidence = strings.TrimSpace(in.Evidence)
	in.Notes = strings.TrimSpace(in.Notes)
	if err := s.validate.Struct(in); err != nil {
		return questboard.Submission{}, player.ValidationError(err)
	}
	if in.MissionName == "" {
		in.MissionName = questboard.DefaultMissionName
	}

	now := s.now()
	date := questboard.DateKey(now.In(s.loc))
	sub := questboard.Submission{
		ID:          docstore.NewID(),
		MissionName: in.MissionName,
		Description: in.Description,
		Evidence:    in.Evidence,
		Notes:       in.Notes,
		Timestamp:   now.UTC(),
	}

	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		p, err := player.Load(ctx, tx, playerID)
		if err != nil {
			return err
		}

		coll := questboard.MissionsCollection(date)
		var day questboard.MissionDay
		err = tx.Get(ctx, coll, playerID, &day)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		day.PlayerID = playerID
		day.PlayerName = p.Name
		day.Status = statusSubmitted
		day.Submissions = append(day.Submissions, sub)
		return tx.Put(ctx, coll, playerID, day)
	})
	if err != nil {
		return questboard.Submission{}, apperr.Store("add mission submission", err)
	}

	s.logger.Info("mission submitted", "player_id", playerID, "date", date, "mission", sub.MissionName)
	return sub, nil
}

// List returns every player's submissions for date (YYYY-MM-DD, empty for
// today), ordered by player name.
func (s *Service) List(ctx context.Context, date string) ([]questboard.MissionDay, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = questboard.DateKey(s.now().In(s.loc))
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, apperr.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}

	docs, err := s.db.List(ctx, questboard.MissionsCollection(date))
	if err != nil {
		return nil, apperr.Store("list missions", err)
	}
	days, err := docstore.DecodeAll[questboard.MissionDay](docs)
	if err != nil {
		return nil, apperr.Store("decode missions", err)
	}
	slices.SortFunc(days, func(a, b questboard.MissionDay) int { return strings.Compare(a.PlayerName, b.PlayerName) })
	return days, nil
}
