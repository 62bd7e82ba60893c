// Package daygrade stores the 1-5 star grade an admin gives each player
// per calendar day and wipes a day's grades once it is over.
package daygrade

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/playperu/questboard/internal/apperr"
	"github.com/playperu/questboard/internal/docstore"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/questboard"
)

type Service struct {
	db     docstore.DB
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time
}

func NewService(db docstore.DB, loc *time.Location, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		loc:    loc,
		logger: logger,
		now:    time.Now,
		after:  time.After,
	}
}

// Today is the current calendar day in the service's time zone.
func (s *Service) Today() string {
	return questboard.DateKey(s.now().In(s.loc))
}

func (s *Service) date(date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return s.Today(), nil
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", apperr.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	return date, nil
}

// Save records a grade, replacing any earlier grade for the same player
// and day. An empty date means today.
func (s *Service) Save(ctx context.Context, date, playerID string, grade int, gradedBy string) (questboard.DayGrade, error) {
	date, err := s.date(date)
	if err != nil {
		return questboard.DayGrade{}, err
	}
	if grade < questboard.MinGrade || grade > questboard.MaxGrade {
		return questboard.DayGrade{}, apperr.ValidationError{Field: "grade", Message: "must be between 1 and 5"}
	}
	if _, err := player.Load(ctx, s.db, playerID); err != nil {
		return questboard.DayGrade{}, err
	}

	g := questboard.DayGrade{
		PlayerID:  playerID,
		Grade:     grade,
		Timestamp: s.now().UTC(),
		GradedBy:  gradedBy,
	}
	if err := s.db.Put(ctx, questboard.DayGradesCollection(date), playerID, g); err != nil {
		return questboard.DayGrade{}, apperr.Store("save grade", err)
	}
	return g, nil
}

// Clear removes a player's grade for a day. Clearing a missing grade is
// not an error.
func (s *Service) Clear(ctx context.Context, date, playerID string) error {
	date, err := s.date(date)
	if err != nil {
		return err
	}
	err = s.db.Delete(ctx, questboard.DayGradesCollection(date), playerID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return apperr.Store("clear grade", err)
	}
	return nil
}

// List returns the grades given on date, ordered by player id.
func (s *Service) List(ctx context.Context, date string) ([]questboard.DayGrade, error) {
	date, err := s.date(date)
	if err != nil {
		return nil, err
	}
	docs, err := s.db.List(ctx, questboard.DayGradesCollection(date))
	if err != nil {
		return nil, apperr.Store("list grades", err)
	}
	grades, err := docstore.DecodeAll[questboard.DayGrade](docs)
	if err != nil {
		return nil, apperr.Store("decode grades", err)
	}
	for i := range grades {
		if grades[i].PlayerID == "" {
			grades[i].PlayerID = docs[i].ID
		}
	}
	slices.SortFunc(grades, func(a, b questboard.DayGrade) int { return strings.Compare(a.PlayerID, b.PlayerID) })
	return grades, nil
}

// ResetDay wipes every grade of date.
func (s *Service) ResetDay(ctx context.Context, date string) (int64, error) {
	date, err := s.date(date)
	if err != nil {
		return 0, err
	}
	n, err := s.db.DeleteCollection(ctx, questboard.DayGradesCollection(date))
	if err != nil {
		return 0, apperr.Store("reset grades", err)
	}
	return n, nil
}

// NextMidnight returns the first local midnight strictly after t.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// RunMidnightReset wipes the grades of each day when it ends. It blocks
// until ctx is cancelled.
func (s *Service) RunMidnightReset(ctx context.Context) error {
	for {
		now := s.now()
		next := NextMidnight(now, s.loc)
		ended := questboard.DateKey(now.In(s.loc))

		select {
		case <-ctx.Done():
			return nil
		case <-s.after(next.Sub(now)):
		}

		n, err := s.ResetDay(ctx, ended)
		if err != nil {
			s.logger.Error("resetting daily grades", "date", ended, "error", err)
			continue
		}
		s.logger.Info("daily grades reset", "date", ended, "deleted", n)
	}
}
