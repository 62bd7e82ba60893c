package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/playperu/questboard/internal/apperr"
	"github.com/playperu/questboard/internal/docstore"
	"github.com/playperu/questboard/internal/notify"
	"github.com/playperu/questboard/internal/progression"
	"github.com/playperu/questboard/internal/questboard"
)

// DefaultLeaderboardSize is the number of players shown on the leaderboard.
const DefaultLeaderboardSize = 5

type CreateInput struct {
	Name       string `json:"name" validate:"required,min=1,max=80"`
	Email      string `json:"email" validate:"required,email"`
	Skin       string `json:"skin" validate:"omitempty,url"`
	Points     int    `json:"points" validate:"gte=0"`
	Level      int    `json:"level" validate:"omitempty,min=1,max=10"`
	Experience int    `json:"experience" validate:"gte=0"`
}

type UpdateInput struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=1,max=80"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Skin       *string `json:"skin,omitempty" validate:"omitempty,url"`
	Points     *int    `json:"points,omitempty" validate:"omitempty,gte=0"`
	Level      *int    `json:"level,omitempty" validate:"omitempty,min=1,max=10"`
	Experience *int    `json:"experience,omitempty" validate:"omitempty,gte=0"`
}

type Service struct {
	db       docstore.DB
	notifier notify.Notifier
	policy   progression.Policy
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(db docstore.DB, notifier notify.Notifier, policy progression.Policy, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		policy:   policy,
		validate: NewValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// NewValidator returns a validator that reports JSON field names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError converts validator output to apperr.ValidationError.
func ValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "email":
		msg = "must be a valid email address"
	case "url":
		msg = "must be a valid URL"
	case "min", "gte":
		msg = "must be at least " + fe.Param()
	case "max", "lte":
		msg = "must be at most " + fe.Param()
	default:
		msg = fmt.Sprintf("failed %s validation", fe.Tag())
	}
	return apperr.ValidationError{Field: fe.Field(), Message: msg}
}

func (s *Service) Get(ctx context.Context, id string) (questboard.Player, error) {
	return Load(ctx, s.db, id)
}

// List returns every player sorted by name.
func (s *Service) List(ctx context.Context) ([]questboard.Player, error) {
	players, err := LoadAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	sortByName(players)
	return players, nil
}

// Leaderboard returns the top n players by level, then experience.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]questboard.Player, error) {
	if n <= 0 {
		n = DefaultLeaderboardSize
	}
	players, err := LoadAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	Rank(players)
	if len(players) > n {
		players = players[:n]
	}
	return players, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (questboard.Player, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := s.validate.Struct(in); err != nil {
		return questboard.Player{}, ValidationError(err)
	}

	p := questboard.Player{
		ID:         "user_" + docstore.NewID(),
		Name:       in.Name,
		Email:      in.Email,
		Skin:       in.Skin,
		Points:     in.Points,
		Level:      max(in.Level, questboard.MinLevel),
		Experience: in.Experience,
		CreatedAt:  s.now().UTC(),
	}
	GrantXP(&p, s.policy, 0)

	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		if err := ensureEmailFree(ctx, tx, p.Email, ""); err != nil {
			return err
		}
		return Save(ctx, tx, p)
	})
	if err != nil {
		return questboard.Player{}, apperr.Store("create player", err)
	}

	s.logger.Info("player created", "player_id", p.ID)
	s.notifier.Notify(ctx, StatsEvent(p, s.now()))
	return p, nil
}

// Update edits a player. Level and experience are normalised so the pair
// stays consistent.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (questboard.Player, error) {
	if in.Email != nil {
		e := strings.TrimSpace(strings.ToLower(*in.Email))
		in.Email = &e
	}
	if err := s.validate.Struct(in); err != nil {
		return questboard.Player{}, ValidationError(err)
	}

	var p questboard.Player
	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		var err error
		p, err = Load(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Email != nil && *in.Email != p.Email {
			if err := ensureEmailFree(ctx, tx, *in.Email, p.ID); err != nil {
				return err
			}
			p.Email = *in.Email
		}
		if in.Skin != nil {
			p.Skin = *in.Skin
		}
		if in.Points != nil {
			p.Points = *in.Points
		}
		if in.Level != nil {
			p.Level = *in.Level
		}
		if in.Experience != nil {
			p.Experience = *in.Experience
		}
		GrantXP(&p, s.policy, 0)
		return Save(ctx, tx, p)
	})
	if err != nil {
		return questboard.Player{}, apperr.Store("update player", err)
	}

	s.notifier.Notify(ctx, StatsEvent(p, s.now()))
	return p, nil
}

// RecordLogin stamps lastLogin for a game client session.
func (s *Service) RecordLogin(ctx context.Context, id string) (questboard.Player, error) {
	p, err := Load(ctx, s.db, id)
	if err != nil {
		return questboard.Player{}, err
	}
	now := s.now().UTC()
	if err := s.db.Merge(ctx, questboard.CollUsers, id, map[string]any{"lastLogin": now}); err != nil {
		return questboard.Player{}, apperr.Store("record login", err)
	}
	p.LastLogin = &now
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.db.Delete(ctx, questboard.CollUsers, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.NotFoundError{Kind: "player", ID: id}
	}
	if err != nil {
		return apperr.Store("delete player", err)
	}

	s.logger.Info("player deleted", "player_id", id)
	s.notifier.Notify(ctx, notify.Event{Type: notify.PlayerDeleted, PlayerID: id, At: s.now()})
	return nil
}

func ensureEmailFree(ctx context.Context, q docstore.Querier, email, selfID string) error {
	players, err := LoadAll(ctx, q)
	if err != nil {
		return err
	}
	for _, p := range players {
		if p.ID != selfID && strings.EqualFold(p.Email, email) {
			return apperr.ValidationError{Field: "email", Message: "is already used by another player"}
		}
	}
	return nil
}

func sortByName(players []questboard.Player) {
	slices.SortFunc(players, func(a, b questboard.Player) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}
