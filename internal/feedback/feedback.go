// Package feedback sends admin feedback to players and applies the
// attached experience delta exactly once per feedback record.
//
// Every record lives twice: in the player's own collection and in the
// admin history. Both copies and the XP change are written in one
// transaction.
package feedback

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/playperu/questboard/internal/apperr"
	"github.com/playperu/questboard/internal/docstore"
	"github.com/playperu/questboard/internal/notify"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/progression"
	"github.com/playperu/questboard/internal/questboard"
)

// Game-side sends carry these defaults.
const (
	DefaultTitle = "Feedback"
	SystemSender = "system"
	SystemName   = "Game"
)

type SendRequest struct {
	PlayerIDs []string                `json:"playerIds"`
	Type      questboard.FeedbackType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	XPDelta   int                     `json:"xpDelta"`

	// IdempotencyKey makes feedback ids deterministic so a resubmitted
	// request is recognised and skipped.
	IdempotencyKey string `json:"-"`
}

// Sender identifies who sent the feedback.
type Sender struct {
	ID   string
	Name string
}

type SendResult struct {
	Sent        int                   `json:"sent"`
	PlayerNames []string              `json:"playerNames"`
	Feedback    []questboard.Feedback `json:"feedback"`
	Failures    []questboard.Failure  `json:"failures"`
}

// GameFeedback is what a game client may send on its own.
type GameFeedback struct {
	Type    questboard.FeedbackType `json:"type"`
	Title   string                  `json:"title"`
	Message string                  `json:"message"`
}

type Service struct {
	db       docstore.DB
	notifier notify.Notifier
	policy   progression.Policy
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(db docstore.DB, notifier notify.Notifier, policy progression.Policy, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

func validate(req SendRequest) error {
	switch {
	case len(req.PlayerIDs) == 0:
		return apperr.ValidationError{Field: "playerIds", Message: "select at least one player"}
	case !req.Type.Valid():
		return apperr.ValidationError{Field: "type", Message: "must be positive, negative or neutral"}
	case req.Title == "":
		return apperr.ValidationError{Field: "title", Message: "is required"}
	case req.Message == "":
		return apperr.ValidationError{Field: "message", Message: "is required"}
	case req.XPDelta < questboard.MinXPDelta || req.XPDelta > questboard.MaxXPDelta:
		return apperr.ValidationError{Field: "xpDelta", Message: "must be between -5 and 5"}
	}
	return nil
}

// Send delivers one feedback record per player. Input is validated before
// anything is written; after that a failing player is reported in
// Failures and the batch carries on.
func (s *Service) Send(ctx context.Context, req SendRequest, from Sender) (SendResult, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)

	var ids []string
	for _, id := range req.PlayerIDs {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	req.PlayerIDs = ids
	if err := validate(req); err != nil {
		return SendResult{}, err
	}

	res := SendResult{
		PlayerNames: []string{},
		Feedback:    []questboard.Feedback{},
		Failures:    []questboard.Failure{},
	}
	for _, pid := range ids {
		id := docstore.NewID()
		if req.IdempotencyKey != "" {
			id = docstore.DeriveID(req.IdempotencyKey, pid)
		}
		fb := questboard.Feedback{
			ID:         id,
			PlayerID:   pid,
			Type:       req.Type,
			Title:      req.Title,
			Message:    req.Message,
			XPDelta:    req.XPDelta,
			SentBy:     from.ID,
			SentByName: from.Name,
		}

		out, p, created, err := s.deliver(ctx, fb)
		if err != nil {
			s.logger.Error("sending feedback", "player_id", pid, "error", err)
			res.Failures = append(res.Failures, questboard.Failure{PlayerID: pid, Reason: apperr.Message(err)})
			continue
		}
		res.Sent++
		res.PlayerNames = append(res.PlayerNames, out.PlayerName)
		res.Feedback = append(res.Feedback, out)
		if created {
			s.notifyDelivered(ctx, out, p)
		}
	}

	s.logger.Info("feedback sent",
		"type", req.Type,
		"xp_delta", req.XPDelta,
		"sent", res.Sent,
		"failed", len(res.Failures),
	)
	return res, nil
}

// SendToPlayer is the game-side entry point. It never carries XP.
func (s *Service) SendToPlayer(ctx context.Context, playerID string, in GameFeedback) (questboard.Feedback, error) {
	if in.Type == "" {
		in.Type = questboard.FeedbackPositive
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		in.Title = DefaultTitle
	}
	req := SendRequest{
		PlayerIDs: []string{playerID},
		Type:      in.Type,
		Title:     in.Title,
		Message:   strings.TrimSpace(in.Message),
	}
	if err := validate(req); err != nil {
		return questboard.Feedback{}, err
	}

	out, p, created, err := s.deliver(ctx, questboard.Feedback{
		ID:         docstore.NewID(),
		PlayerID:   playerID,
		Type:       req.Type,
		Title:      req.Title,
		Message:    req.Message,
		SentBy:     SystemSender,
		SentByName: SystemName,
	})
	if err != nil {
		return questboard.Feedback{}, err
	}
	if created {
		s.notifyDelivered(ctx, out, p)
	}
	return out, nil
}

// deliver writes both copies of fb and applies its XP in one transaction.
// An existing record with the same id is returned untouched.
func (s *Service) deliver(ctx context.Context, fb questboard.Feedback) (questboard.Feedback, questboard.Player, bool, error) {
	var (
		p       questboard.Player
		created bool
	)
	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		var existing questboard.Feedback
		err := tx.Get(ctx, questboard.CollFeedbackHistory, fb.ID, &existing)
		if err == nil {
			fb = existing
			return nil
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}

		p, err = player.Load(ctx, tx, fb.PlayerID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		fb.PlayerName = p.Name
		fb.CreatedAt = now
		fb.Status = questboard.StatusUnread
		if fb.XPDelta != 0 {
			player.GrantXP(&p, s.policy, fb.XPDelta)
			if err := player.Save(ctx, tx, p); err != nil {
				return err
			}
			fb.XPAppliedAt = &now
		}

		if err := tx.Put(ctx, questboard.PlayerFeedbackCollection(fb.PlayerID), fb.ID, fb); err != nil {
			return err
		}
		if err := tx.Put(ctx, questboard.CollFeedbackHistory, fb.ID, fb); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return questboard.Feedback{}, questboard.Player{}, false, apperr.Store("deliver feedback", err)
	}
	return fb, p, created, nil
}

// ApplyXP applies a record's XP delta if it has not been applied yet and
// reports whether it did.
func (s *Service) ApplyXP(ctx context.Context, feedbackID string) (bool, error) {
	var (
		p       questboard.Player
		applied bool
	)
	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		fb, err := loadHistory(ctx, tx, feedbackID)
		if err != nil {
			return err
		}
		if fb.XPDelta == 0 || fb.XPAppliedAt != nil {
			return nil
		}

		p, err = player.Load(ctx, tx, fb.PlayerID)
		if err != nil {
			return err
		}
		player.GrantXP(&p, s.policy, fb.XPDelta)
		if err := player.Save(ctx, tx, p); err != nil {
			return err
		}

		now := s.now().UTC()
		fb.XPAppliedAt = &now
		if err := writeBoth(ctx, tx, fb); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, apperr.Store("apply feedback xp", err)
	}
	if applied {
		s.notifier.Notify(ctx, player.StatsEvent(p, s.now()))
	}
	return applied, nil
}

// MarkRead marks a player's own feedback as read. Marking an already read
// record succeeds without changing it.
func (s *Service) MarkRead(ctx context.Context, feedbackID, playerID string) (questboard.Feedback, error) {
	var fb questboard.Feedback
	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		err := tx.Get(ctx, questboard.PlayerFeedbackCollection(playerID), feedbackID, &fb)
		if errors.Is(err, docstore.ErrNotFound) {
			if h, herr := loadHistory(ctx, tx, feedbackID); herr == nil && h.PlayerID != playerID {
				return apperr.ForbiddenError{Reason: "feedback belongs to another player"}
			}
			return apperr.NotFoundError{Kind: "feedback", ID: feedbackID}
		}
		if err != nil {
			return err
		}
		if fb.PlayerID != "" && fb.PlayerID != playerID {
			return apperr.ForbiddenError{Reason: "feedback belongs to another player"}
		}
		if fb.Status == questboard.StatusRead {
			return nil
		}

		now := s.now().UTC()
		fb.Status = questboard.StatusRead
		fb.ReadAt = &now
		return writeBoth(ctx, tx, fb)
	})
	if err != nil {
		return questboard.Feedback{}, apperr.Store("mark feedback read", err)
	}
	return fb, nil
}

// Delete removes both copies. The history copy must exist; a missing
// player copy is ignored.
func (s *Service) Delete(ctx context.Context, feedbackID string) error {
	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		fb, err := loadHistory(ctx, tx, feedbackID)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, questboard.CollFeedbackHistory, feedbackID); err != nil {
			return err
		}
		err = tx.Delete(ctx, questboard.PlayerFeedbackCollection(fb.PlayerID), feedbackID)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return apperr.Store("delete feedback", err)
	}
	s.logger.Info("feedback deleted", "feedback_id", feedbackID)
	return nil
}

// History returns every feedback record, newest first.
func (s *Service) History(ctx context.Context) ([]questboard.Feedback, error) {
	return s.list(ctx, questboard.CollFeedbackHistory)
}

// ForPlayer returns one player's feedback, newest first.
func (s *Service) ForPlayer(ctx context.Context, playerID string) ([]questboard.Feedback, error) {
	return s.list(ctx, questboard.PlayerFeedbackCollection(playerID))
}

func (s *Service) list(ctx context.Context, collection string) ([]questboard.Feedback, error) {
	docs, err := s.db.List(ctx, collection)
	if err != nil {
		return nil, apperr.Store("list feedback", err)
	}
	out, err := docstore.DecodeAll[questboard.Feedback](docs)
	if err != nil {
		return nil, apperr.Store("decode feedback", err)
	}
	slices.SortStableFunc(out, func(a, b questboard.Feedback) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return out, nil
}

func (s *Service) notifyDelivered(ctx context.Context, fb questboard.Feedback, p questboard.Player) {
	s.notifier.Notify(ctx, notify.Event{
		Type:       notify.FeedbackReceived,
		PlayerID:   fb.PlayerID,
		FeedbackID: fb.ID,
		At:         s.now(),
	})
	if fb.XPAppliedAt != nil {
		s.notifier.Notify(ctx, player.StatsEvent(p, s.now()))
	}
}

func loadHistory(ctx context.Context, q docstore.Querier, id string) (questboard.Feedback, error) {
	var fb questboard.Feedback
	err := q.Get(ctx, questboard.CollFeedbackHistory, id, &fb)
	if errors.Is(err, docstore.ErrNotFound) {
		return fb, apperr.NotFoundError{Kind: "feedback", ID: id}
	}
	return fb, err
}

// writeBoth overwrites whichever of the two copies still exist.
func writeBoth(ctx context.Context, q docstore.Querier, fb questboard.Feedback) error {
	for _, coll := range []string{questboard.CollFeedbackHistory, questboard.PlayerFeedbackCollection(fb.PlayerID)} {
		var cur questboard.Feedback
		err := q.Get(ctx, coll, fb.ID, &cur)
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := q.Put(ctx, coll, fb.ID, fb); err != nil {
			return err
		}
	}
	return nil
}
