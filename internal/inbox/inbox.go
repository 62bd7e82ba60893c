// Package inbox holds messages players send to the admins.
package inbox

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
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/questboard"
)

type Service struct {
	db     docstore.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db docstore.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger, now: time.Now}
}

func (s *Service) Send(ctx context.Context, playerID, subject, body string) (questboard.Message, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if body == "" {
		return questboard.Message{}, apperr.ValidationError{Field: "body", Message: "is required"}
	}
	p, err := player.Load(ctx, s.db, playerID)
	if err != nil {
		return questboard.Message{}, err
	}

	m := questboard.Message{
		ID:         docstore.NewID(),
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Subject:    subject,
		Body:       body,
		Status:     questboard.StatusUnread,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.db.Put(ctx, questboard.CollAdminMessages, m.ID, m); err != nil {
		return questboard.Message{}, apperr.Store("send message", err)
	}
	s.logger.Info("admin message received", "player_id", p.ID, "message_id", m.ID)
	return m, nil
}

// List returns all messages, newest first.
func (s *Service) List(ctx context.Context) ([]questboard.Message, error) {
	docs, err := s.db.List(ctx, questboard.CollAdminMessages)
	if err != nil {
		return nil, apperr.Store("list messages", err)
	}
	msgs, err := docstore.DecodeAll[questboard.Message](docs)
	if err != nil {
		return nil, apperr.Store("decode messages", err)
	}
	slices.SortStableFunc(msgs, func(a, b questboard.Message) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return msgs, nil
}

// ForPlayer returns the messages a player has sent, newest first.
func (s *Service) ForPlayer(ctx context.Context, playerID string) ([]questboard.Message, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(m questboard.Message) bool { return m.PlayerID != playerID }), nil
}

func (s *Service) MarkRead(ctx context.Context, id string) error {
	err := s.db.RunInTx(ctx, func(tx docstore.Querier) error {
		var m questboard.Message
		err := tx.Get(ctx, questboard.CollAdminMessages, id, &m)
		if errors.Is(err, docstore.ErrNotFound) {
			return apperr.NotFoundError{Kind: "message", ID: id}
		}
		if err != nil {
			return err
		}
		if m.Status == questboard.StatusRead {
			return nil
		}
		now := s.now().UTC()
		m.Status = questboard.StatusRead
		m.ReadAt = &now
		return tx.Put(ctx, questboard.CollAdminMessages, id, m)
	})
	return apperr.Store("mark message read", err)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.db.Delete(ctx, questboard.CollAdminMessages, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.NotFoundError{Kind: "message", ID: id}
	}
	return apperr.Store("delete message", err)
}
