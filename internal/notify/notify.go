// Package notify carries best-effort events to game clients. Delivery is
// never guaranteed, Notify never blocks the caller, and failures are only
// logged.
package notify

import (
	"context"
	"time"
)

type EventType string

const (
	PlayerStatsUpdated EventType = "player_stats_updated"
	QuestStatusUpdated EventType = "quest_status_updated"
	FeedbackReceived   EventType = "feedback_received"
	PlayerDeleted      EventType = "player_deleted"
)

// Stats is the player payload carried by player_stats_updated.
type Stats struct {
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
	Points     int    `json:"points"`
}

type Event struct {
	Type       EventType `json:"type"`
	PlayerID   string    `json:"playerId"`
	QuestID    string    `json:"questId,omitempty"`
	Status     string    `json:"status,omitempty"`
	FeedbackID string    `json:"feedbackId,omitempty"`
	Stats      *Stats    `json:"stats,omitempty"`
	At         time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		n.Notify(ctx, e)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
