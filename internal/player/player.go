// Package player manages player records and resolves quest assignments
// to concrete players.
package player

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/playperu/questboard/internal/apperr"
	"github.com/playperu/questboard/internal/docstore"
	"github.com/playperu/questboard/internal/notify"
	"github.com/playperu/questboard/internal/progression"
	"github.com/playperu/questboard/internal/questboard"
)

// playerDoc is the stored shape. Numeric fields are pointers so a missing
// field can be told apart from zero.
type playerDoc struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Skin       string     `json:"skin,omitempty"`
	Points     *int       `json:"points"`
	Level      *int       `json:"level"`
	Experience *int       `json:"experience"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (d playerDoc) player(id string) questboard.Player {
	p := questboard.Player{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Skin:      d.Skin,
		Level:     questboard.MinLevel,
		LastLogin: d.LastLogin,
		CreatedAt: d.CreatedAt,
	}
	if p.ID == "" {
		p.ID = id
	}
	if d.Points != nil {
		p.Points = *d.Points
	}
	if d.Level != nil {
		p.Level = *d.Level
	}
	if d.Experience != nil {
		p.Experience = *d.Experience
	}
	return p
}

func decode(id string, data []byte) (questboard.Player, error) {
	var d playerDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return questboard.Player{}, err
	}
	return d.player(id), nil
}

// Load reads one player through q, applying field defaults.
func Load(ctx context.Context, q docstore.Querier, id string) (questboard.Player, error) {
	var raw json.RawMessage
	err := q.Get(ctx, questboard.CollUsers, id, &raw)
	if errors.Is(err, docstore.ErrNotFound) {
		return questboard.Player{}, apperr.NotFoundError{Kind: "player", ID: id}
	}
	if err != nil {
		return questboard.Player{}, apperr.Store("get player", err)
	}
	p, err := decode(id, raw)
	if err != nil {
		return questboard.Player{}, apperr.Store("decode player", err)
	}
	return p, nil
}

// LoadAll reads every player through q.
func LoadAll(ctx context.Context, q docstore.Querier) ([]questboard.Player, error) {
	docs, err := q.List(ctx, questboard.CollUsers)
	if err != nil {
		return nil, apperr.Store("list players", err)
	}
	players := make([]questboard.Player, 0, len(docs))
	for _, d := range docs {
		p, err := decode(d.ID, d.Data)
		if err != nil {
			return nil, apperr.Store("decode player", err)
		}
		players = append(players, p)
	}
	return players, nil
}

// Save overwrites a player through q.
func Save(ctx context.Context, q docstore.Querier, p questboard.Player) error {
	return apperr.Store("put player", q.Put(ctx, questboard.CollUsers, p.ID, p))
}

// Resolve maps an assignment string to a player: by id, then by email,
// then by display name. The first match wins.
func Resolve(ctx context.Context, q docstore.Querier, ref string) (questboard.Player, error) {
	ref = strings.TrimSpace(ref)
	if questboard.IsAllPlayers(ref) {
		return questboard.Player{}, apperr.ValidationError{
			Field:   "assignedPlayer",
			Message: "quest is assigned to all players; pick one player to reward",
		}
	}

	p, err := Load(ctx, q, ref)
	if err == nil {
		return p, nil
	}
	var nf apperr.NotFoundError
	if !errors.As(err, &nf) {
		return questboard.Player{}, err
	}

	players, err := LoadAll(ctx, q)
	if err != nil {
		return questboard.Player{}, err
	}
	for _, p := range players {
		if p.Email != "" && strings.EqualFold(p.Email, ref) {
			return p, nil
		}
	}
	for _, p := range players {
		if p.Name == ref {
			return p, nil
		}
	}
	return questboard.Player{}, apperr.PlayerResolutionError{Ref: ref}
}

// Rank sorts players by level, then experience, highest first.
func Rank(players []questboard.Player) {
	slices.SortStableFunc(players, func(a, b questboard.Player) int {
		if c := cmp.Compare(b.Level, a.Level); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Experience, a.Experience); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// StatsEvent builds the player_stats_updated event for p.
func StatsEvent(p questboard.Player, at time.Time) notify.Event {
	return notify.Event{
		Type:     notify.PlayerStatsUpdated,
		PlayerID: p.ID,
		Stats: &notify.Stats{
			Name:       p.Name,
			Level:      p.Level,
			Experience: p.Experience,
			Points:     p.Points,
		},
		At: at,
	}
}

// GrantXP applies delta to p under policy.
func GrantXP(p *questboard.Player, policy progression.Policy, delta int) {
	p.Level, p.Experience = policy.Apply(p.Level, p.Experience, delta)
}
