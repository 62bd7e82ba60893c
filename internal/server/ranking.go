package server

import (
	"context"

	"github.com/playperu/questboard/internal/leaderboard"
	"github.com/playperu/questboard/internal/player"
)

// Ranking returns the best n players, highest first.
type Ranking interface {
	Top(ctx context.Context, n int) ([]leaderboard.Entry, error)
}

// storeRanking computes the leaderboard from the document store.
type storeRanking struct{ players *player.Service }

func (s storeRanking) Top(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	top, err := s.players.Leaderboard(ctx, n)
	if err != nil {
		return nil, err
	}
	entries := make([]leaderboard.Entry, len(top))
	for i, p := range top {
		entries[i] = leaderboard.Entry{
			PlayerID:   p.ID,
			Name:       p.Name,
			Level:      p.Level,
			Experience: p.Experience,
			Points:     p.Points,
			Rank:       int64(i + 1),
		}
	}
	return entries, nil
}
