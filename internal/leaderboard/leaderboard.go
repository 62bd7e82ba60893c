// Package leaderboard mirrors player rankings into a Redis sorted set.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/questboard/internal/notify"
	"github.com/playperu/questboard/internal/questboard"
)

const (
	rankingKey = "questboard:leaderboard"
	statsKey   = "questboard:leaderboard:stats"

	updateTimeout = 2 * time.Second
	queueSize     = 256
)

// Entry is one ranked player.
type Entry struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
	Points     int    `json:"points"`
	Rank       int64  `json:"rank"`
}

// Board keeps the sorted set in step with player stats events. Events are
// applied one at a time in arrival order so a stale update never
// overwrites a newer one.
type Board struct {
	rdb    *redis.Client
	logger *slog.Logger
	queue  *notify.Queue
}

func New(rdb *redis.Client, logger *slog.Logger) *Board {
	b := &Board{rdb: rdb, logger: logger}
	b.queue = notify.NewQueue(queueSize, logger, b.apply)
	return b
}

// score orders by level, then experience. Experience stays below 1000
// at every level.
func score(level, experience int) float64 {
	return float64(level*1000 + experience)
}

// Set writes one player's stats.
func (b *Board) Set(ctx context.Context, playerID string, s notify.Stats) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := b.rdb.TxPipeline()
	pipe.ZAdd(ctx, rankingKey, redis.Z{Score: score(s.Level, s.Experience), Member: playerID})
	pipe.HSet(ctx, statsKey, playerID, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set player stats: %w", err)
	}
	return nil
}

// Remove drops a player from the board.
func (b *Board) Remove(ctx context.Context, playerID string) error {
	pipe := b.rdb.TxPipeline()
	pipe.ZRem(ctx, rankingKey, playerID)
	pipe.HDel(ctx, statsKey, playerID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove player: %w", err)
	}
	return nil
}

// Rebuild replaces the board with players.
func (b *Board) Rebuild(ctx context.Context, players []questboard.Player) error {
	pipe := b.rdb.TxPipeline()
	pipe.Del(ctx, rankingKey, statsKey)
	for _, p := range players {
		data, err := json.Marshal(statsOf(p))
		if err != nil {
			return err
		}
		pipe.ZAdd(ctx, rankingKey, redis.Z{Score: score(p.Level, p.Experience), Member: p.ID})
		pipe.HSet(ctx, statsKey, p.ID, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard: %w", err)
	}
	return nil
}

// Top returns the best n players, highest first.
func (b *Board) Top(ctx context.Context, n int) ([]Entry, error) {
	zs, err := b.rdb.ZRevRangeWithScores(ctx, rankingKey, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	if len(zs) == 0 {
		return []Entry{}, nil
	}

	ids := make([]string, len(zs))
	for i, z := range zs {
		ids[i] = z.Member.(string)
	}
	raw, err := b.rdb.HMGet(ctx, statsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}

	entries := make([]Entry, 0, len(ids))
	for i, id := range ids {
		e := Entry{PlayerID: id, Rank: int64(i + 1)}
		if s, ok := raw[i].(string); ok {
			var st notify.Stats
			if err := json.Unmarshal([]byte(s), &st); err == nil {
				e.Name, e.Level, e.Experience, e.Points = st.Name, st.Level, st.Experience, st.Points
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Notify queues stats and delete events.
func (b *Board) Notify(ctx context.Context, e notify.Event) {
	switch {
	case e.Type == notify.PlayerStatsUpdated && e.Stats != nil:
	case e.Type == notify.PlayerDeleted:
	default:
		return
	}
	b.queue.Notify(ctx, e)
}

func (b *Board) apply(e notify.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	var err error
	if e.Type == notify.PlayerDeleted {
		err = b.Remove(ctx, e.PlayerID)
	} else {
		err = b.Set(ctx, e.PlayerID, *e.Stats)
	}
	if err != nil {
		b.logger.Warn("updating leaderboard", "player_id", e.PlayerID, "error", err)
	}
}

// Flush waits for queued updates.
func (b *Board) Flush() {
	b.queue.Flush()
}

// Close applies queued updates and stops the worker.
func (b *Board) Close() error {
	return b.queue.Close()
}

func statsOf(p questboard.Player) notify.Stats {
	return notify.Stats{Name: p.Name, Level: p.Level, Experience: p.Experience, Points: p.Points}
}
