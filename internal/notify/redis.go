package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	publishTimeout = 2 * time.Second
	queueSize      = 256
)

// RedisPublisher forwards events to a Redis pub/sub channel so game servers
// running in other processes can react to them. Events are published one at
// a time in the order they were raised.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
	queue   *Queue
}

func NewRedisPublisher(rdb *redis.Client, channel string, logger *slog.Logger) *RedisPublisher {
	p := &RedisPublisher{rdb: rdb, channel: channel, logger: logger}
	p.queue = NewQueue(queueSize, logger, p.publish)
	return p
}

// Notify queues e for publishing.
func (p *RedisPublisher) Notify(ctx context.Context, e Event) {
	p.queue.Notify(ctx, e)
}

func (p *RedisPublisher) publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("encoding event", "type", e.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Warn("publishing event", "type", e.Type, "player_id", e.PlayerID, "error", err)
	}
}

// Close publishes what is still queued and stops the worker.
func (p *RedisPublisher) Close() error {
	return p.queue.Close()
}
