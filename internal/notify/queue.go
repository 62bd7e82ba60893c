package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Queue hands events to a single worker goroutine, so they are handled
// in the order they were enqueued. A full queue drops the event.
type Queue struct {
	events  chan Event
	handle  func(Event)
	logger  *slog.Logger
	pending sync.WaitGroup
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewQueue(size int, logger *slog.Logger, handle func(Event)) *Queue {
	q := &Queue{
		events: make(chan Event, size),
		handle: handle,
		logger: logger,
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for e := range q.events {
		q.handle(e)
		q.pending.Done()
	}
}

// Notify enqueues e without blocking.
func (q *Queue) Notify(_ context.Context, e Event) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}

	q.pending.Add(1)
	select {
	case q.events <- e:
	default:
		q.pending.Done()
		q.logger.Warn("event queue full, dropping event", "type", e.Type, "player_id", e.PlayerID)
	}
}

// Flush waits until every enqueued event has been handled.
func (q *Queue) Flush() {
	q.pending.Wait()
}

// Close drains the queue and stops the worker. Later events are dropped.
func (q *Queue) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()
	<-q.done
	return nil
}
