package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/playperu/questboard/internal/questboard"
)

// AllPlayers is the subscription key of the admin feed, which receives
// every player's events.
const AllPlayers = "*"

// Broker is an in-process pub/sub for game-client events, keyed by player ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the given player.
func (b *Broker) Subscribe(playerID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[playerID] == nil {
		b.subs[playerID] = make(map[chan []byte]struct{})
	}
	b.subs[playerID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the player's subscribers.
func (b *Broker) Unsubscribe(playerID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[playerID], ch)
	if len(b.subs[playerID]) == 0 {
		delete(b.subs, playerID)
	}
	b.mu.Unlock()
}

// Publish sends an event to the player's subscribers and to the
// AllPlayers feed. Events for a legacy all-players target reach every
// subscriber.
func (b *Broker) Publish(playerID string, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if questboard.IsAllPlayers(playerID) {
		for _, subs := range b.subs {
			send(subs, data)
		}
		return
	}
	send(b.subs[playerID], data)
	send(b.subs[AllPlayers], data)
}

func send(subs map[chan []byte]struct{}, data []byte) {
	for ch := range subs {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
}

func (b *Broker) Notify(_ context.Context, e Event) {
	b.Publish(e.PlayerID, e)
}
