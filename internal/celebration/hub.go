package celebration

import (
	"context"
	"fmt"
	"sync"

	"github.com/tightbudget/gamification-service/shared/events"
)

const defaultBuffer = 16

type subscriber struct {
	send chan []byte
}

// Hub fans messages out to subscribers in this process. Delivery is non-blocking: a
// subscriber whose buffer is full misses the message.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: defaultBuffer,
	}
}

// Subscribe registers a new subscriber for userID.
func (h *Hub) Subscribe(_ context.Context, userID string) (<-chan []byte, func(), error) {
	sub := &subscriber{send: make(chan []byte, h.buffer)}

	h.mu.Lock()
	userSubs, ok := h.subs[userID]
	if !ok {
		userSubs = make(map[*subscriber]struct{})
		h.subs[userID] = userSubs
	}
	userSubs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], sub)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			close(sub.send)
		})
	}
	return sub.send, cancel, nil
}

// Subscribers returns the number of live subscribers for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) Publish(_ context.Context, evt events.GamificationEvent) error {
	data, err := encodeCelebration(evt)
	if err != nil {
		return fmt.Errorf("failed to encode celebration: %w", err)
	}
	h.deliver(evt.UserID, data)
	return nil
}

func (h *Hub) PublishPoints(_ context.Context, evt events.PointsAwarded) error {
	data, err := encodePoints(evt)
	if err != nil {
		return fmt.Errorf("failed to encode points event: %w", err)
	}
	h.deliver(evt.UserID, data)
	return nil
}

func (h *Hub) deliver(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[userID] {
		select {
		case sub.send <- data:
		default:
			// Drop message if channel full
		}
	}
}
