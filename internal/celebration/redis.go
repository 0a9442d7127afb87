package celebration

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/tightbudget/gamification-service/shared/events"
	"github.com/tightbudget/gamification-service/shared/pubsub"
)

// RedisBroker publishes and subscribes through Redis channels so every instance behind the
// load balancer can serve a user's stream.
type RedisBroker struct {
	client *redis.Client
	buffer int
}

// NewRedisBroker wraps an existing client.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client, buffer: defaultBuffer}
}

func (b *RedisBroker) Publish(ctx context.Context, evt events.GamificationEvent) error {
	payload, err := encodeCelebration(evt)
	if err != nil {
		return fmt.Errorf("failed to encode celebration: %w", err)
	}
	channel := pubsub.UserChannel(pubsub.TopicGamificationEvents, evt.UserID)
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBroker) PublishPoints(ctx context.Context, evt events.PointsAwarded) error {
	payload, err := encodePoints(evt)
	if err != nil {
		return fmt.Errorf("failed to encode points event: %w", err)
	}
	channel := pubsub.UserChannel(pubsub.TopicPointsAwarded, evt.UserID)
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe listens on both of the user's channels.
func (b *RedisBroker) Subscribe(ctx context.Context, userID string) (<-chan []byte, func(), error) {
	ps := b.client.Subscribe(ctx,
		pubsub.UserChannel(pubsub.TopicGamificationEvents, userID),
		pubsub.UserChannel(pubsub.TopicPointsAwarded, userID),
	)

	// Wait for confirmation that subscription is created
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan []byte, b.buffer)
	done := make(chan struct{})
	ch := ps.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
	return out, cancel, nil
}
