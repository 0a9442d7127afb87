package celebration

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tightbudget/gamification-service/shared/events"
)

// Message types carried on a user's stream.
const (
	MessageCelebration = "celebration"
	MessagePoints      = "points"
)

// Message is the envelope written to subscribers.
type Message struct {
	Type        string                    `json:"type"`
	Celebration *events.GamificationEvent `json:"celebration,omitempty"`
	Points      *events.PointsAwarded     `json:"points,omitempty"`
}

// Publisher delivers events to a user's connected devices.
type Publisher interface {
	Publish(ctx context.Context, evt events.GamificationEvent) error
	PublishPoints(ctx context.Context, evt events.PointsAwarded) error
}

// Subscriber streams encoded Messages for one user until cancel is called.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (msgs <-chan []byte, cancel func(), err error)
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt events.GamificationEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) PublishPoints(ctx context.Context, evt events.PointsAwarded) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishPoints(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func encodeCelebration(evt events.GamificationEvent) ([]byte, error) {
	return json.Marshal(Message{Type: MessageCelebration, Celebration: &evt})
}

func encodePoints(evt events.PointsAwarded) ([]byte, error) {
	return json.Marshal(Message{Type: MessagePoints, Points: &evt})
}
