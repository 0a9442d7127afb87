package pubsub

import "fmt"

// Topic names used across TightBudget services.
const (
	TopicGamificationEvents = "gamification.events"
	TopicPointsAwarded      = "gamification.points"
)

// UserChannel returns the per-user channel for a topic, e.g. "gamification.events:user_123".
func UserChannel(topic, userID string) string {
	return fmt.Sprintf("%s:%s", topic, userID)
}
