package events

import "time"

// GamificationEvent is the wire payload published whenever a user's progress produces a
// celebration (level up, unlocked achievement, completed challenge, reached milestone, streak).
type GamificationEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Icon       string    `json:"icon"`
	Points     int       `json:"points,omitempty"`
	RefID      string    `json:"refId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PointsAwarded is the ledger-shaped event emitted after every successful award.
type PointsAwarded struct {
	UserID      string    `json:"userId"`
	Source      string    `json:"source"`
	Points      int       `json:"points"`
	TotalPoints int       `json:"totalPoints"`
	Level       int       `json:"level"`
	AwardedAt   time.Time `json:"awardedAt"`
}
