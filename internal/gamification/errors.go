package gamification

import (
	"errors"

	"github.com/tightbudget/gamification-service/internal/challenge"
	"github.com/tightbudget/gamification-service/internal/leaderboard"
	"github.com/tightbudget/gamification-service/internal/milestone"
)

var (
	// ErrMissingUserID indicates the caller did not identify a user.
	ErrMissingUserID = errors.New("user id is required")
	// ErrUnknownAction indicates an action outside the point table.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidCount indicates a negative or oversized action count.
	ErrInvalidCount = errors.New("invalid action count")
	// ErrInvalidDisplayName indicates an empty or overlong display name.
	ErrInvalidDisplayName = errors.New("invalid display name")
	// ErrInvalidPageToken indicates a malformed point history cursor.
	ErrInvalidPageToken = errors.New("invalid page token")

	ErrChallengeNotFound     = challenge.ErrNotFound
	ErrChallengeNotCompleted = challenge.ErrNotCompleted
	ErrMilestoneNotFound     = milestone.ErrNotFound
	ErrMilestoneNotReached   = milestone.ErrNotReached
	ErrUnknownMetric         = leaderboard.ErrUnknownMetric
)
