package gamification

import (
	"context"
	"time"

	"github.com/tightbudget/gamification-service/internal/achievement"
	"github.com/tightbudget/gamification-service/internal/challenge"
	"github.com/tightbudget/gamification-service/internal/milestone"
	"github.com/tightbudget/gamification-service/internal/progress"
	"github.com/tightbudget/gamification-service/shared/events"
)

// Point ledger sources other than actions.
const (
	SourceStreakBonus = "streak_bonus"
	SourceAchievement = "achievement"
	SourceChallenge   = "challenge"
	SourceMilestone   = "milestone"
)

const (
	maxActionCount     = 100
	maxDisplayNameLen  = 40
	defaultHistorySize = 20
	maxHistorySize     = 100
)

// PointEvent is one row of a user's point ledger.
type PointEvent struct {
	ID        string    `json:"id" firestore:"id"`
	UserID    string    `json:"user_id" firestore:"user_id"`
	Source    string    `json:"source" firestore:"source"`
	RefID     string    `json:"ref_id,omitempty" firestore:"ref_id"`
	Points    int       `json:"points" firestore:"points"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
}

// Cursor positions a point history page after the given event.
type Cursor struct {
	CreatedAt time.Time
	EventID   string
}

// MutateFunc changes a progress record inside a transaction and returns the ledger rows to
// append with it. It may run more than once when the store retries a transaction.
type MutateFunc func(p *progress.UserProgress) ([]PointEvent, error)

// Repository persists one progress document per user.
type Repository interface {
	// Get returns the stored progress, or zero progress if the user has none.
	Get(ctx context.Context, userID string) (progress.UserProgress, error)
	// Update applies fn to the current record and stores the result atomically.
	Update(ctx context.Context, userID string, now time.Time, fn MutateFunc) (progress.UserProgress, error)
	ListPointEvents(ctx context.Context, userID string, limit int, after *Cursor) ([]PointEvent, error)
	// ListTop and the Count queries skip records last active before a non-zero activeSince.
	ListTop(ctx context.Context, field string, limit int, activeSince time.Time) ([]progress.UserProgress, error)
	CountAbove(ctx context.Context, field string, score int, activeSince time.Time) (int, error)
	CountTiedBefore(ctx context.Context, field string, score int, userID string, activeSince time.Time) (int, error)
	CountUsers(ctx context.Context) (int, error)
}

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers for ledger rows and celebrations.
type IDGenerator interface {
	NewID() string
}

// Recorder receives counters for award outcomes.
type Recorder interface {
	PointsAwarded(source string, points int)
	AchievementUnlocked(id string)
	LevelUp(level int)
	ChallengeCompleted(period string)
	RewardClaimed(kind string)
}

// ActionInput is a request to record user activity.
type ActionInput struct {
	Action string
	Count  int
	RefID  string
}

// StreakSummary is the streak as the client should display it.
type StreakSummary struct {
	Current        int                  `json:"current"`
	Longest        int                  `json:"longest"`
	Effective      int                  `json:"effective"`
	State          progress.StreakState `json:"state"`
	LastActivityAt *time.Time           `json:"last_activity_at,omitempty"`
}

// Counters mirrors the activity counters on the progress record.
type Counters struct {
	TransactionsLogged  int `json:"transactions_logged"`
	ReceiptsAttached    int `json:"receipts_attached"`
	BudgetsCreated      int `json:"budgets_created"`
	BudgetsMet          int `json:"budgets_met"`
	GoalsCreated        int `json:"goals_created"`
	GoalsReached        int `json:"goals_reached"`
	CategoriesAdded     int `json:"categories_added"`
	ChallengesCompleted int `json:"challenges_completed"`
	DaysActive          int `json:"days_active"`
}

// Summary is the profile header returned by GetProgress.
type Summary struct {
	UserID            string               `json:"user_id"`
	DisplayName       string               `json:"display_name"`
	TotalPoints       int                  `json:"total_points"`
	Level             progress.LevelStatus `json:"level"`
	Streak            StreakSummary        `json:"streak"`
	Counters          Counters             `json:"counters"`
	Achievements      achievement.Summary  `json:"achievements"`
	ClaimableRewards  int                  `json:"claimable_rewards"`
	MilestonesReached int                  `json:"milestones_reached"`
	UpdatedAt         time.Time            `json:"updated_at,omitempty"`
}

// ChallengeView decorates a challenge instance with its template and state.
type ChallengeView struct {
	progress.ChallengeInstance
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Percent     int    `json:"percent"`
	Expired     bool   `json:"expired"`
	Claimable   bool   `json:"claimable"`
}

// AwardResult reports everything one recorded action changed.
type AwardResult struct {
	Action              progress.Action            `json:"action"`
	Requested           int                        `json:"requested"`
	Rewarded            int                        `json:"rewarded"`
	PointsAwarded       int                        `json:"points_awarded"`
	TotalPoints         int                        `json:"total_points"`
	LevelBefore         int                        `json:"level_before"`
	LevelAfter          int                        `json:"level_after"`
	StreakChange        progress.StreakChange      `json:"streak_change"`
	CurrentStreak       int                        `json:"current_streak"`
	Unlocked            []achievement.Achievement  `json:"unlocked_achievements"`
	CompletedChallenges []ChallengeView            `json:"completed_challenges"`
	ReachedMilestones   []milestone.Milestone      `json:"reached_milestones"`
	Celebrations        []events.GamificationEvent `json:"celebrations"`
}

// ClaimResult reports a challenge or milestone claim.
type ClaimResult struct {
	ID             string                     `json:"id"`
	RewardPoints   int                        `json:"reward_points"`
	AlreadyClaimed bool                       `json:"already_claimed"`
	PointsAwarded  int                        `json:"points_awarded"`
	TotalPoints    int                        `json:"total_points"`
	LevelBefore    int                        `json:"level_before"`
	LevelAfter     int                        `json:"level_after"`
	Unlocked       []achievement.Achievement  `json:"unlocked_achievements"`
	Celebrations   []events.GamificationEvent `json:"celebrations"`
}

// AchievementList is every achievement with the user's state.
type AchievementList struct {
	Items   []achievement.Status `json:"items"`
	Summary achievement.Summary  `json:"summary"`
}

// PointHistory is one page of the point ledger.
type PointHistory struct {
	Items         []PointEvent `json:"items"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

func newChallengeView(c progress.ChallengeInstance, now time.Time) ChallengeView {
	view := ChallengeView{
		ChallengeInstance: c,
		Percent:           challenge.Percent(c),
		Expired:           challenge.Expired(c, now),
		Claimable:         c.Completed && !c.Claimed,
	}
	if t, ok := challenge.Lookup(c.TemplateID); ok {
		view.Title = t.Title
		view.Description = t.Description
		view.Icon = t.Icon
	}
	return view
}
