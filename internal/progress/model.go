package progress

import (
	"slices"
	"time"
)

// UserProgress is the per-user gamification record persisted in the document store.
//
// TotalPoints, LongestStreak and UnlockedAchievements only ever grow; the mutation helpers in
// this package are the only code that touches them.
type UserProgress struct {
	UserID      string `json:"user_id" firestore:"user_id"`
	DisplayName string `json:"display_name" firestore:"display_name"`

	TotalPoints int `json:"total_points" firestore:"total_points"`
	Level       int `json:"level" firestore:"level"`

	CurrentStreak  int       `json:"current_streak" firestore:"current_streak"`
	LongestStreak  int       `json:"longest_streak" firestore:"longest_streak"`
	LastActivityAt time.Time `json:"last_activity_at" firestore:"last_activity_at"`
	DaysActive     int       `json:"days_active" firestore:"days_active"`

	TransactionsLogged  int `json:"transactions_logged" firestore:"transactions_logged"`
	ReceiptsAttached    int `json:"receipts_attached" firestore:"receipts_attached"`
	BudgetsCreated      int `json:"budgets_created" firestore:"budgets_created"`
	BudgetsMet          int `json:"budgets_met" firestore:"budgets_met"`
	GoalsCreated        int `json:"goals_created" firestore:"goals_created"`
	GoalsReached        int `json:"goals_reached" firestore:"goals_reached"`
	CategoriesAdded     int `json:"categories_added" firestore:"categories_added"`
	ChallengesCompleted int `json:"challenges_completed" firestore:"challenges_completed"`

	UnlockedAchievements []string `json:"unlocked_achievements" firestore:"unlocked_achievements"`
	AchievementsCount    int      `json:"achievements_count" firestore:"achievements_count"`
	ClaimedMilestones    []string `json:"claimed_milestones" firestore:"claimed_milestones"`

	Challenges []ChallengeInstance `json:"challenges" firestore:"challenges"`

	// Per-day action counters backing the daily point caps.
	DailyCounts    map[string]int `json:"daily_counts" firestore:"daily_counts"`
	DailyCountsDay string         `json:"daily_counts_day" firestore:"daily_counts_day"`

	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}

// ChallengeInstance is one user's copy of a challenge template for a single period.
type ChallengeInstance struct {
	ID           string     `json:"id" firestore:"id"`
	TemplateID   string     `json:"template_id" firestore:"template_id"`
	Period       string     `json:"period" firestore:"period"`
	PeriodKey    string     `json:"period_key" firestore:"period_key"`
	Action       Action     `json:"action" firestore:"action"`
	StartsAt     time.Time  `json:"starts_at" firestore:"starts_at"`
	EndsAt       time.Time  `json:"ends_at" firestore:"ends_at"`
	Progress     int        `json:"progress" firestore:"progress"`
	Target       int        `json:"target" firestore:"target"`
	RewardPoints int        `json:"reward_points" firestore:"reward_points"`
	Completed    bool       `json:"completed" firestore:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" firestore:"completed_at"`
	Claimed      bool       `json:"claimed" firestore:"claimed"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty" firestore:"claimed_at"`
}

// New returns the zero-progress record used when a user has no stored document.
func New(userID string, now time.Time) UserProgress {
	return UserProgress{
		UserID:    userID,
		Level:     LevelFor(0).Number,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.UnlockedAchievements = slices.Clone(p.UnlockedAchievements)
	out.ClaimedMilestones = slices.Clone(p.ClaimedMilestones)
	if p.Challenges != nil {
		out.Challenges = make([]ChallengeInstance, len(p.Challenges))
		for i, c := range p.Challenges {
			out.Challenges[i] = c.clone()
		}
	}
	if p.DailyCounts != nil {
		out.DailyCounts = make(map[string]int, len(p.DailyCounts))
		for k, v := range p.DailyCounts {
			out.DailyCounts[k] = v
		}
	}
	return out
}

func (c ChallengeInstance) clone() ChallengeInstance {
	out := c
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	if c.ClaimedAt != nil {
		t := *c.ClaimedAt
		out.ClaimedAt = &t
	}
	return out
}

// AddPoints credits points and recomputes the level. Non-positive amounts are ignored so the
// total can never decrease. It returns the level before and after the credit.
func (p *UserProgress) AddPoints(points int) (before, after int) {
	before = LevelFor(p.TotalPoints).Number
	if points > 0 {
		p.TotalPoints += points
	}
	p.Level = LevelFor(p.TotalPoints).Number
	return before, p.Level
}

// HasAchievement reports whether the achievement id is already unlocked.
func (p UserProgress) HasAchievement(id string) bool {
	return slices.Contains(p.UnlockedAchievements, id)
}

// UnlockAchievement records id as unlocked; it returns false if it already was.
func (p *UserProgress) UnlockAchievement(id string) bool {
	if p.HasAchievement(id) {
		return false
	}
	p.UnlockedAchievements = append(p.UnlockedAchievements, id)
	p.AchievementsCount = len(p.UnlockedAchievements)
	return true
}

// HasClaimedMilestone reports whether the milestone reward was already claimed.
func (p UserProgress) HasClaimedMilestone(id string) bool {
	return slices.Contains(p.ClaimedMilestones, id)
}

// ClaimMilestone records id as claimed; it returns false if it already was.
func (p *UserProgress) ClaimMilestone(id string) bool {
	if p.HasClaimedMilestone(id) {
		return false
	}
	p.ClaimedMilestones = append(p.ClaimedMilestones, id)
	return true
}

// Counter returns the activity counter an action increments.
func (p UserProgress) Counter(action Action) int {
	switch action {
	case ActionAddTransaction:
		return p.TransactionsLogged
	case ActionAddReceipt:
		return p.ReceiptsAttached
	case ActionCreateBudget:
		return p.BudgetsCreated
	case ActionStayUnderBudget:
		return p.BudgetsMet
	case ActionCreateGoal:
		return p.GoalsCreated
	case ActionReachGoal:
		return p.GoalsReached
	case ActionAddCategory:
		return p.CategoriesAdded
	default:
		return 0
	}
}

// IncrementCounter bumps the activity counter tied to action by n.
func (p *UserProgress) IncrementCounter(action Action, n int) {
	if n <= 0 {
		return
	}
	switch action {
	case ActionAddTransaction:
		p.TransactionsLogged += n
	case ActionAddReceipt:
		p.ReceiptsAttached += n
	case ActionCreateBudget:
		p.BudgetsCreated += n
	case ActionStayUnderBudget:
		p.BudgetsMet += n
	case ActionCreateGoal:
		p.GoalsCreated += n
	case ActionReachGoal:
		p.GoalsReached += n
	case ActionAddCategory:
		p.CategoriesAdded += n
	}
}

// ResetDailyCounts clears the cap counters when dayKey differs from the stored day.
func (p *UserProgress) ResetDailyCounts(dayKey string) {
	if p.DailyCountsDay == dayKey && p.DailyCounts != nil {
		return
	}
	p.DailyCountsDay = dayKey
	p.DailyCounts = make(map[string]int)
}

// ConsumeDaily reserves up to requested point-earning repetitions of action for the current
// day and returns how many fit under the action's daily cap.
func (p *UserProgress) ConsumeDaily(action Action, requested int) int {
	if requested <= 0 {
		return 0
	}
	if p.DailyCounts == nil {
		p.DailyCounts = make(map[string]int)
	}
	used := p.DailyCounts[string(action)]
	granted := CappedCount(action, used, requested)
	p.DailyCounts[string(action)] = used + granted
	return granted
}
