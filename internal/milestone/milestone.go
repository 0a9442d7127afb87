package milestone

import (
	"errors"
	"fmt"

	"github.com/tightbudget/gamification-service/internal/progress"
)

var (
	// ErrNotFound indicates an unknown milestone id.
	ErrNotFound = errors.New("milestone not found")
	// ErrNotReached indicates a claim on a milestone the user has not reached yet.
	ErrNotReached = errors.New("milestone not reached")
)

// Kind is the progress field a milestone is measured against.
type Kind string

const (
	KindStreak Kind = "streak"
	KindLevel  Kind = "level"
)

// Milestone is a one-off reward for reaching a streak length or level.
type Milestone struct {
	ID           string `json:"id"`
	Kind         Kind   `json:"kind"`
	Target       int    `json:"target"`
	Title        string `json:"title"`
	Badge        string `json:"badge"`
	RewardPoints int    `json:"reward_points"`
}

var catalog = []Milestone{
	{ID: "streak_3", Kind: KindStreak, Target: 3, Title: "3 Day Streak", Badge: "Spark", RewardPoints: 15},
	{ID: "streak_7", Kind: KindStreak, Target: 7, Title: "One Week Strong", Badge: "Flame", RewardPoints: 50},
	{ID: "streak_14", Kind: KindStreak, Target: 14, Title: "Two Week Habit", Badge: "Blaze", RewardPoints: 100},
	{ID: "streak_30", Kind: KindStreak, Target: 30, Title: "Monthly Master", Badge: "Inferno", RewardPoints: 250},
	{ID: "streak_60", Kind: KindStreak, Target: 60, Title: "Two Month Titan", Badge: "Wildfire", RewardPoints: 500},
	{ID: "streak_100", Kind: KindStreak, Target: 100, Title: "Century Streak", Badge: "Phoenix", RewardPoints: 1000},
	{ID: "streak_365", Kind: KindStreak, Target: 365, Title: "Year Of Discipline", Badge: "Eternal Flame", RewardPoints: 5000},

	{ID: "level_3", Kind: KindLevel, Target: 3, Title: "Reached Level 3", Badge: "Bronze Wallet", RewardPoints: 50},
	{ID: "level_5", Kind: KindLevel, Target: 5, Title: "Reached Level 5", Badge: "Silver Wallet", RewardPoints: 150},
	{ID: "level_7", Kind: KindLevel, Target: 7, Title: "Reached Level 7", Badge: "Gold Wallet", RewardPoints: 400},
	{ID: "level_10", Kind: KindLevel, Target: 10, Title: "Reached Level 10", Badge: "Diamond Wallet", RewardPoints: 1000},
}

// Status is a milestone with one user's standing.
type Status struct {
	Milestone
	Current int  `json:"current"`
	Percent int  `json:"percent"`
	Reached bool `json:"reached"`
	Claimed bool `json:"claimed"`
}

// Catalog returns every milestone in display order.
func Catalog() []Milestone {
	out := make([]Milestone, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a milestone by id.
func Lookup(id string) (Milestone, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Milestone{}, false
}

func (m Milestone) current(p progress.UserProgress) int {
	if m.Kind == KindLevel {
		return p.Level
	}
	return p.LongestStreak
}

// IsReached reports whether p satisfies the milestone.
func (m Milestone) IsReached(p progress.UserProgress) bool {
	return m.current(p) >= m.Target
}

// Reached lists every milestone p satisfies, claimed or not.
func Reached(p progress.UserProgress) []Milestone {
	var out []Milestone
	for _, m := range catalog {
		if m.IsReached(p) {
			out = append(out, m)
		}
	}
	return out
}

// NewlyReached lists milestones reached by after but not by before.
func NewlyReached(before, after progress.UserProgress) []Milestone {
	var out []Milestone
	for _, m := range catalog {
		if !m.IsReached(before) && m.IsReached(after) {
			out = append(out, m)
		}
	}
	return out
}

// Statuses returns every milestone with progress, reach and claim state.
func Statuses(p progress.UserProgress) []Status {
	out := make([]Status, 0, len(catalog))
	for _, m := range catalog {
		current := m.current(p)
		out = append(out, Status{
			Milestone: m,
			Current:   current,
			Percent:   progress.Percent(current, m.Target),
			Reached:   m.IsReached(p),
			Claimed:   p.HasClaimedMilestone(m.ID),
		})
	}
	return out
}

// Claim records the claim on p. The boolean is false when the milestone was already claimed
// and no reward should be paid.
func Claim(p *progress.UserProgress, id string) (Milestone, bool, error) {
	m, ok := Lookup(id)
	if !ok {
		return Milestone{}, false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !m.IsReached(*p) {
		return m, false, fmt.Errorf("%w: %s", ErrNotReached, id)
	}
	return m, p.ClaimMilestone(m.ID), nil
}
