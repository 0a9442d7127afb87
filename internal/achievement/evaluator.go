package achievement

import "github.com/tightbudget/gamification-service/internal/progress"

// Status pairs a catalog row with one user's standing.
type Status struct {
	Achievement
	Unlocked bool `json:"unlocked"`
	Current  int  `json:"current"`
	Percent  int  `json:"percent"`
}

// Evaluate returns catalog rows newly satisfied by p, in catalog order.
func Evaluate(p progress.UserProgress) []Achievement {
	var out []Achievement
	for _, a := range catalog {
		if p.HasAchievement(a.ID) {
			continue
		}
		if a.Metric.Value(p) >= a.Threshold {
			out = append(out, a)
		}
	}
	return out
}

// UnlockAll unlocks every satisfied achievement and credits its reward. Rewards can push
// total_points over another threshold, so evaluation repeats until nothing new unlocks.
func UnlockAll(p *progress.UserProgress) []Achievement {
	var unlocked []Achievement
	for range len(catalog) {
		batch := Evaluate(*p)
		if len(batch) == 0 {
			break
		}
		for _, a := range batch {
			if p.UnlockAchievement(a.ID) {
				p.AddPoints(a.RewardPoints)
				unlocked = append(unlocked, a)
			}
		}
	}
	return unlocked
}

// Statuses returns every catalog row with unlock state and progress for p.
func Statuses(p progress.UserProgress) []Status {
	out := make([]Status, 0, len(catalog))
	for _, a := range catalog {
		current := a.Metric.Value(p)
		unlocked := p.HasAchievement(a.ID)
		percent := progress.Percent(current, a.Threshold)
		if unlocked {
			percent = 100
		}
		out = append(out, Status{Achievement: a, Unlocked: unlocked, Current: current, Percent: percent})
	}
	return out
}

// Summary counts unlocked achievements per tier.
type Summary struct {
	Unlocked int          `json:"unlocked"`
	Total    int          `json:"total"`
	ByTier   map[Tier]int `json:"by_tier"`
}

// Summarize aggregates the statuses for a profile header.
func Summarize(statuses []Status) Summary {
	s := Summary{Total: len(statuses), ByTier: make(map[Tier]int)}
	for _, st := range statuses {
		if st.Unlocked {
			s.Unlocked++
			s.ByTier[st.Tier]++
		}
	}
	return s
}
