package challenge

import (
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"time"

	"github.com/tightbudget/gamification-service/internal/progress"
)

var (
	// ErrNotFound indicates the challenge instance does not exist for the user.
	ErrNotFound = errors.New("challenge not found")
	// ErrNotCompleted indicates a claim on a challenge whose target is not met.
	ErrNotCompleted = errors.New("challenge not completed")
)

// Window is the half-open time range [Start, End) of a period.
type Window struct {
	Key   string
	Start time.Time
	End   time.Time
}

// WindowFor returns the period window containing now in loc. Weeks start on Monday and use
// ISO week numbering for their key.
func WindowFor(period Period, now time.Time, loc *time.Location) Window {
	now = now.In(loc)
	day := truncateToDay(now)

	switch period {
	case PeriodWeekly:
		start := weekStart(day)
		year, week := start.ISOWeek()
		return Window{Key: fmt.Sprintf("%d-W%02d", year, week), Start: start, End: start.AddDate(0, 0, 7)}
	case PeriodMonthly:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
		return Window{Key: start.Format("2006-01"), Start: start, End: start.AddDate(0, 1, 0)}
	default:
		return Window{Key: day.Format("2006-01-02"), Start: day, End: day.AddDate(0, 0, 1)}
	}
}

// Select deterministically picks the active templates of a period for a user. Every device
// computing the same user and period key gets the same set.
func Select(userID string, period Period, key string) []Template {
	pool := templatesFor(period)
	n := min(activePerPeriod[period], len(pool))
	if n == 0 {
		return nil
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(userID + "|" + key))
	offset := int(h.Sum32() % uint32(len(pool)))

	out := make([]Template, 0, n)
	for i := range n {
		out = append(out, pool[(offset+i)%len(pool)])
	}
	return out
}

// InstanceID is the stable identifier of a template within one period.
func InstanceID(templateID, periodKey string) string {
	return templateID + "-" + periodKey
}

// NewInstance materializes a template for a window.
func NewInstance(t Template, w Window) progress.ChallengeInstance {
	return progress.ChallengeInstance{
		ID:           InstanceID(t.ID, w.Key),
		TemplateID:   t.ID,
		Period:       string(t.Period),
		PeriodKey:    w.Key,
		Action:       t.Action,
		StartsAt:     w.Start,
		EndsAt:       w.End,
		Target:       t.Target,
		RewardPoints: t.RewardPoints,
	}
}

// Expired reports whether the instance window has closed at now.
func Expired(c progress.ChallengeInstance, now time.Time) bool {
	return !now.Before(c.EndsAt)
}

// Refresh drops closed instances and materializes the current periods' selections. Completed
// but unclaimed instances survive expiry so their reward can still be claimed.
func Refresh(instances []progress.ChallengeInstance, userID string, now time.Time, loc *time.Location) []progress.ChallengeInstance {
	kept := make([]progress.ChallengeInstance, 0, len(instances)+7)
	for _, c := range instances {
		if !Expired(c, now) || (c.Completed && !c.Claimed) {
			kept = append(kept, c)
		}
	}

	for _, period := range Periods {
		w := WindowFor(period, now, loc)
		for _, t := range Select(userID, period, w.Key) {
			id := InstanceID(t.ID, w.Key)
			if !slices.ContainsFunc(kept, func(c progress.ChallengeInstance) bool { return c.ID == id }) {
				kept = append(kept, NewInstance(t, w))
			}
		}
	}

	slices.SortStableFunc(kept, func(a, b progress.ChallengeInstance) int {
		if d := periodRank(a.Period) - periodRank(b.Period); d != 0 {
			return d
		}
		return a.StartsAt.Compare(b.StartsAt)
	})
	return kept
}

// Apply advances every open instance tracking action by count and returns the instances that
// completed as a result.
func Apply(instances []progress.ChallengeInstance, action progress.Action, count int, now time.Time) []progress.ChallengeInstance {
	if count <= 0 {
		return nil
	}

	var completed []progress.ChallengeInstance
	for i := range instances {
		c := &instances[i]
		if c.Action != action || c.Completed || Expired(*c, now) || now.Before(c.StartsAt) {
			continue
		}
		c.Progress = min(c.Progress+count, c.Target)
		if c.Progress >= c.Target {
			at := now
			c.Completed = true
			c.CompletedAt = &at
			completed = append(completed, *c)
		}
	}
	return completed
}

// Claim marks a completed instance as claimed. The boolean is false when it was already
// claimed, in which case no reward should be paid.
func Claim(instances []progress.ChallengeInstance, id string, now time.Time) (progress.ChallengeInstance, bool, error) {
	idx := slices.IndexFunc(instances, func(c progress.ChallengeInstance) bool { return c.ID == id })
	if idx < 0 {
		return progress.ChallengeInstance{}, false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	c := &instances[idx]
	if !c.Completed {
		return *c, false, fmt.Errorf("%w: %s", ErrNotCompleted, id)
	}
	if c.Claimed {
		return *c, false, nil
	}

	at := now
	c.Claimed = true
	c.ClaimedAt = &at
	return *c, true, nil
}

// Percent returns instance progress as a clamped percentage.
func Percent(c progress.ChallengeInstance) int {
	return progress.Percent(c.Progress, c.Target)
}

func periodRank(p string) int {
	return slices.Index(Periods, Period(p))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// weekStart returns the Monday of the week containing the given date.
func weekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday becomes 7
	}
	return truncateToDay(t.AddDate(0, 0, -(weekday - 1)))
}
