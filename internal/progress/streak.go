package progress

import "time"

const dayLayout = "2006-01-02"

// StreakState summarizes a streak relative to "now".
type StreakState string

const (
	StreakNone   StreakState = "none"
	StreakActive StreakState = "active"
	StreakAtRisk StreakState = "at_risk"
	StreakBroken StreakState = "broken"
)

// StreakChange describes what RecordActivity did to the streak.
type StreakChange string

const (
	StreakStarted   StreakChange = "started"
	StreakExtended  StreakChange = "extended"
	StreakUnchanged StreakChange = "unchanged"
	StreakReset     StreakChange = "reset"
)

// DayKey formats t as a calendar day in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of calendar days from a to b in loc (negative when b is
// earlier). DST transitions do not skew the result.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// RecordActivity updates the streak counters for activity at the given instant.
func (p *UserProgress) RecordActivity(at time.Time, loc *time.Location) StreakChange {
	if p.LastActivityAt.IsZero() {
		p.CurrentStreak = 1
		p.DaysActive++
		p.LastActivityAt = at
		p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)
		return StreakStarted
	}

	var change StreakChange
	switch diff := DaysBetween(p.LastActivityAt, at, loc); {
	case diff < 0:
		// Clock skew between devices; never rewind the streak.
		return StreakUnchanged
	case diff == 0:
		change = StreakUnchanged
	case diff == 1:
		p.CurrentStreak++
		p.DaysActive++
		change = StreakExtended
	default:
		p.CurrentStreak = 1
		p.DaysActive++
		change = StreakReset
	}

	if at.After(p.LastActivityAt) {
		p.LastActivityAt = at
	}
	p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)
	return change
}

// Status classifies the stored streak at now.
func (p UserProgress) Status(now time.Time, loc *time.Location) StreakState {
	if p.LastActivityAt.IsZero() || p.CurrentStreak == 0 {
		return StreakNone
	}
	switch diff := DaysBetween(p.LastActivityAt, now, loc); {
	case diff <= 0:
		return StreakActive
	case diff == 1:
		return StreakAtRisk
	default:
		return StreakBroken
	}
}

// EffectiveStreak is the streak a client should display: the stored value, or 0 once broken.
func (p UserProgress) EffectiveStreak(now time.Time, loc *time.Location) int {
	if p.Status(now, loc) == StreakBroken {
		return 0
	}
	return p.CurrentStreak
}
