package challenge

import (
	"errors"
	"testing"
	"time"

	"github.com/tightbudget/gamification-service/internal/progress"
)

var johannesburg = mustLoad("Africa/Johannesburg")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, 2*60*60)
	}
	return loc
}

func TestTemplatesShape(t *testing.T) {
	counts := make(map[Period]int)
	seen := make(map[string]bool)
	for _, tpl := range Templates() {
		if seen[tpl.ID] {
			t.Fatalf("duplicate template %s", tpl.ID)
		}
		seen[tpl.ID] = true
		counts[tpl.Period]++
		if _, ok := progress.RuleFor(tpl.Action); !ok {
			t.Errorf("%s tracks unknown action %s", tpl.ID, tpl.Action)
		}
	}
	for _, p := range Periods {
		if counts[p] != 6 {
			t.Errorf("expected 6 %s templates, got %d", p, counts[p])
		}
	}
}

func TestWindowFor(t *testing.T) {
	// Friday 16 October 2026, 23:30 UTC is already Saturday in Johannesburg.
	now := time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC)

	daily := WindowFor(PeriodDaily, now, johannesburg)
	if daily.Key != "2026-10-17" {
		t.Fatalf("daily key = %s", daily.Key)
	}
	if !daily.End.Equal(daily.Start.AddDate(0, 0, 1)) {
		t.Fatalf("daily window not one day: %v - %v", daily.Start, daily.End)
	}

	weekly := WindowFor(PeriodWeekly, now, johannesburg)
	if weekly.Key != "2026-W42" {
		t.Fatalf("weekly key = %s", weekly.Key)
	}
	if weekly.Start.Weekday() != time.Monday || weekly.Start.Day() != 12 {
		t.Fatalf("weekly start = %v", weekly.Start)
	}

	monthly := WindowFor(PeriodMonthly, now, johannesburg)
	if monthly.Key != "2026-10" || monthly.End.Month() != time.November {
		t.Fatalf("monthly window = %+v", monthly)
	}
}

func TestWindowFor_SundayBelongsToPreviousWeek(t *testing.T) {
	sunday := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	w := WindowFor(PeriodWeekly, sunday, time.UTC)
	if w.Start.Day() != 12 || w.Key != "2026-W42" {
		t.Fatalf("unexpected window for Sunday: %+v", w)
	}
}

func TestSelect_Deterministic(t *testing.T) {
	a := Select("user-1", PeriodDaily, "2026-10-16")
	b := Select("user-1", PeriodDaily, "2026-10-16")
	if len(a) != 3 {
		t.Fatalf("expected 3 daily challenges, got %d", len(a))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("selection not deterministic: %v vs %v", a[i].ID, b[i].ID)
		}
	}

	seen := make(map[string]bool)
	for _, tpl := range a {
		if seen[tpl.ID] {
			t.Fatalf("duplicate template selected: %s", tpl.ID)
		}
		seen[tpl.ID] = true
		if tpl.Period != PeriodDaily {
			t.Fatalf("selected %s from wrong period", tpl.ID)
		}
	}

	if got := len(Select("user-1", PeriodWeekly, "2026-W42")); got != 2 {
		t.Fatalf("expected 2 weekly challenges, got %d", got)
	}
}

func TestRefresh_MaterializesCurrentPeriods(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	got := Refresh(nil, "user-1", now, time.UTC)
	if len(got) != 7 {
		t.Fatalf("expected 7 instances, got %d", len(got))
	}
	if got[0].Period != string(PeriodDaily) || got[len(got)-1].Period != string(PeriodMonthly) {
		t.Fatalf("instances not ordered by period: %+v", got)
	}

	again := Refresh(got, "user-1", now.Add(time.Hour), time.UTC)
	if len(again) != 7 {
		t.Fatalf("refresh within the same periods should be stable, got %d", len(again))
	}
}

func TestRefresh_ExpiryKeepsUnclaimedCompletions(t *testing.T) {
	yesterday := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	instances := Refresh(nil, "user-1", yesterday, time.UTC)

	var daily []int
	for i, c := range instances {
		if c.Period == string(PeriodDaily) {
			daily = append(daily, i)
		}
	}
	instances[daily[0]].Completed = true
	instances[daily[1]].Completed = true
	instances[daily[1]].Claimed = true
	keptID := instances[daily[0]].ID
	droppedID := instances[daily[1]].ID

	today := yesterday.AddDate(0, 0, 1)
	got := Refresh(instances, "user-1", today, time.UTC)

	var hasKept, hasDropped bool
	for _, c := range got {
		hasKept = hasKept || c.ID == keptID
		hasDropped = hasDropped || c.ID == droppedID
	}
	if !hasKept {
		t.Fatal("completed unclaimed challenge should survive expiry")
	}
	if hasDropped {
		t.Fatal("claimed expired challenge should be dropped")
	}
}

func TestApply(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	w := WindowFor(PeriodDaily, now, time.UTC)
	tpl, _ := Lookup("daily_log_3")
	instances := []progress.ChallengeInstance{NewInstance(tpl, w)}

	if done := Apply(instances, progress.ActionAddReceipt, 5, now); len(done) != 0 {
		t.Fatal("unrelated action should not progress")
	}
	if done := Apply(instances, progress.ActionAddTransaction, 2, now); len(done) != 0 {
		t.Fatal("should not complete below target")
	}
	if Percent(instances[0]) != 66 {
		t.Fatalf("percent = %d", Percent(instances[0]))
	}

	done := Apply(instances, progress.ActionAddTransaction, 5, now)
	if len(done) != 1 || !instances[0].Completed || instances[0].Progress != 3 {
		t.Fatalf("expected completion capped at target, got %+v", instances[0])
	}
	if instances[0].CompletedAt == nil {
		t.Fatal("completed_at not set")
	}

	if again := Apply(instances, progress.ActionAddTransaction, 1, now); len(again) != 0 {
		t.Fatal("completed challenge must not complete twice")
	}
}

func TestApply_IgnoresExpired(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	tpl, _ := Lookup("daily_checkin")
	instances := []progress.ChallengeInstance{NewInstance(tpl, WindowFor(PeriodDaily, now, time.UTC))}

	if done := Apply(instances, progress.ActionDailyLogin, 1, now.AddDate(0, 0, 1)); len(done) != 0 {
		t.Fatal("expired challenge should not progress")
	}
}

func TestClaim(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	tpl, _ := Lookup("daily_checkin")
	instances := []progress.ChallengeInstance{NewInstance(tpl, WindowFor(PeriodDaily, now, time.UTC))}
	id := instances[0].ID

	if _, _, err := Claim(instances, "missing", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := Claim(instances, id, now); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted, got %v", err)
	}

	Apply(instances, progress.ActionDailyLogin, 1, now)
	c, claimed, err := Claim(instances, id, now)
	if err != nil || !claimed || !c.Claimed {
		t.Fatalf("first claim = %+v, %v, %v", c, claimed, err)
	}

	_, claimed, err = Claim(instances, id, now)
	if err != nil || claimed {
		t.Fatalf("second claim should be a no-op, got claimed=%v err=%v", claimed, err)
	}
}
