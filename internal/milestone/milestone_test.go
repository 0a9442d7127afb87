package milestone

import (
	"errors"
	"testing"

	"github.com/tightbudget/gamification-service/internal/progress"
)

func TestCatalog(t *testing.T) {
	all := Catalog()
	if len(all) != 11 {
		t.Fatalf("expected 11 milestones, got %d", len(all))
	}
	var streaks, levels int
	for _, m := range all {
		switch m.Kind {
		case KindStreak:
			streaks++
		case KindLevel:
			levels++
			if m.Target > progress.MaxLevel() {
				t.Errorf("%s targets a level that does not exist", m.ID)
			}
		}
	}
	if streaks != 7 || levels != 4 {
		t.Fatalf("unexpected split: %d streak, %d level", streaks, levels)
	}
}

func TestReachedUsesLongestStreak(t *testing.T) {
	p := progress.UserProgress{CurrentStreak: 0, LongestStreak: 8, Level: 1}
	got := Reached(p)
	if len(got) != 2 || got[0].ID != "streak_3" || got[1].ID != "streak_7" {
		t.Fatalf("unexpected reached milestones: %+v", got)
	}
}

func TestNewlyReached(t *testing.T) {
	before := progress.UserProgress{LongestStreak: 6, Level: 4}
	after := progress.UserProgress{LongestStreak: 7, Level: 5}
	got := NewlyReached(before, after)
	if len(got) != 2 || got[0].ID != "streak_7" || got[1].ID != "level_5" {
		t.Fatalf("unexpected newly reached: %+v", got)
	}
	if again := NewlyReached(after, after); len(again) != 0 {
		t.Fatalf("no change should reach nothing, got %+v", again)
	}
}

func TestStatuses(t *testing.T) {
	p := progress.UserProgress{LongestStreak: 7, Level: 2, ClaimedMilestones: []string{"streak_3"}}
	byID := make(map[string]Status)
	for _, s := range Statuses(p) {
		byID[s.ID] = s
	}

	if s := byID["streak_3"]; !s.Reached || !s.Claimed || s.Percent != 100 {
		t.Fatalf("streak_3 = %+v", s)
	}
	if s := byID["streak_14"]; s.Reached || s.Percent != 50 {
		t.Fatalf("streak_14 = %+v", s)
	}
	if s := byID["level_3"]; s.Reached || s.Current != 2 || s.Percent != 66 {
		t.Fatalf("level_3 = %+v", s)
	}
}

func TestClaim(t *testing.T) {
	p := progress.UserProgress{LongestStreak: 3, Level: 1}

	if _, _, err := Claim(&p, "bogus"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := Claim(&p, "streak_7"); !errors.Is(err, ErrNotReached) {
		t.Fatalf("expected ErrNotReached, got %v", err)
	}

	m, claimed, err := Claim(&p, "streak_3")
	if err != nil || !claimed || m.RewardPoints != 15 {
		t.Fatalf("first claim = %+v, %v, %v", m, claimed, err)
	}
	if _, claimed, err = Claim(&p, "streak_3"); err != nil || claimed {
		t.Fatalf("second claim should be a no-op, got %v, %v", claimed, err)
	}
	if len(p.ClaimedMilestones) != 1 {
		t.Fatalf("claimed list grew twice: %v", p.ClaimedMilestones)
	}
}
