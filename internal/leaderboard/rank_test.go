package leaderboard

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tightbudget/gamification-service/internal/progress"
)

func TestRank_Competition(t *testing.T) {
	rows := []Row{
		{UserID: "c", Score: 50},
		{UserID: "a", Score: 100},
		{UserID: "d", Score: 20},
		{UserID: "b", Score: 50},
	}
	got := Rank(rows, ModeCompetition, "b")

	wantIDs := []string{"a", "b", "c", "d"}
	wantRanks := []int{1, 2, 2, 4}
	for i, e := range got {
		if e.UserID != wantIDs[i] || e.Rank != wantRanks[i] {
			t.Fatalf("entry %d = %+v, want %s rank %d", i, e, wantIDs[i], wantRanks[i])
		}
	}
	if !got[1].IsCurrentUser || got[0].IsCurrentUser {
		t.Fatal("current user flag misplaced")
	}
	if rows[0].UserID != "c" {
		t.Fatal("Rank must not reorder its input")
	}
}

func TestRank_Positional(t *testing.T) {
	rows := []Row{{UserID: "a", Score: 5}, {UserID: "b", Score: 5}, {UserID: "c", Score: 1}}
	got := Rank(rows, ModePositional, "")
	for i, e := range got {
		if e.Rank != i+1 {
			t.Fatalf("positional rank %d = %d", i, e.Rank)
		}
	}
}

func TestRank_ExtremeScoresKeepOrder(t *testing.T) {
	rows := []Row{{UserID: "low", Score: math.MinInt}, {UserID: "high", Score: math.MaxInt}, {UserID: "mid", Score: -5}}
	got := Rank(rows, ModeCompetition, "")

	wantIDs := []string{"high", "mid", "low"}
	for i, e := range got {
		if e.UserID != wantIDs[i] || e.Rank != i+1 {
			t.Fatalf("entry %d = %+v, want %s rank %d", i, e, wantIDs[i], i+1)
		}
	}
}

func TestRank_Empty(t *testing.T) {
	if got := Rank(nil, ModeCompetition, "x"); len(got) != 0 {
		t.Fatalf("expected no entries, got %v", got)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		rank, total, want int
	}{
		{1, 1, 100},
		{1, 0, 100},
		{1, 5, 100},
		{5, 5, 0},
		{3, 5, 50},
		{9, 5, 0},
	}
	for _, tt := range tests {
		if got := Percentile(tt.rank, tt.total); got != tt.want {
			t.Errorf("Percentile(%d, %d) = %d, want %d", tt.rank, tt.total, got, tt.want)
		}
	}
}

func TestParseMetric(t *testing.T) {
	if m, err := ParseMetric(" Total_Points "); err != nil || m != MetricTotalPoints {
		t.Fatalf("ParseMetric = %v, %v", m, err)
	}
	if _, err := ParseMetric("karma"); !errors.Is(err, ErrUnknownMetric) {
		t.Fatalf("expected ErrUnknownMetric, got %v", err)
	}
	if MetricAchievements.Field() != "achievements_count" {
		t.Fatalf("unexpected achievements field %s", MetricAchievements.Field())
	}
}

func TestParseMode(t *testing.T) {
	if m, _ := ParseMode(""); m != ModeCompetition {
		t.Fatalf("default mode = %s", m)
	}
	if m, _ := ParseMode("positional"); m != ModePositional {
		t.Fatalf("positional mode = %s", m)
	}
	if _, err := ParseMode("dense"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestScore_CurrentStreakIsEffective(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	p := progress.UserProgress{CurrentStreak: 12, LongestStreak: 12, LastActivityAt: now.AddDate(0, 0, -3)}

	if got := MetricCurrentStreak.Score(p, now, time.UTC); got != 0 {
		t.Fatalf("broken streak should score 0, got %d", got)
	}
	if got := MetricLongestStreak.Score(p, now, time.UTC); got != 12 {
		t.Fatalf("longest streak = %d", got)
	}
}

func TestActiveSince(t *testing.T) {
	loc := time.FixedZone("SAST", 2*60*60)
	now := time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC) // already the 17th in loc

	want := time.Date(2026, 10, 16, 0, 0, 0, 0, loc)
	if got := MetricCurrentStreak.ActiveSince(now, loc); !got.Equal(want) {
		t.Fatalf("current streak cutoff = %v, want %v", got, want)
	}
	for _, m := range []Metric{MetricTotalPoints, MetricLevel, MetricLongestStreak, MetricAchievements} {
		if got := m.ActiveSince(now, loc); !got.IsZero() {
			t.Fatalf("%s should not filter by activity, got %v", m, got)
		}
	}
}
