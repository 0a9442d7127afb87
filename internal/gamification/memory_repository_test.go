package gamification

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tightbudget/gamification-service/internal/leaderboard"
	"github.com/tightbudget/gamification-service/internal/progress"
)

func seed(t *testing.T, repo Repository, now time.Time, records ...progress.UserProgress) {
	t.Helper()
	for _, rec := range records {
		_, err := repo.Update(context.Background(), rec.UserID, now, func(p *progress.UserProgress) ([]PointEvent, error) {
			p.TotalPoints = rec.TotalPoints
			p.CurrentStreak = rec.CurrentStreak
			p.LongestStreak = max(rec.LongestStreak, rec.CurrentStreak)
			p.LastActivityAt = rec.LastActivityAt
			return nil, nil
		})
		if err != nil {
			t.Fatalf("seed %s: %v", rec.UserID, err)
		}
	}
}

func TestMemoryRepository_CurrentStreakBoardIgnoresLapsedStreaks(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	stale := now.AddDate(0, -2, 0)
	repo := NewMemoryRepository()
	seed(t, repo, now,
		progress.UserProgress{UserID: "stale0", CurrentStreak: 50, LastActivityAt: stale},
		progress.UserProgress{UserID: "stale1", CurrentStreak: 50, LastActivityAt: stale},
		progress.UserProgress{UserID: "stale2", CurrentStreak: 50, LastActivityAt: stale},
		progress.UserProgress{UserID: "active", CurrentStreak: 5, LastActivityAt: now},
	)

	boards := leaderboard.NewService(repo, leaderboard.Config{Now: func() time.Time { return now }})
	board, err := boards.Board(context.Background(), leaderboard.Query{Metric: leaderboard.MetricCurrentStreak, Limit: 3, UserID: "active"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(board.Entries) != 1 || board.Entries[0].UserID != "active" || board.Entries[0].Score != 5 {
		t.Fatalf("lapsed streaks should not be listed: %+v", board.Entries)
	}
	if board.Me == nil || board.Me.Rank != 1 || board.Percentile != 100 {
		t.Fatalf("unexpected standing: %+v percentile %d", board.Me, board.Percentile)
	}
	if board.TotalUsers != 4 {
		t.Fatalf("total users = %d", board.TotalUsers)
	}
}

func TestMemoryRepository_LapsedCallerRanksBehindLiveStreaks(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	seed(t, repo, now,
		progress.UserProgress{UserID: "gone", CurrentStreak: 30, LastActivityAt: now.AddDate(0, 0, -5)},
		progress.UserProgress{UserID: "live", CurrentStreak: 1, LastActivityAt: now.AddDate(0, 0, -1)},
	)

	boards := leaderboard.NewService(repo, leaderboard.Config{Now: func() time.Time { return now }})
	board, err := boards.Board(context.Background(), leaderboard.Query{Metric: leaderboard.MetricCurrentStreak, UserID: "gone"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if board.Me.Score != 0 || board.Me.Rank != 2 {
		t.Fatalf("unexpected standing: %+v", board.Me)
	}
}

func TestMemoryRepository_PositionalRankMatchesListedOrder(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	seed(t, repo, now,
		progress.UserProgress{UserID: "a", TotalPoints: 900},
		progress.UserProgress{UserID: "b", TotalPoints: 400},
		progress.UserProgress{UserID: "c", TotalPoints: 400},
		progress.UserProgress{UserID: "d", TotalPoints: 400},
	)

	boards := leaderboard.NewService(repo, leaderboard.Config{Now: func() time.Time { return now }})
	tests := []struct {
		mode leaderboard.Mode
		want int
	}{
		{leaderboard.ModeCompetition, 2},
		{leaderboard.ModePositional, 4},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			board, err := boards.Board(context.Background(), leaderboard.Query{Metric: leaderboard.MetricTotalPoints, Mode: tt.mode, Limit: 2, UserID: "d"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if board.Me.Rank != tt.want {
				t.Fatalf("rank = %d, want %d", board.Me.Rank, tt.want)
			}
		})
	}
}

func TestMemoryRepository_ListTopExtremeScores(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()
	seed(t, repo, now,
		progress.UserProgress{UserID: "low", TotalPoints: math.MinInt},
		progress.UserProgress{UserID: "high", TotalPoints: math.MaxInt},
		progress.UserProgress{UserID: "mid", TotalPoints: -5},
	)

	top, err := repo.ListTop(context.Background(), "total_points", 3, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"high", "mid", "low"}
	for i, p := range top {
		if p.UserID != want[i] {
			t.Fatalf("position %d = %s, want %s", i, p.UserID, want[i])
		}
	}
}
