package leaderboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tightbudget/gamification-service/internal/progress"
)

type fakeSource struct {
	getFn        func(ctx context.Context, userID string) (progress.UserProgress, error)
	listTopFn    func(ctx context.Context, field string, limit int, activeSince time.Time) ([]progress.UserProgress, error)
	countAboveFn func(ctx context.Context, field string, score int, activeSince time.Time) (int, error)
	countTiedFn  func(ctx context.Context, field string, score int, userID string, activeSince time.Time) (int, error)
	countUsersFn func(ctx context.Context) (int, error)
}

func (f *fakeSource) Get(ctx context.Context, userID string) (progress.UserProgress, error) {
	if f.getFn != nil {
		return f.getFn(ctx, userID)
	}
	return progress.UserProgress{UserID: userID}, nil
}

func (f *fakeSource) ListTop(ctx context.Context, field string, limit int, activeSince time.Time) ([]progress.UserProgress, error) {
	if f.listTopFn != nil {
		return f.listTopFn(ctx, field, limit, activeSince)
	}
	return nil, nil
}

func (f *fakeSource) CountAbove(ctx context.Context, field string, score int, activeSince time.Time) (int, error) {
	if f.countAboveFn != nil {
		return f.countAboveFn(ctx, field, score, activeSince)
	}
	return 0, nil
}

func (f *fakeSource) CountTiedBefore(ctx context.Context, field string, score int, userID string, activeSince time.Time) (int, error) {
	if f.countTiedFn != nil {
		return f.countTiedFn(ctx, field, score, userID, activeSince)
	}
	return 0, nil
}

func (f *fakeSource) CountUsers(ctx context.Context) (int, error) {
	if f.countUsersFn != nil {
		return f.countUsersFn(ctx)
	}
	return 0, nil
}

var boardNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func topThree() []progress.UserProgress {
	return []progress.UserProgress{
		{UserID: "u1", DisplayName: "Ada", TotalPoints: 900, Level: 4},
		{UserID: "u2", DisplayName: "Ben", TotalPoints: 600, Level: 4},
		{UserID: "u3", DisplayName: "Cam", TotalPoints: 600, Level: 4},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBoard_CallerOutsideTop(t *testing.T) {
	var gotLimit int
	src := &fakeSource{
		listTopFn: func(_ context.Context, field string, limit int, activeSince time.Time) ([]progress.UserProgress, error) {
			if field != "total_points" || !activeSince.IsZero() {
				t.Fatalf("unexpected field %s since %v", field, activeSince)
			}
			gotLimit = limit
			return topThree(), nil
		},
		countUsersFn: func(context.Context) (int, error) { return 11, nil },
		getFn: func(_ context.Context, userID string) (progress.UserProgress, error) {
			return progress.UserProgress{UserID: userID, TotalPoints: 100, Level: 2}, nil
		},
		countAboveFn: func(_ context.Context, _ string, score int, _ time.Time) (int, error) {
			if score != 100 {
				t.Fatalf("count above called with %d", score)
			}
			return 5, nil
		},
	}
	svc := NewService(src, Config{MaxLimit: 3, Now: func() time.Time { return boardNow }, Logger: quietLogger()})

	board, err := svc.Board(context.Background(), Query{Metric: MetricTotalPoints, Limit: 50, UserID: "me"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 3 {
		t.Fatalf("limit not clamped: %d", gotLimit)
	}
	if len(board.Entries) != 3 || board.Entries[2].Rank != 2 {
		t.Fatalf("unexpected entries: %+v", board.Entries)
	}
	if board.Me == nil || board.Me.Rank != 6 || !board.Me.IsCurrentUser {
		t.Fatalf("unexpected me: %+v", board.Me)
	}
	if board.Percentile != 50 {
		t.Fatalf("percentile = %d", board.Percentile)
	}
}

func TestBoard_CallerInsideTop(t *testing.T) {
	src := &fakeSource{
		listTopFn:    func(context.Context, string, int, time.Time) ([]progress.UserProgress, error) { return topThree(), nil },
		countUsersFn: func(context.Context) (int, error) { return 3, nil },
		getFn: func(context.Context, string) (progress.UserProgress, error) {
			return topThree()[2], nil
		},
		countAboveFn: func(context.Context, string, int, time.Time) (int, error) { return 1, nil },
	}
	svc := NewService(src, Config{Now: func() time.Time { return boardNow }})

	board, err := svc.Board(context.Background(), Query{Metric: MetricTotalPoints, UserID: "u3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !board.Entries[2].IsCurrentUser || board.Me.Rank != 2 {
		t.Fatalf("caller not marked in entries: %+v / %+v", board.Entries, board.Me)
	}
}

func TestBoard_SourceError(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{
		countUsersFn: func(context.Context) (int, error) { return 0, boom },
	}
	svc := NewService(src, Config{})
	if _, err := svc.Board(context.Background(), Query{Metric: MetricLevel}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}

func TestBoard_UsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	src := &fakeSource{
		listTopFn: func(context.Context, string, int, time.Time) ([]progress.UserProgress, error) {
			calls++
			return topThree(), nil
		},
		countUsersFn: func(context.Context) (int, error) { return 3, nil },
	}
	svc := NewService(src, Config{
		Cache:    NewRedisCache(client, "leaderboard:"),
		CacheTTL: time.Minute,
		Now:      func() time.Time { return boardNow },
		Logger:   quietLogger(),
	})

	first, err := svc.Board(context.Background(), Query{Metric: MetricTotalPoints, Limit: 3})
	if err != nil {
		t.Fatalf("first board: %v", err)
	}
	second, err := svc.Board(context.Background(), Query{Metric: MetricTotalPoints, Limit: 3})
	if err != nil {
		t.Fatalf("second board: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected one source call, got %d", calls)
	}
	if first.Cached || !second.Cached {
		t.Fatalf("cache flags: first=%v second=%v", first.Cached, second.Cached)
	}
	if len(second.Entries) != 3 || second.Entries[0].UserID != "u1" {
		t.Fatalf("cached entries mismatch: %+v", second.Entries)
	}
	if !mr.Exists("leaderboard:total_points:competition:3") {
		t.Fatalf("expected cache key, have %v", mr.Keys())
	}

	mr.FastForward(2 * time.Minute)
	if _, err := svc.Board(context.Background(), Query{Metric: MetricTotalPoints, Limit: 3}); err != nil {
		t.Fatalf("third board: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected cache expiry to hit the source again, got %d calls", calls)
	}
}

func TestBoard_CacheFailureFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	src := &fakeSource{
		listTopFn:    func(context.Context, string, int, time.Time) ([]progress.UserProgress, error) { return topThree(), nil },
		countUsersFn: func(context.Context) (int, error) { return 3, nil },
	}
	svc := NewService(src, Config{Cache: NewRedisCache(client, ""), CacheTTL: time.Minute, Logger: quietLogger()})

	board, err := svc.Board(context.Background(), Query{Metric: MetricTotalPoints})
	if err != nil {
		t.Fatalf("cache outage should not fail the board: %v", err)
	}
	if len(board.Entries) != 3 {
		t.Fatalf("unexpected entries %+v", board.Entries)
	}
}

func TestBoard_CurrentStreakSkipsLapsedUsers(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 30, 0, 0, time.UTC)
	loc := time.FixedZone("SAST", 2*60*60)
	wantSince := time.Date(2026, 10, 15, 0, 0, 0, 0, loc)

	records := []progress.UserProgress{
		{UserID: "lapsed", CurrentStreak: 40, LastActivityAt: wantSince.Add(-time.Minute)},
		{UserID: "yesterday", CurrentStreak: 3, LastActivityAt: wantSince},
		{UserID: "today", CurrentStreak: 2, LastActivityAt: now},
	}
	live := func(since time.Time) []progress.UserProgress {
		var out []progress.UserProgress
		for _, p := range records {
			if !p.LastActivityAt.Before(since) {
				out = append(out, p)
			}
		}
		return out
	}

	src := &fakeSource{
		listTopFn: func(_ context.Context, field string, _ int, since time.Time) ([]progress.UserProgress, error) {
			if field != "current_streak" || !since.Equal(wantSince) {
				t.Fatalf("list top %s since %v, want %v", field, since, wantSince)
			}
			return live(since), nil
		},
		countAboveFn: func(_ context.Context, _ string, score int, since time.Time) (int, error) {
			n := 0
			for _, p := range live(since) {
				if p.CurrentStreak > score {
					n++
				}
			}
			return n, nil
		},
		countUsersFn: func(context.Context) (int, error) { return len(records), nil },
		getFn: func(_ context.Context, userID string) (progress.UserProgress, error) {
			return records[2], nil
		},
	}
	svc := NewService(src, Config{Location: loc, Now: func() time.Time { return now }})

	board, err := svc.Board(context.Background(), Query{Metric: MetricCurrentStreak, Limit: 3, UserID: "today"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(board.Entries) != 2 || board.Entries[0].UserID != "yesterday" || board.Entries[0].Score != 3 {
		t.Fatalf("unexpected entries: %+v", board.Entries)
	}
	if board.Me == nil || board.Me.Rank != 2 || board.Me.Score != 2 {
		t.Fatalf("unexpected me: %+v", board.Me)
	}
}

func TestBoard_PositionalRankBreaksTiesByUserID(t *testing.T) {
	var tiedCalls int
	src := &fakeSource{
		listTopFn:    func(context.Context, string, int, time.Time) ([]progress.UserProgress, error) { return topThree(), nil },
		countUsersFn: func(context.Context) (int, error) { return 20, nil },
		getFn: func(_ context.Context, userID string) (progress.UserProgress, error) {
			return progress.UserProgress{UserID: userID, TotalPoints: 100}, nil
		},
		countAboveFn: func(context.Context, string, int, time.Time) (int, error) { return 7, nil },
		countTiedFn: func(_ context.Context, field string, score int, userID string, _ time.Time) (int, error) {
			tiedCalls++
			if field != "total_points" || score != 100 || userID != "m" {
				t.Fatalf("count tied called with %s %d %s", field, score, userID)
			}
			return 2, nil
		},
	}
	svc := NewService(src, Config{MaxLimit: 3, Now: func() time.Time { return boardNow }})

	tests := []struct {
		mode      Mode
		wantRank  int
		wantCalls int
	}{
		{ModeCompetition, 8, 0},
		{ModePositional, 10, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			tiedCalls = 0
			board, err := svc.Board(context.Background(), Query{Metric: MetricTotalPoints, Mode: tt.mode, UserID: "m"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if board.Me.Rank != tt.wantRank || tiedCalls != tt.wantCalls {
				t.Fatalf("rank %d after %d tie counts, want %d after %d", board.Me.Rank, tiedCalls, tt.wantRank, tt.wantCalls)
			}
		})
	}
}
