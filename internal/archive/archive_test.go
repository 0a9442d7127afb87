package archive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tightbudget/gamification-service/internal/leaderboard"
)

type fakeBoards struct {
	boardFn func(context.Context, leaderboard.Query) (leaderboard.Board, error)
}

func (f *fakeBoards) Board(ctx context.Context, q leaderboard.Query) (leaderboard.Board, error) {
	return f.boardFn(ctx, q)
}

type fakeWriter struct {
	writeFn func(context.Context, string, string, []byte) (string, error)
}

func (f *fakeWriter) Write(ctx context.Context, path, contentType string, data []byte) (string, error) {
	return f.writeFn(ctx, path, contentType, data)
}

func TestSnapshot_WritesBoardForLocalDay(t *testing.T) {
	generated := time.Date(2026, 10, 16, 22, 30, 0, 0, time.UTC)
	boards := &fakeBoards{boardFn: func(_ context.Context, q leaderboard.Query) (leaderboard.Board, error) {
		if q.UserID != "" || q.Limit != 50 || q.Metric != leaderboard.MetricTotalPoints {
			t.Fatalf("unexpected query: %+v", q)
		}
		return leaderboard.Board{
			Metric:      q.Metric,
			Mode:        leaderboard.ModeCompetition,
			Entries:     []leaderboard.Entry{{Rank: 1, UserID: "a", Score: 900}, {Rank: 2, UserID: "b", Score: 400}},
			TotalUsers:  7,
			GeneratedAt: generated,
		}, nil
	}}

	var stored []byte
	writer := &fakeWriter{writeFn: func(_ context.Context, path, contentType string, data []byte) (string, error) {
		if contentType != "application/json" {
			t.Fatalf("content type = %s", contentType)
		}
		stored = data
		return "gs://bucket/" + path, nil
	}}

	loc, err := time.LoadLocation("Africa/Johannesburg")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	svc := NewService(boards, writer, loc)
	svc.now = func() time.Time { return generated }

	res, err := svc.Snapshot(context.Background(), leaderboard.MetricTotalPoints, leaderboard.ModeCompetition, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 22:30 UTC is already the next day in Johannesburg.
	if res.ObjectPath != "leaderboards/total_points/2026-10-17.json" {
		t.Fatalf("object path = %s", res.ObjectPath)
	}
	if res.URI != "gs://bucket/leaderboards/total_points/2026-10-17.json" || res.Entries != 2 || res.TotalUsers != 7 {
		t.Fatalf("unexpected result: %+v", res)
	}

	var decoded leaderboard.Board
	if err := json.Unmarshal(stored, &decoded); err != nil {
		t.Fatalf("stored payload is not a board: %v", err)
	}
	if len(decoded.Entries) != 2 || decoded.Entries[0].UserID != "a" {
		t.Fatalf("unexpected stored board: %+v", decoded)
	}
}

func TestSnapshot_Errors(t *testing.T) {
	boom := errors.New("boom")
	okBoards := &fakeBoards{boardFn: func(context.Context, leaderboard.Query) (leaderboard.Board, error) {
		return leaderboard.Board{}, nil
	}}

	if _, err := NewService(okBoards, nil, nil).Snapshot(context.Background(), leaderboard.MetricLevel, "", 10); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	failingBoards := &fakeBoards{boardFn: func(context.Context, leaderboard.Query) (leaderboard.Board, error) {
		return leaderboard.Board{}, boom
	}}
	writer := &fakeWriter{writeFn: func(context.Context, string, string, []byte) (string, error) {
		t.Fatal("writer must not be called when the board fails")
		return "", nil
	}}
	if _, err := NewService(failingBoards, writer, nil).Snapshot(context.Background(), leaderboard.MetricLevel, "", 10); !errors.Is(err, boom) {
		t.Fatalf("expected board error, got %v", err)
	}

	failingWriter := &fakeWriter{writeFn: func(context.Context, string, string, []byte) (string, error) {
		return "", boom
	}}
	if _, err := NewService(okBoards, failingWriter, nil).Snapshot(context.Background(), leaderboard.MetricLevel, "", 10); !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
}
