package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tightbudget/gamification-service/internal/leaderboard"
)

const snapshotContentType = "application/json"

// ErrNotConfigured is returned when no bucket was configured.
var ErrNotConfigured = errors.New("snapshot archive is not configured")

// ObjectWriter stores one object in a bucket.
type ObjectWriter interface {
	Write(ctx context.Context, objectPath, contentType string, data []byte) (uri string, err error)
}

// Result describes a stored snapshot.
type Result struct {
	Metric      leaderboard.Metric `json:"metric"`
	Mode        leaderboard.Mode   `json:"mode"`
	Entries     int                `json:"entries"`
	TotalUsers  int                `json:"total_users"`
	ObjectPath  string             `json:"object_path"`
	URI         string             `json:"uri"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Service writes point-in-time leaderboards to object storage.
type Service struct {
	boards leaderboard.Service
	writer ObjectWriter
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a snapshot archiver. A nil writer yields a Service whose Snapshot
// reports ErrNotConfigured.
func NewService(boards leaderboard.Service, writer ObjectWriter, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{boards: boards, writer: writer, loc: loc, now: time.Now}
}

// Snapshot renders the current top-N for metric and stores it under
// leaderboards/<metric>/<local date>.json, replacing any earlier snapshot from the same day.
func (s *Service) Snapshot(ctx context.Context, metric leaderboard.Metric, mode leaderboard.Mode, limit int) (Result, error) {
	if s.writer == nil {
		return Result{}, ErrNotConfigured
	}

	board, err := s.boards.Board(ctx, leaderboard.Query{Metric: metric, Mode: mode, Limit: limit})
	if err != nil {
		return Result{}, err
	}

	data, err := json.Marshal(board)
	if err != nil {
		return Result{}, fmt.Errorf("encode snapshot: %w", err)
	}

	path := ObjectPath(metric, s.now().In(s.loc))
	uri, err := s.writer.Write(ctx, path, snapshotContentType, data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to store snapshot %s: %w", path, err)
	}

	return Result{
		Metric:      board.Metric,
		Mode:        board.Mode,
		Entries:     len(board.Entries),
		TotalUsers:  board.TotalUsers,
		ObjectPath:  path,
		URI:         uri,
		GeneratedAt: board.GeneratedAt,
	}, nil
}

// ObjectPath is the object name of a metric's snapshot for the calendar day of t.
func ObjectPath(metric leaderboard.Metric, t time.Time) string {
	return fmt.Sprintf("leaderboards/%s/%s.json", metric, t.Format(time.DateOnly))
}
