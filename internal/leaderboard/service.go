package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tightbudget/gamification-service/internal/progress"
)

const (
	defaultLimit    = 10
	defaultMaxLimit = 100
)

// Source is the read side of the progress store a board is built from. A non-zero activeSince
// restricts ListTop and the Count queries to records with last activity at or after it.
type Source interface {
	Get(ctx context.Context, userID string) (progress.UserProgress, error)
	ListTop(ctx context.Context, field string, limit int, activeSince time.Time) ([]progress.UserProgress, error)
	CountAbove(ctx context.Context, field string, score int, activeSince time.Time) (int, error)
	// CountTiedBefore counts records scoring exactly score whose user id sorts before userID.
	CountTiedBefore(ctx context.Context, field string, score int, userID string, activeSince time.Time) (int, error)
	CountUsers(ctx context.Context) (int, error)
}

// Query selects a board.
type Query struct {
	Metric Metric
	Mode   Mode
	Limit  int
	UserID string
}

// Board is a ranked top-N plus the caller's own standing.
type Board struct {
	Metric      Metric    `json:"metric"`
	Mode        Mode      `json:"mode"`
	Entries     []Entry   `json:"entries"`
	Me          *Entry    `json:"me,omitempty"`
	Percentile  int       `json:"percentile"`
	TotalUsers  int       `json:"total_users"`
	GeneratedAt time.Time `json:"generated_at"`
	Cached      bool      `json:"cached"`
}

// Service builds leaderboards.
type Service interface {
	Board(ctx context.Context, q Query) (Board, error)
}

// Config tunes a Service. Zero values fall back to defaults; a nil Cache disables caching.
type Config struct {
	Cache    Cache
	CacheTTL time.Duration
	MaxLimit int
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

type service struct {
	source Source
	cfg    Config
}

// NewService creates a leaderboard service reading from source.
func NewService(source Source, cfg Config) Service {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaultMaxLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &service{source: source, cfg: cfg}
}

func (s *service) Board(ctx context.Context, q Query) (Board, error) {
	if q.Mode == "" {
		q.Mode = ModeCompetition
	}
	q.Limit = s.clampLimit(q.Limit)
	now := s.cfg.Now()

	var (
		snapshot Snapshot
		cached   bool
		own      progress.UserProgress
		above    int
		tied     int
	)
	activeSince := q.Metric.ActiveSince(now, s.cfg.Location)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snapshot, cached, err = s.snapshot(gctx, q, now, activeSince)
		return err
	})

	if q.UserID != "" {
		g.Go(func() error {
			p, err := s.source.Get(gctx, q.UserID)
			if err != nil {
				return fmt.Errorf("failed to load caller progress: %w", err)
			}
			own = p
			score := q.Metric.Score(p, now, s.cfg.Location)
			n, err := s.source.CountAbove(gctx, q.Metric.Field(), score, activeSince)
			if err != nil {
				return fmt.Errorf("failed to count higher scores: %w", err)
			}
			above = n
			if q.Mode != ModePositional {
				return nil
			}
			// Positional rows order equal scores by user id.
			n, err = s.source.CountTiedBefore(gctx, q.Metric.Field(), score, q.UserID, activeSince)
			if err != nil {
				return fmt.Errorf("failed to count tied scores: %w", err)
			}
			tied = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Board{}, err
	}

	board := Board{
		Metric:      q.Metric,
		Mode:        q.Mode,
		Entries:     make([]Entry, len(snapshot.Entries)),
		TotalUsers:  snapshot.TotalUsers,
		GeneratedAt: snapshot.GeneratedAt,
		Cached:      cached,
	}
	copy(board.Entries, snapshot.Entries)

	if q.UserID == "" {
		return board, nil
	}

	me := Entry{
		Rank:          above + tied + 1,
		UserID:        own.UserID,
		DisplayName:   own.DisplayName,
		Score:         q.Metric.Score(own, now, s.cfg.Location),
		Level:         own.Level,
		IsCurrentUser: true,
	}
	for i := range board.Entries {
		if board.Entries[i].UserID == q.UserID {
			board.Entries[i].IsCurrentUser = true
			me.Rank = board.Entries[i].Rank
		}
	}
	board.TotalUsers = max(board.TotalUsers, me.Rank)
	board.Me = &me
	board.Percentile = Percentile(me.Rank, board.TotalUsers)
	return board, nil
}

func (s *service) snapshot(ctx context.Context, q Query, now, activeSince time.Time) (Snapshot, bool, error) {
	key := fmt.Sprintf("%s:%s:%d", q.Metric, q.Mode, q.Limit)
	if s.cfg.Cache != nil {
		snapshot, ok, err := s.cfg.Cache.Get(ctx, key)
		if err != nil {
			s.cfg.Logger.Warn("leaderboard cache read failed", slog.String("key", key), slog.Any("error", err))
		} else if ok {
			return snapshot, true, nil
		}
	}

	var (
		records []progress.UserProgress
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.source.ListTop(gctx, q.Metric.Field(), q.Limit, activeSince)
		if err != nil {
			return fmt.Errorf("failed to list top users: %w", err)
		}
		records = r
		return nil
	})
	g.Go(func() error {
		n, err := s.source.CountUsers(gctx)
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		total = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, false, err
	}

	snapshot := Snapshot{
		Entries:     Rank(Rows(records, q.Metric, now, s.cfg.Location), q.Mode, ""),
		TotalUsers:  total,
		GeneratedAt: now,
	}
	if s.cfg.Cache != nil && s.cfg.CacheTTL > 0 {
		if err := s.cfg.Cache.Set(ctx, key, snapshot, s.cfg.CacheTTL); err != nil {
			s.cfg.Logger.Warn("leaderboard cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return snapshot, false, nil
}

func (s *service) clampLimit(limit int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	return min(limit, s.cfg.MaxLimit)
}
