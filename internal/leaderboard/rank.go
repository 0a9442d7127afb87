package leaderboard

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tightbudget/gamification-service/internal/progress"
)

// ErrUnknownMetric indicates a leaderboard metric outside the supported set.
var ErrUnknownMetric = errors.New("unknown leaderboard metric")

// Metric is the score a leaderboard is ordered by.
type Metric string

const (
	MetricTotalPoints   Metric = "total_points"
	MetricLevel         Metric = "level"
	MetricCurrentStreak Metric = "current_streak"
	MetricLongestStreak Metric = "longest_streak"
	MetricAchievements  Metric = "achievements"
)

var metrics = []Metric{MetricTotalPoints, MetricLevel, MetricCurrentStreak, MetricLongestStreak, MetricAchievements}

// Metrics lists the supported metrics.
func Metrics() []Metric {
	return slices.Clone(metrics)
}

// ParseMetric validates a client-supplied metric name.
func ParseMetric(raw string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(metrics, m) {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, raw)
	}
	return m, nil
}

// Field is the stored document field the metric orders by.
func (m Metric) Field() string {
	if m == MetricAchievements {
		return "achievements_count"
	}
	return string(m)
}

// Score reads the metric from a progress record. Current streaks are reported as zero once
// broken, even if the stored counter has not been reset yet.
func (m Metric) Score(p progress.UserProgress, now time.Time, loc *time.Location) int {
	switch m {
	case MetricTotalPoints:
		return p.TotalPoints
	case MetricLevel:
		return p.Level
	case MetricCurrentStreak:
		return p.EffectiveStreak(now, loc)
	case MetricLongestStreak:
		return p.LongestStreak
	case MetricAchievements:
		return len(p.UnlockedAchievements)
	default:
		return 0
	}
}

// ActiveSince is the oldest last activity that can still carry a score for the metric. Only
// current streaks are cut off: anything older than the start of yesterday in loc is broken.
// The zero time means every record counts.
func (m Metric) ActiveSince(now time.Time, loc *time.Location) time.Time {
	if m != MetricCurrentStreak {
		return time.Time{}
	}
	y, mo, d := now.In(loc).Date()
	return time.Date(y, mo, d-1, 0, 0, 0, 0, loc)
}

// Mode selects how equal scores are ranked.
type Mode string

const (
	// ModePositional numbers rows 1..n regardless of ties.
	ModePositional Mode = "positional"
	// ModeCompetition gives equal scores the same rank and skips the following ranks (1, 2, 2, 4).
	ModeCompetition Mode = "competition"
)

// ParseMode maps a query value to a Mode; empty selects competition ranking.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeCompetition:
		return ModeCompetition, nil
	case ModePositional:
		return ModePositional, nil
	default:
		return "", fmt.Errorf("unknown ranking mode %q", raw)
	}
}

// Row is an unranked leaderboard candidate.
type Row struct {
	UserID      string
	DisplayName string
	Score       int
	Level       int
}

// Entry is a ranked leaderboard row.
type Entry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	DisplayName   string `json:"display_name"`
	Score         int    `json:"score"`
	Level         int    `json:"level"`
	IsCurrentUser bool   `json:"is_current_user"`
}

// Rows scores progress records for a metric.
func Rows(records []progress.UserProgress, metric Metric, now time.Time, loc *time.Location) []Row {
	out := make([]Row, 0, len(records))
	for _, p := range records {
		out = append(out, Row{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Score:       metric.Score(p, now, loc),
			Level:       p.Level,
		})
	}
	return out
}

// Rank sorts rows by descending score, breaking ties by user id, and assigns ranks per mode.
func Rank(rows []Row, mode Mode, currentUserID string) []Entry {
	sorted := slices.Clone(rows)
	slices.SortFunc(sorted, func(a, b Row) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return strings.Compare(a.UserID, b.UserID)
	})

	entries := make([]Entry, 0, len(sorted))
	for i, r := range sorted {
		rank := i + 1
		if mode == ModeCompetition && i > 0 && r.Score == sorted[i-1].Score {
			rank = entries[i-1].Rank
		}
		entries = append(entries, Entry{
			Rank:          rank,
			UserID:        r.UserID,
			DisplayName:   r.DisplayName,
			Score:         r.Score,
			Level:         r.Level,
			IsCurrentUser: currentUserID != "" && r.UserID == currentUserID,
		})
	}
	return entries
}

// Percentile returns the share of the other users ranked below rank, clamped to 0-100.
func Percentile(rank, total int) int {
	if total <= 1 {
		return 100
	}
	below := total - rank
	pct := below * 100 / (total - 1)
	return max(0, min(pct, 100))
}
