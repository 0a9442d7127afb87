package gamification

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tightbudget/gamification-service/internal/progress"
)

type memoryRepository struct {
	mu       sync.RWMutex
	progress map[string]progress.UserProgress
	events   map[string][]PointEvent // userID -> ledger, oldest first
}

// NewMemoryRepository returns an in-memory repository intended for local development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		progress: make(map[string]progress.UserProgress),
		events:   make(map[string][]PointEvent),
	}
}

func (r *memoryRepository) Get(_ context.Context, userID string) (progress.UserProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.progress[userID]
	if !ok {
		return progress.New(userID, time.Time{}), nil
	}
	return p.Clone(), nil
}

func (r *memoryRepository) Update(_ context.Context, userID string, now time.Time, fn MutateFunc) (progress.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.progress[userID]
	if ok {
		p = p.Clone()
	} else {
		p = progress.New(userID, now)
	}

	ledger, err := fn(&p)
	if err != nil {
		return progress.UserProgress{}, err
	}
	p.UserID = userID
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	r.progress[userID] = p
	r.events[userID] = append(r.events[userID], ledger...)
	return p.Clone(), nil
}

func (r *memoryRepository) ListPointEvents(_ context.Context, userID string, limit int, after *Cursor) ([]PointEvent, error) {
	r.mu.RLock()
	snapshot := slices.Clone(r.events[userID])
	r.mu.RUnlock()

	slices.SortStableFunc(snapshot, comparePointEventsDesc)

	out := make([]PointEvent, 0, limit)
	for _, e := range snapshot {
		if after != nil && !isAfterCursor(e, *after) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryRepository) ListTop(_ context.Context, field string, limit int, activeSince time.Time) ([]progress.UserProgress, error) {
	r.mu.RLock()
	all := make([]progress.UserProgress, 0, len(r.progress))
	for _, p := range r.progress {
		if activeBefore(p, activeSince) {
			continue
		}
		all = append(all, p.Clone())
	}
	r.mu.RUnlock()

	slices.SortFunc(all, func(a, b progress.UserProgress) int {
		if c := cmp.Compare(fieldValue(b, field), fieldValue(a, field)); c != 0 {
			return c
		}
		return strings.Compare(a.UserID, b.UserID)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryRepository) CountAbove(_ context.Context, field string, score int, activeSince time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.progress {
		if !activeBefore(p, activeSince) && fieldValue(p, field) > score {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) CountTiedBefore(_ context.Context, field string, score int, userID string, activeSince time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.progress {
		if !activeBefore(p, activeSince) && fieldValue(p, field) == score && p.UserID < userID {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) CountUsers(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.progress), nil
}

func activeBefore(p progress.UserProgress, activeSince time.Time) bool {
	return !activeSince.IsZero() && p.LastActivityAt.Before(activeSince)
}

// fieldValue reads the stored value of a sortable document field.
func fieldValue(p progress.UserProgress, field string) int {
	switch field {
	case "total_points":
		return p.TotalPoints
	case "level":
		return p.Level
	case "current_streak":
		return p.CurrentStreak
	case "longest_streak":
		return p.LongestStreak
	case "achievements_count":
		return p.AchievementsCount
	default:
		return 0
	}
}

// comparePointEventsDesc orders newest first, then by descending id, matching the Firestore query.
func comparePointEventsDesc(a, b PointEvent) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}

func isAfterCursor(e PointEvent, c Cursor) bool {
	return comparePointEventsDesc(PointEvent{ID: c.EventID, CreatedAt: c.CreatedAt}, e) < 0
}
