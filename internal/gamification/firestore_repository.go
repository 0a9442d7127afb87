package gamification

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tightbudget/gamification-service/internal/progress"
)

const (
	progressCollection    = "gamification_progress"
	pointEventsCollection = "point_events"
	countAlias            = "count"
)

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository instantiates a Firestore-backed repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) progressDoc(userID string) *firestore.DocumentRef {
	return r.client.Collection(progressCollection).Doc(userID)
}

func (r *firestoreRepository) Get(ctx context.Context, userID string) (progress.UserProgress, error) {
	doc, err := r.progressDoc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return progress.New(userID, time.Time{}), nil
	}
	if err != nil {
		return progress.UserProgress{}, err
	}
	return snapshotToProgress(userID, doc)
}

func (r *firestoreRepository) Update(ctx context.Context, userID string, now time.Time, fn MutateFunc) (progress.UserProgress, error) {
	ref := r.progressDoc(userID)
	var updated progress.UserProgress

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var p progress.UserProgress
		doc, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
			p = progress.New(userID, now)
		case err != nil:
			return err
		default:
			if p, err = snapshotToProgress(userID, doc); err != nil {
				return err
			}
		}

		ledger, err := fn(&p)
		if err != nil {
			return err
		}
		p.UserID = userID
		p.UpdatedAt = now
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}

		if err := tx.Set(ref, p); err != nil {
			return err
		}
		for _, e := range ledger {
			if err := tx.Create(ref.Collection(pointEventsCollection).Doc(e.ID), e); err != nil {
				return err
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		return progress.UserProgress{}, err
	}
	return updated, nil
}

func (r *firestoreRepository) ListPointEvents(ctx context.Context, userID string, limit int, after *Cursor) ([]PointEvent, error) {
	query := r.progressDoc(userID).Collection(pointEventsCollection).
		OrderBy("created_at", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)
	if after != nil {
		query = query.StartAfter(after.CreatedAt, after.EventID)
	}

	iter := query.Limit(limit).Documents(ctx)
	defer iter.Stop()

	items := make([]PointEvent, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var e PointEvent
		if err := doc.DataTo(&e); err != nil {
			return nil, fmt.Errorf("decode point event %s: %w", doc.Ref.ID, err)
		}
		e.ID = doc.Ref.ID
		items = append(items, e)
	}
	return items, nil
}

func (r *firestoreRepository) ListTop(ctx context.Context, field string, limit int, activeSince time.Time) ([]progress.UserProgress, error) {
	iter := r.progressQuery(activeSince).
		OrderBy(field, firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []progress.UserProgress
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		p, err := snapshotToProgress(doc.Ref.ID, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *firestoreRepository) CountAbove(ctx context.Context, field string, score int, activeSince time.Time) (int, error) {
	return r.count(ctx, r.progressQuery(activeSince).Where(field, ">", score))
}

func (r *firestoreRepository) CountTiedBefore(ctx context.Context, field string, score int, userID string, activeSince time.Time) (int, error) {
	query := r.progressQuery(activeSince).
		Where(field, "==", score).
		Where(firestore.DocumentID, "<", r.progressDoc(userID))
	return r.count(ctx, query)
}

// progressQuery limits to recently active records when activeSince is set. Current-streak
// boards need the composite indexes in firestore.indexes.json for that filter.
func (r *firestoreRepository) progressQuery(activeSince time.Time) firestore.Query {
	q := r.client.Collection(progressCollection).Query
	if !activeSince.IsZero() {
		q = q.Where("last_activity_at", ">=", activeSince)
	}
	return q
}

func (r *firestoreRepository) CountUsers(ctx context.Context) (int, error) {
	return r.count(ctx, r.client.Collection(progressCollection).Query)
}

func (r *firestoreRepository) count(ctx context.Context, query firestore.Query) (int, error) {
	res, err := query.NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}

	switch v := res[countAlias].(type) {
	case *firestorepb.Value:
		return int(v.GetIntegerValue()), nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("count query returned %T", v)
	}
}

func snapshotToProgress(userID string, doc *firestore.DocumentSnapshot) (progress.UserProgress, error) {
	var p progress.UserProgress
	if err := doc.DataTo(&p); err != nil {
		return progress.UserProgress{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	p.UserID = userID
	p.AchievementsCount = len(p.UnlockedAchievements)
	return p, nil
}
