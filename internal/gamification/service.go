package gamification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tightbudget/gamification-service/internal/achievement"
	"github.com/tightbudget/gamification-service/internal/celebration"
	"github.com/tightbudget/gamification-service/internal/challenge"
	"github.com/tightbudget/gamification-service/internal/milestone"
	"github.com/tightbudget/gamification-service/internal/progress"
	"github.com/tightbudget/gamification-service/shared/events"
)

// Option customizes a Service.
type Option func(*Service)

// WithLocation sets the time zone calendar days are counted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithPublisher sends celebrations and point events to connected devices.
func WithPublisher(p celebration.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithRecorder reports award counters.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger used for best-effort side effects.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service composes points, streaks, challenges, achievements and milestones over a Repository.
type Service struct {
	repo      Repository
	clock     Clock
	ids       IDGenerator
	loc       *time.Location
	publisher celebration.Publisher
	recorder  Recorder
	logger    *slog.Logger
}

// NewService constructs a Service instance with the provided collaborators.
func NewService(repo Repository, clock Clock, ids IDGenerator, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}

	s := &Service{
		repo:     repo,
		clock:    clock,
		ids:      ids,
		loc:      time.UTC,
		recorder: nopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Location is the time zone calendar days are counted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// GetProgress returns the user's summary. Users without a record get zero progress.
func (s *Service) GetProgress(ctx context.Context, userID string) (Summary, error) {
	if userID == "" {
		return Summary{}, ErrMissingUserID
	}
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(p, s.clock.Now().UTC()), nil
}

// RecordAction applies one user action in a single read-modify-write: streak, capped points,
// counters, challenges, achievement cascade, level and ledger.
func (s *Service) RecordAction(ctx context.Context, userID string, in ActionInput) (AwardResult, error) {
	if userID == "" {
		return AwardResult{}, ErrMissingUserID
	}
	action, err := progress.ParseAction(in.Action)
	if err != nil {
		return AwardResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, in.Action)
	}
	count := in.Count
	if count == 0 {
		count = 1
	}
	if count < 0 || count > maxActionCount {
		return AwardResult{}, fmt.Errorf("%w: %d", ErrInvalidCount, in.Count)
	}

	now := s.clock.Now().UTC()
	var (
		result AwardResult
		ledger []PointEvent
	)

	_, err = s.repo.Update(ctx, userID, now, func(p *progress.UserProgress) ([]PointEvent, error) {
		before := p.Clone()
		a := s.newAwarder(p, userID, now)
		var celebrations []events.GamificationEvent

		result = AwardResult{
			Action:      action,
			Requested:   count,
			LevelBefore: progress.LevelFor(before.TotalPoints).Number,
		}

		p.ResetDailyCounts(progress.DayKey(now, s.loc))
		result.StreakChange = p.RecordActivity(now, s.loc)
		if result.StreakChange != progress.StreakUnchanged {
			bonus := progress.StreakBonus(p.CurrentStreak)
			a.credit(SourceStreakBonus, fmt.Sprintf("streak_%d", p.CurrentStreak), bonus)
			if result.StreakChange == progress.StreakExtended {
				celebrations = append(celebrations, celebration.StreakExtended(p.CurrentStreak, bonus))
			}
		}

		result.Rewarded = p.ConsumeDaily(action, count)
		p.IncrementCounter(action, count)
		a.credit(string(action), in.RefID, result.Rewarded*progress.PointsFor(action))

		p.Challenges = challenge.Refresh(p.Challenges, userID, now, s.loc)
		completed := challenge.Apply(p.Challenges, action, result.Rewarded, now)
		p.ChallengesCompleted += len(completed)
		for _, c := range completed {
			result.CompletedChallenges = append(result.CompletedChallenges, newChallengeView(c, now))
			celebrations = append(celebrations, celebration.ChallengeCompleted(c))
		}

		settled := s.settle(p, before, a)
		result.Unlocked = settled.unlocked
		result.ReachedMilestones = settled.reached
		result.LevelAfter = p.Level
		result.PointsAwarded = a.total
		result.TotalPoints = p.TotalPoints
		result.CurrentStreak = p.CurrentStreak
		result.Celebrations = s.stamp(userID, now, append(celebrations, settled.celebrations...))

		ledger = a.ledger
		return a.ledger, nil
	})
	if err != nil {
		return AwardResult{}, err
	}

	for _, c := range result.CompletedChallenges {
		s.recorder.ChallengeCompleted(c.Period)
	}
	s.afterCommit(ctx, userID, now, ledger, result.Unlocked, result.LevelBefore, result.LevelAfter, result.TotalPoints, result.Celebrations)
	return result, nil
}

// ListAchievements returns every achievement with the user's unlock state.
func (s *Service) ListAchievements(ctx context.Context, userID string) (AchievementList, error) {
	if userID == "" {
		return AchievementList{}, ErrMissingUserID
	}
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return AchievementList{}, err
	}
	statuses := achievement.Statuses(p)
	return AchievementList{Items: statuses, Summary: achievement.Summarize(statuses)}, nil
}

// ListChallenges returns the user's current challenges plus completed ones awaiting a claim.
func (s *Service) ListChallenges(ctx context.Context, userID string) ([]ChallengeView, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	instances := challenge.Refresh(p.Clone().Challenges, userID, now, s.loc)
	views := make([]ChallengeView, 0, len(instances))
	for _, c := range instances {
		views = append(views, newChallengeView(c, now))
	}
	return views, nil
}

// ClaimChallenge pays a completed challenge's reward once. Repeated claims report
// AlreadyClaimed and pay nothing.
func (s *Service) ClaimChallenge(ctx context.Context, userID, challengeID string) (ClaimResult, error) {
	if userID == "" {
		return ClaimResult{}, ErrMissingUserID
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return ClaimResult{}, fmt.Errorf("%w: empty id", ErrChallengeNotFound)
	}

	now := s.clock.Now().UTC()
	var (
		result ClaimResult
		ledger []PointEvent
	)

	_, err := s.repo.Update(ctx, userID, now, func(p *progress.UserProgress) ([]PointEvent, error) {
		before := p.Clone()
		a := s.newAwarder(p, userID, now)
		result = ClaimResult{ID: challengeID, LevelBefore: progress.LevelFor(before.TotalPoints).Number}

		p.Challenges = challenge.Refresh(p.Challenges, userID, now, s.loc)
		c, claimed, err := challenge.Claim(p.Challenges, challengeID, now)
		if err != nil {
			return nil, err
		}
		result.RewardPoints = c.RewardPoints
		if claimed {
			a.credit(SourceChallenge, c.ID, c.RewardPoints)
		} else {
			result.AlreadyClaimed = true
		}

		s.fillClaim(&result, p, before, a, userID, now)
		ledger = a.ledger
		return a.ledger, nil
	})
	if err != nil {
		return ClaimResult{}, err
	}

	if !result.AlreadyClaimed {
		s.recorder.RewardClaimed(SourceChallenge)
	}
	s.afterCommit(ctx, userID, now, ledger, result.Unlocked, result.LevelBefore, result.LevelAfter, result.TotalPoints, result.Celebrations)
	return result, nil
}

// ListMilestones returns every milestone with reach and claim state.
func (s *Service) ListMilestones(ctx context.Context, userID string) ([]milestone.Status, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return milestone.Statuses(p), nil
}

// ClaimMilestone pays a reached milestone's reward once.
func (s *Service) ClaimMilestone(ctx context.Context, userID, milestoneID string) (ClaimResult, error) {
	if userID == "" {
		return ClaimResult{}, ErrMissingUserID
	}
	milestoneID = strings.TrimSpace(milestoneID)

	now := s.clock.Now().UTC()
	var (
		result ClaimResult
		ledger []PointEvent
	)

	_, err := s.repo.Update(ctx, userID, now, func(p *progress.UserProgress) ([]PointEvent, error) {
		before := p.Clone()
		a := s.newAwarder(p, userID, now)
		result = ClaimResult{ID: milestoneID, LevelBefore: progress.LevelFor(before.TotalPoints).Number}

		m, claimed, err := milestone.Claim(p, milestoneID)
		if err != nil {
			return nil, err
		}
		result.RewardPoints = m.RewardPoints
		if claimed {
			a.credit(SourceMilestone, m.ID, m.RewardPoints)
		} else {
			result.AlreadyClaimed = true
		}

		s.fillClaim(&result, p, before, a, userID, now)
		ledger = a.ledger
		return a.ledger, nil
	})
	if err != nil {
		return ClaimResult{}, err
	}

	if !result.AlreadyClaimed {
		s.recorder.RewardClaimed(SourceMilestone)
	}
	s.afterCommit(ctx, userID, now, ledger, result.Unlocked, result.LevelBefore, result.LevelAfter, result.TotalPoints, result.Celebrations)
	return result, nil
}

// PointHistory pages through the ledger, newest first.
func (s *Service) PointHistory(ctx context.Context, userID string, pageSize int, pageToken string) (PointHistory, error) {
	if userID == "" {
		return PointHistory{}, ErrMissingUserID
	}
	if pageSize <= 0 {
		pageSize = defaultHistorySize
	}
	pageSize = min(pageSize, maxHistorySize)

	cursor, err := decodePageToken(pageToken)
	if err != nil {
		return PointHistory{}, err
	}

	items, err := s.repo.ListPointEvents(ctx, userID, pageSize+1, cursor)
	if err != nil {
		return PointHistory{}, err
	}

	page := PointHistory{Items: items}
	if len(items) > pageSize {
		page.Items = items[:pageSize]
		last := page.Items[pageSize-1]
		page.NextPageToken = encodePageToken(Cursor{CreatedAt: last.CreatedAt, EventID: last.ID})
	}
	return page, nil
}

// SetDisplayName changes the name shown on leaderboards.
func (s *Service) SetDisplayName(ctx context.Context, userID, name string) (Summary, error) {
	if userID == "" {
		return Summary{}, ErrMissingUserID
	}
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxDisplayNameLen {
		return Summary{}, fmt.Errorf("%w: must be 1-%d characters", ErrInvalidDisplayName, maxDisplayNameLen)
	}

	now := s.clock.Now().UTC()
	p, err := s.repo.Update(ctx, userID, now, func(p *progress.UserProgress) ([]PointEvent, error) {
		p.DisplayName = name
		return nil, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(p, now), nil
}

func (s *Service) summarize(p progress.UserProgress, now time.Time) Summary {
	statuses := achievement.Statuses(p)
	streak := StreakSummary{
		Current:   p.CurrentStreak,
		Longest:   p.LongestStreak,
		Effective: p.EffectiveStreak(now, s.loc),
		State:     p.Status(now, s.loc),
	}
	if !p.LastActivityAt.IsZero() {
		last := p.LastActivityAt
		streak.LastActivityAt = &last
	}

	claimable := 0
	for _, c := range challenge.Refresh(p.Clone().Challenges, p.UserID, now, s.loc) {
		if c.Completed && !c.Claimed {
			claimable++
		}
	}
	reached := milestone.Reached(p)
	for _, m := range reached {
		if !p.HasClaimedMilestone(m.ID) {
			claimable++
		}
	}

	return Summary{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		TotalPoints: p.TotalPoints,
		Level:       progress.LevelProgress(p.TotalPoints),
		Streak:      streak,
		Counters: Counters{
			TransactionsLogged:  p.TransactionsLogged,
			ReceiptsAttached:    p.ReceiptsAttached,
			BudgetsCreated:      p.BudgetsCreated,
			BudgetsMet:          p.BudgetsMet,
			GoalsCreated:        p.GoalsCreated,
			GoalsReached:        p.GoalsReached,
			CategoriesAdded:     p.CategoriesAdded,
			ChallengesCompleted: p.ChallengesCompleted,
			DaysActive:          p.DaysActive,
		},
		Achievements:      achievement.Summarize(statuses),
		ClaimableRewards:  claimable,
		MilestonesReached: len(reached),
		UpdatedAt:         p.UpdatedAt,
	}
}

// awarder credits points to a record and keeps the ledger rows for them.
type awarder struct {
	p      *progress.UserProgress
	ids    IDGenerator
	userID string
	now    time.Time
	ledger []PointEvent
	total  int
}

func (s *Service) newAwarder(p *progress.UserProgress, userID string, now time.Time) *awarder {
	return &awarder{p: p, ids: s.ids, userID: userID, now: now}
}

func (a *awarder) credit(source, refID string, points int) {
	if points <= 0 {
		return
	}
	a.p.AddPoints(points)
	a.record(source, refID, points)
}

func (a *awarder) record(source, refID string, points int) {
	a.ledger = append(a.ledger, PointEvent{
		ID:        a.ids.NewID(),
		UserID:    a.userID,
		Source:    source,
		RefID:     refID,
		Points:    points,
		CreatedAt: a.now,
	})
	a.total += points
}

type settlement struct {
	unlocked     []achievement.Achievement
	reached      []milestone.Milestone
	celebrations []events.GamificationEvent
}

// settle runs the achievement cascade, detects new milestones and level changes after the
// caller has credited its points.
func (s *Service) settle(p *progress.UserProgress, before progress.UserProgress, a *awarder) settlement {
	var out settlement

	out.unlocked = achievement.UnlockAll(p)
	for _, u := range out.unlocked {
		if u.RewardPoints > 0 {
			a.record(SourceAchievement, u.ID, u.RewardPoints)
		}
		out.celebrations = append(out.celebrations, celebration.AchievementUnlocked(u))
	}

	p.Level = progress.LevelFor(p.TotalPoints).Number

	out.reached = milestone.NewlyReached(before, *p)
	for _, m := range out.reached {
		out.celebrations = append(out.celebrations, celebration.MilestoneReached(m))
	}

	if p.Level > progress.LevelFor(before.TotalPoints).Number {
		out.celebrations = append(out.celebrations, celebration.LevelUp(progress.LevelFor(p.TotalPoints)))
	}
	return out
}

func (s *Service) fillClaim(result *ClaimResult, p *progress.UserProgress, before progress.UserProgress, a *awarder, userID string, now time.Time) {
	settled := s.settle(p, before, a)
	result.Unlocked = settled.unlocked
	result.PointsAwarded = a.total
	result.TotalPoints = p.TotalPoints
	result.LevelAfter = p.Level
	result.Celebrations = s.stamp(userID, now, settled.celebrations)
}

func (s *Service) stamp(userID string, now time.Time, items []events.GamificationEvent) []events.GamificationEvent {
	if items == nil {
		return []events.GamificationEvent{}
	}
	for i := range items {
		items[i].ID = s.ids.NewID()
		items[i].UserID = userID
		items[i].OccurredAt = now
	}
	return items
}

// afterCommit reports counters and publishes events once the write is durable. Failures here
// are logged and never fail the request.
func (s *Service) afterCommit(ctx context.Context, userID string, now time.Time, ledger []PointEvent, unlocked []achievement.Achievement, levelBefore, levelAfter, total int, celebrations []events.GamificationEvent) {
	awarded := 0
	for _, e := range ledger {
		s.recorder.PointsAwarded(e.Source, e.Points)
		awarded += e.Points
	}
	for _, u := range unlocked {
		s.recorder.AchievementUnlocked(u.ID)
	}
	if levelAfter > levelBefore {
		s.recorder.LevelUp(levelAfter)
	}

	if s.publisher == nil {
		return
	}
	for _, c := range celebrations {
		if err := s.publisher.Publish(ctx, c); err != nil {
			s.logger.Warn("celebration publish failed",
				slog.String("userId", userID),
				slog.String("kind", c.Kind),
				slog.Any("error", err),
			)
		}
	}
	if awarded > 0 {
		evt := events.PointsAwarded{
			UserID:      userID,
			Source:      ledger[0].Source,
			Points:      awarded,
			TotalPoints: total,
			Level:       levelAfter,
			AwardedAt:   now,
		}
		if err := s.publisher.PublishPoints(ctx, evt); err != nil {
			s.logger.Warn("points publish failed", slog.String("userId", userID), slog.Any("error", err))
		}
	}
}
