// Package celebration builds the records a client turns into level-up screens, unlock toasts
// and streak flames, and fans them out to connected devices.
package celebration

import (
	"fmt"

	"github.com/tightbudget/gamification-service/internal/achievement"
	"github.com/tightbudget/gamification-service/internal/challenge"
	"github.com/tightbudget/gamification-service/internal/milestone"
	"github.com/tightbudget/gamification-service/internal/progress"
	"github.com/tightbudget/gamification-service/shared/events"
)

// Kind classifies a celebration.
type Kind string

const (
	KindLevelUp             Kind = "level_up"
	KindAchievementUnlocked Kind = "achievement_unlocked"
	KindChallengeCompleted  Kind = "challenge_completed"
	KindMilestoneReached    Kind = "milestone_reached"
	KindStreakExtended      Kind = "streak_extended"
)

var kindIcons = map[Kind]string{
	KindLevelUp:             "level_up",
	KindAchievementUnlocked: "trophy",
	KindChallengeCompleted:  "checkered_flag",
	KindMilestoneReached:    "medal",
	KindStreakExtended:      "flame",
}

var tierIcons = map[achievement.Tier]string{
	achievement.TierBronze: "trophy_bronze",
	achievement.TierSilver: "trophy_silver",
	achievement.TierGold:   "trophy_gold",
}

// Icon resolves the icon for a kind. Achievements use their tier icon when one is set.
func Icon(kind Kind, tier achievement.Tier) string {
	if kind == KindAchievementUnlocked {
		if icon, ok := tierIcons[tier]; ok {
			return icon
		}
	}
	if icon, ok := kindIcons[kind]; ok {
		return icon
	}
	return "sparkles"
}

// LevelUp celebrates reaching a new level.
func LevelUp(level progress.Level) events.GamificationEvent {
	return events.GamificationEvent{
		Kind:    string(KindLevelUp),
		Title:   fmt.Sprintf("Level %d reached", level.Number),
		Message: fmt.Sprintf("You are now a %s!", level.Title),
		Icon:    level.Icon,
		RefID:   fmt.Sprintf("level_%d", level.Number),
	}
}

// AchievementUnlocked celebrates an unlocked achievement.
func AchievementUnlocked(a achievement.Achievement) events.GamificationEvent {
	return events.GamificationEvent{
		Kind:    string(KindAchievementUnlocked),
		Title:   a.Title,
		Message: a.Description,
		Icon:    Icon(KindAchievementUnlocked, a.Tier),
		Points:  a.RewardPoints,
		RefID:   a.ID,
	}
}

// ChallengeCompleted celebrates a finished challenge whose reward is ready to claim.
func ChallengeCompleted(c progress.ChallengeInstance) events.GamificationEvent {
	title := "Challenge complete"
	if t, ok := challenge.Lookup(c.TemplateID); ok {
		title = t.Title
	}
	return events.GamificationEvent{
		Kind:    string(KindChallengeCompleted),
		Title:   title,
		Message: fmt.Sprintf("Claim %d points for finishing this %s challenge.", c.RewardPoints, c.Period),
		Icon:    Icon(KindChallengeCompleted, ""),
		Points:  c.RewardPoints,
		RefID:   c.ID,
	}
}

// MilestoneReached celebrates a streak or level milestone.
func MilestoneReached(m milestone.Milestone) events.GamificationEvent {
	return events.GamificationEvent{
		Kind:    string(KindMilestoneReached),
		Title:   m.Title,
		Message: fmt.Sprintf("You earned the %s badge.", m.Badge),
		Icon:    Icon(KindMilestoneReached, ""),
		Points:  m.RewardPoints,
		RefID:   m.ID,
	}
}

// StreakExtended celebrates another consecutive day. bonus is the streak bonus paid, if any.
func StreakExtended(streak, bonus int) events.GamificationEvent {
	msg := "Come back tomorrow to keep it going."
	if bonus > 0 {
		msg = fmt.Sprintf("Streak bonus: +%d points!", bonus)
	}
	return events.GamificationEvent{
		Kind:    string(KindStreakExtended),
		Title:   fmt.Sprintf("%d day streak", streak),
		Message: msg,
		Icon:    Icon(KindStreakExtended, ""),
		Points:  bonus,
		RefID:   fmt.Sprintf("streak_%d", streak),
	}
}
