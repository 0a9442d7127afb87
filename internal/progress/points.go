package progress

import (
	"fmt"
	"strings"
)

// Action identifies a user action that can earn points.
type Action string

const (
	ActionAddTransaction  Action = "add_transaction"
	ActionAddReceipt      Action = "add_receipt"
	ActionCreateBudget    Action = "create_budget"
	ActionStayUnderBudget Action = "stay_under_budget"
	ActionCreateGoal      Action = "create_goal"
	ActionReachGoal       Action = "reach_goal"
	ActionAddCategory     Action = "add_category"
	ActionDailyLogin      Action = "daily_login"
)

// PointRule is one row of the static point table.
type PointRule struct {
	Action      Action `json:"action"`
	Points      int    `json:"points"`
	DailyCap    int    `json:"daily_cap,omitempty"` // 0 means uncapped
	Description string `json:"description"`
}

var pointRules = []PointRule{
	{Action: ActionAddTransaction, Points: 10, DailyCap: 20, Description: "Log an income or expense transaction"},
	{Action: ActionAddReceipt, Points: 5, DailyCap: 10, Description: "Attach a receipt photo to a transaction"},
	{Action: ActionCreateBudget, Points: 25, DailyCap: 3, Description: "Create a category budget"},
	{Action: ActionStayUnderBudget, Points: 50, Description: "Finish a budget period under the limit"},
	{Action: ActionCreateGoal, Points: 20, DailyCap: 3, Description: "Create a savings goal"},
	{Action: ActionReachGoal, Points: 100, Description: "Reach a savings goal"},
	{Action: ActionAddCategory, Points: 10, DailyCap: 5, Description: "Add a spending category"},
	{Action: ActionDailyLogin, Points: 5, DailyCap: 1, Description: "Open the app"},
}

const (
	streakBonusEvery = 7
	streakBonusStep  = 20
	streakBonusMax   = 100
)

// PointRules returns a copy of the point table.
func PointRules() []PointRule {
	out := make([]PointRule, len(pointRules))
	copy(out, pointRules)
	return out
}

// RuleFor looks up the point rule for an action.
func RuleFor(action Action) (PointRule, bool) {
	for _, r := range pointRules {
		if r.Action == action {
			return r, true
		}
	}
	return PointRule{}, false
}

// PointsFor returns the points a single occurrence of action earns (0 for unknown actions).
func PointsFor(action Action) int {
	rule, _ := RuleFor(action)
	return rule.Points
}

// ParseAction validates a client-supplied action name.
func ParseAction(raw string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := RuleFor(action); !ok {
		return "", fmt.Errorf("unknown action %q", raw)
	}
	return action, nil
}

// CappedCount returns how many of requested repetitions still earn points given used
// repetitions already counted today.
func CappedCount(action Action, used, requested int) int {
	if requested <= 0 {
		return 0
	}
	rule, ok := RuleFor(action)
	if !ok {
		return 0
	}
	if rule.DailyCap <= 0 {
		return requested
	}
	remaining := rule.DailyCap - used
	if remaining <= 0 {
		return 0
	}
	return min(requested, remaining)
}

// StreakBonus returns the bonus paid when the streak lands on a multiple of seven days.
func StreakBonus(streak int) int {
	if streak <= 0 || streak%streakBonusEvery != 0 {
		return 0
	}
	return min(streakBonusStep*(streak/streakBonusEvery), streakBonusMax)
}

// Percent returns current/target as a whole percentage clamped to [0, 100]. A non-positive
// target counts as already met.
func Percent(current, target int) int {
	if target <= 0 {
		return 100
	}
	if current <= 0 {
		return 0
	}
	return min(current*100/target, 100)
}
