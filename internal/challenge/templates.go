package challenge

import "github.com/tightbudget/gamification-service/internal/progress"

// Period is how long a challenge instance stays open.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Periods lists every period in display order.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}

// Template is a static challenge definition.
type Template struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Icon         string          `json:"icon"`
	Period       Period          `json:"period"`
	Action       progress.Action `json:"action"`
	Target       int             `json:"target"`
	RewardPoints int             `json:"reward_points"`
}

// activePerPeriod is how many templates a user gets per period.
var activePerPeriod = map[Period]int{
	PeriodDaily:   3,
	PeriodWeekly:  2,
	PeriodMonthly: 2,
}

// templates IDs are stored in user documents; keep them stable.
var templates = []Template{
	{ID: "daily_log_3", Title: "Quick Logger", Description: "Log 3 transactions today", Icon: "pencil", Period: PeriodDaily, Action: progress.ActionAddTransaction, Target: 3, RewardPoints: 30},
	{ID: "daily_log_5", Title: "Busy Bookkeeper", Description: "Log 5 transactions today", Icon: "notebook", Period: PeriodDaily, Action: progress.ActionAddTransaction, Target: 5, RewardPoints: 50},
	{ID: "daily_receipt_1", Title: "Snap It", Description: "Attach a receipt today", Icon: "camera", Period: PeriodDaily, Action: progress.ActionAddReceipt, Target: 1, RewardPoints: 20},
	{ID: "daily_receipt_3", Title: "Receipt Run", Description: "Attach 3 receipts today", Icon: "camera", Period: PeriodDaily, Action: progress.ActionAddReceipt, Target: 3, RewardPoints: 40},
	{ID: "daily_checkin", Title: "Check In", Description: "Open TightBudget today", Icon: "door", Period: PeriodDaily, Action: progress.ActionDailyLogin, Target: 1, RewardPoints: 10},
	{ID: "daily_category", Title: "Sort It Out", Description: "Add a spending category today", Icon: "tag", Period: PeriodDaily, Action: progress.ActionAddCategory, Target: 1, RewardPoints: 15},

	{ID: "weekly_log_15", Title: "Steady Tracker", Description: "Log 15 transactions this week", Icon: "list", Period: PeriodWeekly, Action: progress.ActionAddTransaction, Target: 15, RewardPoints: 100},
	{ID: "weekly_log_30", Title: "Tracking Machine", Description: "Log 30 transactions this week", Icon: "gear", Period: PeriodWeekly, Action: progress.ActionAddTransaction, Target: 30, RewardPoints: 180},
	{ID: "weekly_budget_1", Title: "Plan Ahead", Description: "Create a budget this week", Icon: "calculator", Period: PeriodWeekly, Action: progress.ActionCreateBudget, Target: 1, RewardPoints: 60},
	{ID: "weekly_under_budget", Title: "Under The Line", Description: "Finish a budget under the limit this week", Icon: "shield", Period: PeriodWeekly, Action: progress.ActionStayUnderBudget, Target: 1, RewardPoints: 120},
	{ID: "weekly_checkin_5", Title: "Regular", Description: "Open TightBudget on 5 days this week", Icon: "calendar", Period: PeriodWeekly, Action: progress.ActionDailyLogin, Target: 5, RewardPoints: 80},
	{ID: "weekly_receipt_7", Title: "Receipt Collector", Description: "Attach 7 receipts this week", Icon: "folder", Period: PeriodWeekly, Action: progress.ActionAddReceipt, Target: 7, RewardPoints: 90},

	{ID: "monthly_log_60", Title: "Month Of Records", Description: "Log 60 transactions this month", Icon: "ledger", Period: PeriodMonthly, Action: progress.ActionAddTransaction, Target: 60, RewardPoints: 300},
	{ID: "monthly_log_100", Title: "Century", Description: "Log 100 transactions this month", Icon: "hundred", Period: PeriodMonthly, Action: progress.ActionAddTransaction, Target: 100, RewardPoints: 500},
	{ID: "monthly_budgets_3", Title: "Budget Builder", Description: "Create 3 budgets this month", Icon: "blueprint", Period: PeriodMonthly, Action: progress.ActionCreateBudget, Target: 3, RewardPoints: 200},
	{ID: "monthly_under_budget_3", Title: "Consistent Saver", Description: "Finish 3 budgets under the limit this month", Icon: "trophy", Period: PeriodMonthly, Action: progress.ActionStayUnderBudget, Target: 3, RewardPoints: 350},
	{ID: "monthly_goal", Title: "Goal Crusher", Description: "Reach a savings goal this month", Icon: "flag", Period: PeriodMonthly, Action: progress.ActionReachGoal, Target: 1, RewardPoints: 400},
	{ID: "monthly_checkin_20", Title: "Habit Formed", Description: "Open TightBudget on 20 days this month", Icon: "flame", Period: PeriodMonthly, Action: progress.ActionDailyLogin, Target: 20, RewardPoints: 300},
}

// Templates returns a copy of every template.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// Lookup finds a template by id.
func Lookup(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

func templatesFor(period Period) []Template {
	var out []Template
	for _, t := range templates {
		if t.Period == period {
			out = append(out, t)
		}
	}
	return out
}
