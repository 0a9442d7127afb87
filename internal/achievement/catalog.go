package achievement

import "github.com/tightbudget/gamification-service/internal/progress"

// Metric names the single numeric field an achievement compares against.
type Metric string

const (
	MetricTransactionsLogged Metric = "transactions_logged"
	MetricReceiptsAttached   Metric = "receipts_attached"
	MetricBudgetsCreated     Metric = "budgets_created"
	MetricBudgetsMet         Metric = "budgets_met"
	MetricGoalsReached       Metric = "goals_reached"
	MetricLongestStreak      Metric = "longest_streak"
	MetricTotalPoints        Metric = "total_points"
)

// Tier groups achievements for presentation.
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Achievement is a static catalog row.
type Achievement struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Icon         string `json:"icon"`
	Tier         Tier   `json:"tier"`
	Metric       Metric `json:"metric"`
	Threshold    int    `json:"threshold"`
	RewardPoints int    `json:"reward_points"`
}

// catalog IDs are persisted in user documents; never rename them.
var catalog = []Achievement{
	{ID: "first_transaction", Title: "First Steps", Description: "Log your first transaction", Icon: "receipt", Tier: TierBronze, Metric: MetricTransactionsLogged, Threshold: 1, RewardPoints: 10},
	{ID: "transaction_tracker", Title: "Transaction Tracker", Description: "Log 25 transactions", Icon: "list", Tier: TierSilver, Metric: MetricTransactionsLogged, Threshold: 25, RewardPoints: 50},
	{ID: "transaction_master", Title: "Transaction Master", Description: "Log 100 transactions", Icon: "ledger", Tier: TierGold, Metric: MetricTransactionsLogged, Threshold: 100, RewardPoints: 150},

	{ID: "receipt_rookie", Title: "Receipt Rookie", Description: "Attach your first receipt", Icon: "camera", Tier: TierBronze, Metric: MetricReceiptsAttached, Threshold: 1, RewardPoints: 10},
	{ID: "receipt_keeper", Title: "Receipt Keeper", Description: "Attach 10 receipts", Icon: "folder", Tier: TierSilver, Metric: MetricReceiptsAttached, Threshold: 10, RewardPoints: 40},
	{ID: "paper_trail", Title: "Paper Trail", Description: "Attach 50 receipts", Icon: "archive", Tier: TierGold, Metric: MetricReceiptsAttached, Threshold: 50, RewardPoints: 120},

	{ID: "budget_beginner", Title: "Budget Beginner", Description: "Create your first budget", Icon: "calculator", Tier: TierBronze, Metric: MetricBudgetsCreated, Threshold: 1, RewardPoints: 15},
	{ID: "budget_planner", Title: "Budget Planner", Description: "Create 5 budgets", Icon: "clipboard", Tier: TierSilver, Metric: MetricBudgetsCreated, Threshold: 5, RewardPoints: 50},
	{ID: "budget_architect", Title: "Budget Architect", Description: "Create 15 budgets", Icon: "blueprint", Tier: TierGold, Metric: MetricBudgetsCreated, Threshold: 15, RewardPoints: 120},

	{ID: "on_target", Title: "On Target", Description: "Finish a budget period under the limit", Icon: "target", Tier: TierBronze, Metric: MetricBudgetsMet, Threshold: 1, RewardPoints: 25},
	{ID: "disciplined_spender", Title: "Disciplined Spender", Description: "Stay under budget 5 times", Icon: "shield", Tier: TierSilver, Metric: MetricBudgetsMet, Threshold: 5, RewardPoints: 75},
	{ID: "budget_champion", Title: "Budget Champion", Description: "Stay under budget 20 times", Icon: "trophy", Tier: TierGold, Metric: MetricBudgetsMet, Threshold: 20, RewardPoints: 200},

	{ID: "goal_getter", Title: "Goal Getter", Description: "Reach your first savings goal", Icon: "flag", Tier: TierBronze, Metric: MetricGoalsReached, Threshold: 1, RewardPoints: 50},
	{ID: "dream_chaser", Title: "Dream Chaser", Description: "Reach 3 savings goals", Icon: "rocket", Tier: TierSilver, Metric: MetricGoalsReached, Threshold: 3, RewardPoints: 100},
	{ID: "wealth_builder", Title: "Wealth Builder", Description: "Reach 10 savings goals", Icon: "mountain", Tier: TierGold, Metric: MetricGoalsReached, Threshold: 10, RewardPoints: 250},

	{ID: "warming_up", Title: "Warming Up", Description: "Keep a 3 day streak", Icon: "flame", Tier: TierBronze, Metric: MetricLongestStreak, Threshold: 3, RewardPoints: 15},
	{ID: "week_warrior", Title: "Week Warrior", Description: "Keep a 7 day streak", Icon: "calendar", Tier: TierSilver, Metric: MetricLongestStreak, Threshold: 7, RewardPoints: 50},
	{ID: "habit_hero", Title: "Habit Hero", Description: "Keep a 30 day streak", Icon: "lightning", Tier: TierGold, Metric: MetricLongestStreak, Threshold: 30, RewardPoints: 200},

	{ID: "point_collector", Title: "Point Collector", Description: "Earn 500 points", Icon: "star", Tier: TierBronze, Metric: MetricTotalPoints, Threshold: 500, RewardPoints: 25},
	{ID: "point_hoarder", Title: "Point Hoarder", Description: "Earn 2,500 points", Icon: "stars", Tier: TierSilver, Metric: MetricTotalPoints, Threshold: 2500, RewardPoints: 100},
	{ID: "point_legend", Title: "Point Legend", Description: "Earn 10,000 points", Icon: "medal", Tier: TierGold, Metric: MetricTotalPoints, Threshold: 10000, RewardPoints: 250},
}

// Catalog returns a copy of every achievement in display order.
func Catalog() []Achievement {
	out := make([]Achievement, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds an achievement by id.
func Lookup(id string) (Achievement, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// Value reads the metric from a progress record.
func (m Metric) Value(p progress.UserProgress) int {
	switch m {
	case MetricTransactionsLogged:
		return p.TransactionsLogged
	case MetricReceiptsAttached:
		return p.ReceiptsAttached
	case MetricBudgetsCreated:
		return p.BudgetsCreated
	case MetricBudgetsMet:
		return p.BudgetsMet
	case MetricGoalsReached:
		return p.GoalsReached
	case MetricLongestStreak:
		return p.LongestStreak
	case MetricTotalPoints:
		return p.TotalPoints
	default:
		return 0
	}
}
