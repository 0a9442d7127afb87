package progress

// Level is one row of the static level table.
type Level struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	MinPoints int    `json:"min_points"`
	Icon      string `json:"icon"`
}

// levels must stay sorted by MinPoints; LevelFor relies on it.
var levels = []Level{
	{Number: 1, Title: "Novice Saver", MinPoints: 0, Icon: "seedling"},
	{Number: 2, Title: "Budget Beginner", MinPoints: 100, Icon: "sprout"},
	{Number: 3, Title: "Penny Tracker", MinPoints: 250, Icon: "coin"},
	{Number: 4, Title: "Smart Spender", MinPoints: 500, Icon: "wallet"},
	{Number: 5, Title: "Savings Apprentice", MinPoints: 1000, Icon: "piggy_bank"},
	{Number: 6, Title: "Budget Pro", MinPoints: 2000, Icon: "chart"},
	{Number: 7, Title: "Money Manager", MinPoints: 3500, Icon: "briefcase"},
	{Number: 8, Title: "Finance Expert", MinPoints: 5500, Icon: "bank"},
	{Number: 9, Title: "Wealth Builder", MinPoints: 8000, Icon: "gem"},
	{Number: 10, Title: "Financial Guru", MinPoints: 12000, Icon: "crown"},
}

// LevelStatus describes where a points total sits inside the level table.
type LevelStatus struct {
	Current         Level  `json:"current"`
	Next            *Level `json:"next,omitempty"`
	PointsIntoLevel int    `json:"points_into_level"`
	PointsToNext    int    `json:"points_to_next"`
	Percent         int    `json:"percent"`
	MaxLevel        bool   `json:"max_level"`
}

// Levels returns a copy of the level table.
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}

// MaxLevel is the highest level number.
func MaxLevel() int {
	return levels[len(levels)-1].Number
}

// LevelFor returns the highest level whose threshold is at or below points.
func LevelFor(points int) Level {
	current := levels[0]
	for _, l := range levels[1:] {
		if points < l.MinPoints {
			break
		}
		current = l
	}
	return current
}

// LevelProgress computes progress towards the next level.
func LevelProgress(points int) LevelStatus {
	points = max(points, 0)
	current := LevelFor(points)
	status := LevelStatus{
		Current:         current,
		PointsIntoLevel: points - current.MinPoints,
	}

	if current.Number >= MaxLevel() {
		status.MaxLevel = true
		status.Percent = 100
		return status
	}

	next := levels[current.Number] // levels are numbered from 1
	status.Next = &next
	status.PointsToNext = next.MinPoints - points
	status.Percent = Percent(points-current.MinPoints, next.MinPoints-current.MinPoints)
	return status
}
