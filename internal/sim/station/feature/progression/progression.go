package progression

import (
	"math"
	"math/rand"
	"strconv"

	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/grid"
)

type Goal struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Metric string  `json:"metric"`
	Target float64 `json:"target"`
	Scale  float64 `json:"scale"`
}

// Snapshot is the station state a goal is checked against.
type Snapshot struct {
	Currency    float64
	Food        float64
	EnergyMax   float64
	OxygenMax   float64
	Population  int
	Modules     int
	Greenhouses int
	Antennas    int
}

func Scale(completedRuns int, perRun float64) float64 {
	if completedRuns < 0 {
		completedRuns = 0
	}
	return 1 + float64(completedRuns)*perRun
}

func GenerateGoals(templates []catalogs.GoalTemplate, completedRuns int, perRun float64) []Goal {
	scale := Scale(completedRuns, perRun)
	out := make([]Goal, 0, len(templates))
	for _, t := range templates {
		out = append(out, Goal{
			ID:     t.ID,
			Title:  t.Title,
			Metric: t.Metric,
			Target: t.Target * scale,
			Scale:  scale,
		})
	}
	return out
}

func Pick(goals []Goal, rng *rand.Rand) (Goal, bool) {
	if len(goals) == 0 {
		return Goal{}, false
	}
	return goals[rng.Intn(len(goals))], true
}

func Find(goals []Goal, id string) (Goal, bool) {
	for _, g := range goals {
		if g.ID == id {
			return g, true
		}
	}
	return Goal{}, false
}

// Value is the metric Check compares against the target.
func Value(metric string, s Snapshot) float64 {
	switch metric {
	case catalogs.MetricCurrency:
		return s.Currency
	case catalogs.MetricPopulation:
		return float64(s.Population)
	case catalogs.MetricFood:
		return s.Food
	case catalogs.MetricOxygenMax:
		return s.OxygenMax
	case catalogs.MetricEnergyMax:
		return s.EnergyMax
	case catalogs.MetricModules:
		return float64(s.Modules)
	case catalogs.MetricGreenhouses:
		return float64(s.Greenhouses)
	case catalogs.MetricAntennas:
		return float64(s.Antennas)
	}
	return 0
}

func Check(g Goal, s Snapshot) bool {
	if g.Target <= 0 {
		return false
	}
	return Value(g.Metric, s) >= g.Target
}

// Progress is the completion percentage in [0,100].
func Progress(g Goal, s Snapshot) float64 {
	if g.Target <= 0 {
		return 0
	}
	p := Value(g.Metric, s) / g.Target * 100
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Label renders the goal for display with the target rounded.
func (g Goal) Label() string {
	return g.Title + " (" + strconv.FormatInt(int64(math.Round(g.Target)), 10) + " " + g.Metric + ")"
}

// JumpDriveCell picks one of the four cardinal points at radius around center.
// When the pick is occupied the remaining cardinal points are tried clockwise;
// when all four are taken the radius grows by one.
func JumpDriveCell(rng *rand.Rand, center grid.Coord, radius int, occupied func(grid.Coord) bool) grid.Coord {
	if radius < 1 {
		radius = 1
	}
	start := rng.Intn(4)
	for r := radius; ; r++ {
		pts := grid.Cardinal(center, r)
		for i := 0; i < 4; i++ {
			c := pts[(start+i)%4]
			if !occupied(c) {
				return c
			}
		}
	}
}
