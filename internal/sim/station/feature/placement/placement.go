package placement

import (
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/grid"
	"apexhorizons.ai/internal/sim/tuning"
)

type Status string

const (
	StatusPlace        Status = "PLACE"
	StatusReplace      Status = "REPLACE"
	StatusLocked       Status = "LOCKED"
	StatusOccupied     Status = "OCCUPIED"
	StatusTooFar       Status = "TOO_FAR"
	StatusNoFunds      Status = "NO_FUNDS"
	StatusModuleLimit  Status = "MODULE_LIMIT"
	StatusAntennaLimit Status = "ANTENNA_LIMIT"
)

func (s Status) Legal() bool { return s == StatusPlace || s == StatusReplace }

func (s Status) Message() string {
	switch s {
	case StatusPlace:
		return "place"
	case StatusReplace:
		return "replace"
	case StatusLocked:
		return "locked"
	case StatusOccupied:
		return "cell occupied"
	case StatusTooFar:
		return "too far from hub"
	case StatusNoFunds:
		return "insufficient funds"
	case StatusModuleLimit:
		return "module limit reached (add dormitories)"
	case StatusAntennaLimit:
		return "antenna limit reached"
	}
	return string(s)
}

// ColorClass is the ghost colour the presentation layer draws for s.
func (s Status) ColorClass() string {
	switch s {
	case StatusPlace:
		return "green"
	case StatusReplace:
		return "cyan"
	case StatusOccupied:
		return "red"
	case StatusTooFar:
		return "orange"
	case StatusNoFunds:
		return "yellow"
	case StatusModuleLimit, StatusAntennaLimit:
		return "magenta"
	}
	return "grey"
}

// Placed is the part of a placed module the validator looks at.
type Placed struct {
	Kind catalogs.Kind
	Cell grid.Coord
}

// CanConnect reports whether a candidate may be placed next to an existing module of kind existing.
func CanConnect(candidate catalogs.ModuleDef, existing catalogs.Kind) bool {
	if candidate.Universal() {
		return true
	}
	for _, k := range candidate.ConnectsTo {
		if k == existing {
			return true
		}
	}
	return false
}

func Occupancy(base []Placed) map[grid.Coord]catalogs.Kind {
	occ := make(map[grid.Coord]catalogs.Kind, len(base))
	for _, p := range base {
		occ[p.Cell] = p.Kind
	}
	return occ
}

// ValidPlacements is the adjacency frontier: every unoccupied orthogonal
// neighbour of a module the candidate may connect to.
func ValidPlacements(candidate catalogs.ModuleDef, base []Placed) grid.Set {
	occ := Occupancy(base)
	out := grid.NewSet()
	for _, p := range base {
		if !CanConnect(candidate, p.Kind) {
			continue
		}
		for _, n := range grid.Neighbors(p.Cell) {
			if _, taken := occ[n]; !taken {
				out.Put(n)
			}
		}
	}
	return out
}

func ModuleCount(base []Placed) int {
	n := 0
	for _, p := range base {
		if p.Kind != catalogs.KindJumpDrive {
			n++
		}
	}
	return n
}

func CountKind(base []Placed, k catalogs.Kind) int {
	n := 0
	for _, p := range base {
		if p.Kind == k {
			n++
		}
	}
	return n
}

func ModuleLimit(population int, l tuning.Limits) int {
	return l.ModuleBase + population*l.ModulePerOccupant
}

func AntennaLimit(completedRuns int, l tuning.Limits) int {
	return l.AntennaBase + completedRuns
}

type Query struct {
	Def            catalogs.ModuleDef
	Cell           grid.Coord
	Base           []Placed
	Currency       float64
	CostMultiplier float64
	Population     int
	CompletedRuns  int
	Sandbox        bool
	Limits         tuning.Limits
}

type Result struct {
	Kind        catalogs.Kind `json:"kind"`
	ValidCells  []grid.Coord  `json:"valid_cells"`
	Cell        grid.Coord    `json:"cell"`
	Status      Status        `json:"status"`
	Message     string        `json:"message"`
	ColorClass  string        `json:"color_class"`
	Legal       bool          `json:"legal"`
	Replacement bool          `json:"replacement"`
	Cost        float64       `json:"cost"`
}

// Locked reports whether def cannot be bought in the current mode.
func Locked(def catalogs.ModuleDef, sandbox bool) bool {
	return !def.Purchasable || (def.Advanced && !sandbox)
}

// Evaluate decides commit legality for q.Cell. Refusals are reported in Status.
func Evaluate(q Query) Result {
	frontier := ValidPlacements(q.Def, q.Base)
	mult := q.CostMultiplier
	if mult <= 0 {
		mult = 1
	}
	res := Result{
		Kind:       q.Def.Kind,
		ValidCells: grid.Sorted(frontier),
		Cell:       q.Cell,
		Cost:       q.Def.Cost * mult,
	}
	finish := func(s Status) Result {
		res.Status = s
		res.Message = s.Message()
		res.ColorClass = s.ColorClass()
		res.Legal = s.Legal()
		return res
	}

	if Locked(q.Def, q.Sandbox) {
		return finish(StatusLocked)
	}
	occupant, occupied := Occupancy(q.Base)[q.Cell]
	if occupied {
		// The jump drive is the only way out of JUMP_READY.
		if !q.Def.Replaces || occupant == catalogs.KindJumpDrive {
			return finish(StatusOccupied)
		}
		res.Replacement = true
		if q.Currency < res.Cost {
			return finish(StatusNoFunds)
		}
		return finish(StatusReplace)
	}
	if !frontier.Has(q.Cell) {
		return finish(StatusTooFar)
	}
	if q.Currency < res.Cost {
		return finish(StatusNoFunds)
	}
	if ModuleCount(q.Base) >= ModuleLimit(q.Population, q.Limits) {
		return finish(StatusModuleLimit)
	}
	if q.Def.Kind == catalogs.KindRadioAntenna && CountKind(q.Base, catalogs.KindRadioAntenna) >= AntennaLimit(q.CompletedRuns, q.Limits) {
		return finish(StatusAntennaLimit)
	}
	return finish(StatusPlace)
}
