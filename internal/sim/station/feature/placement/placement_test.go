package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/grid"
	"apexhorizons.ai/internal/sim/tuning"
)

func def(t *testing.T, k catalogs.Kind) catalogs.ModuleDef {
	t.Helper()
	d, ok := catalogs.Default().Def(k)
	require.True(t, ok)
	return d
}

func query(t *testing.T, k catalogs.Kind, cell grid.Coord, base []Placed) Query {
	return Query{
		Def:            def(t, k),
		Cell:           cell,
		Base:           base,
		Currency:       1000,
		CostMultiplier: 1,
		Population:     2,
		Sandbox:        true,
		Limits:         tuning.Defaults().Limits,
	}
}

func TestEvaluate_AdjacentLegalFarRefused(t *testing.T) {
	base := []Placed{{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{}}}

	r := Evaluate(query(t, catalogs.KindCryptoGenerator, grid.Coord{X: 1}, base))
	require.Equal(t, StatusPlace, r.Status)
	assert.True(t, r.Legal)
	assert.Equal(t, "green", r.ColorClass)
	assert.Equal(t, 50.0, r.Cost)

	base = append(base, Placed{Kind: catalogs.KindCryptoGenerator, Cell: grid.Coord{X: 1}})
	r = Evaluate(query(t, catalogs.KindCryptoGenerator, grid.Coord{X: 5, Z: 5}, base))
	assert.Equal(t, StatusTooFar, r.Status)
	assert.False(t, r.Legal)
	assert.Equal(t, "too far from hub", r.Message)
}

func TestValidPlacements_NeverOccupied(t *testing.T) {
	base := []Placed{
		{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{X: 0, Z: 0}},
		{Kind: catalogs.KindDormitory, Cell: grid.Coord{X: 1, Z: 0}},
		{Kind: catalogs.KindOxygenReserve, Cell: grid.Coord{X: 0, Z: 1}},
		{Kind: catalogs.KindCryptoGenerator, Cell: grid.Coord{X: -1, Z: 0}},
	}
	occ := Occupancy(base)
	for _, k := range catalogs.AllKinds {
		cells := ValidPlacements(def(t, k), base)
		cells.Each(func(c grid.Coord) {
			_, taken := occ[c]
			assert.False(t, taken, "%s frontier contains occupied %v", k, c)
		})
	}
}

func TestValidPlacements_ConnectionRules(t *testing.T) {
	base := []Placed{
		{Kind: catalogs.KindDormitory, Cell: grid.Coord{X: 0, Z: 0}},
		{Kind: catalogs.KindOxygenReserve, Cell: grid.Coord{X: 10, Z: 0}},
	}
	green := grid.Sorted(ValidPlacements(def(t, catalogs.KindGreenhouse), base))
	assert.ElementsMatch(t, []grid.Coord{{X: 11, Z: 0}, {X: 9, Z: 0}, {X: 10, Z: 1}, {X: 10, Z: -1}}, green)

	assert.Equal(t, 0, ValidPlacements(def(t, catalogs.KindBattery), base).Size())
	assert.Equal(t, 0, ValidPlacements(def(t, catalogs.KindCryptoGenerator), base).Size())
	assert.Equal(t, 8, ValidPlacements(def(t, catalogs.KindSolarPanel), base).Size())
}

func TestCanConnect(t *testing.T) {
	miner := def(t, catalogs.KindCryptoGenerator)
	for _, k := range []catalogs.Kind{catalogs.KindRadioAntenna, catalogs.KindSolarPanel, catalogs.KindBattery, catalogs.KindRecycling} {
		assert.True(t, CanConnect(miner, k), k)
	}
	assert.False(t, CanConnect(miner, catalogs.KindDormitory))
	assert.False(t, CanConnect(def(t, catalogs.KindRecycling), catalogs.KindSolarPanel))
	assert.True(t, CanConnect(def(t, catalogs.KindScienceLab), catalogs.KindJumpDrive))
}

func TestEvaluate_OccupiedAndReplacement(t *testing.T) {
	base := []Placed{
		{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{}},
		{Kind: catalogs.KindOxygenReserve, Cell: grid.Coord{X: 1}},
	}
	for _, k := range catalogs.AllKinds {
		if k == catalogs.KindDormitory || k == catalogs.KindJumpDrive {
			continue
		}
		r := Evaluate(query(t, k, grid.Coord{X: 1}, base))
		assert.Equal(t, StatusOccupied, r.Status, k)
	}

	q := query(t, catalogs.KindDormitory, grid.Coord{X: 1}, base)
	q.Population = 0
	q.Limits.ModuleBase = 0
	r := Evaluate(q)
	assert.Equal(t, StatusReplace, r.Status, "replacement bypasses adjacency and capacity")
	assert.True(t, r.Replacement)
	assert.Equal(t, "cyan", r.ColorClass)

	q.Currency = 59
	r = Evaluate(q)
	assert.Equal(t, StatusNoFunds, r.Status)
	assert.True(t, r.Replacement)
	assert.False(t, r.Legal)
}

func TestEvaluate_JumpDriveNotReplaceable(t *testing.T) {
	base := []Placed{
		{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{}},
		{Kind: catalogs.KindJumpDrive, Cell: grid.Coord{X: 6}},
	}
	r := Evaluate(query(t, catalogs.KindDormitory, grid.Coord{X: 6}, base))
	assert.Equal(t, StatusOccupied, r.Status)
	assert.False(t, r.Replacement)
	assert.False(t, r.Legal)
}

func TestEvaluate_Precedence(t *testing.T) {
	base := []Placed{{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{}}}

	q := query(t, catalogs.KindGreenhouse, grid.Coord{X: 1}, base)
	q.Sandbox = false
	assert.Equal(t, StatusLocked, Evaluate(q).Status)

	q = query(t, catalogs.KindJumpDrive, grid.Coord{X: 1}, base)
	assert.Equal(t, StatusLocked, Evaluate(q).Status)

	q = query(t, catalogs.KindSolarPanel, grid.Coord{X: 3}, base)
	q.Currency = 0
	assert.Equal(t, StatusTooFar, Evaluate(q).Status, "distance outranks funds")

	q = query(t, catalogs.KindSolarPanel, grid.Coord{X: 1}, base)
	q.Currency = 29.99
	q.Population = 0
	q.Limits.ModuleBase = 0
	assert.Equal(t, StatusNoFunds, Evaluate(q).Status, "funds outrank capacity")

	q.Currency = 30
	r := Evaluate(q)
	assert.Equal(t, StatusModuleLimit, r.Status)
	assert.Equal(t, "magenta", r.ColorClass)
}

func TestEvaluate_CostMultiplier(t *testing.T) {
	base := []Placed{{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{}}}
	q := query(t, catalogs.KindCryptoGenerator, grid.Coord{X: 1}, base)
	q.CostMultiplier = 0.85
	q.Currency = 42.5
	r := Evaluate(q)
	assert.Equal(t, StatusPlace, r.Status)
	assert.InDelta(t, 42.5, r.Cost, 1e-9)

	q.Currency = 42.4
	assert.Equal(t, StatusNoFunds, Evaluate(q).Status)
}

func TestEvaluate_ModuleLimitExcludesJumpDrive(t *testing.T) {
	base := []Placed{
		{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{X: 0}},
		{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{X: 1}},
		{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{X: 2}},
		{Kind: catalogs.KindJumpDrive, Cell: grid.Coord{X: 3}},
	}
	q := query(t, catalogs.KindSolarPanel, grid.Coord{X: 0, Z: 1}, base)
	q.Population = 0
	assert.Equal(t, 3, ModuleCount(base))
	assert.Equal(t, StatusPlace, Evaluate(q).Status)

	q.Base = append(q.Base, Placed{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{X: 4}})
	assert.Equal(t, StatusModuleLimit, Evaluate(q).Status)

	q.Population = 2
	assert.Equal(t, 10, ModuleLimit(2, q.Limits))
	assert.Equal(t, StatusPlace, Evaluate(q).Status)
}

func TestEvaluate_AntennaLimit(t *testing.T) {
	base := []Placed{{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{}}}
	for i := 1; i <= 4; i++ {
		base = append(base, Placed{Kind: catalogs.KindRadioAntenna, Cell: grid.Coord{X: i}})
	}
	q := query(t, catalogs.KindRadioAntenna, grid.Coord{Z: 1}, base)
	q.Population = 4
	r := Evaluate(q)
	assert.Equal(t, StatusAntennaLimit, r.Status)

	q.CompletedRuns = 1
	assert.Equal(t, StatusPlace, Evaluate(q).Status)
}

func TestEvaluate_Idempotent(t *testing.T) {
	base := []Placed{
		{Kind: catalogs.KindSolarPanel, Cell: grid.Coord{}},
		{Kind: catalogs.KindDormitory, Cell: grid.Coord{X: 1}},
	}
	q := query(t, catalogs.KindOxygenReserve, grid.Coord{Z: 1}, base)
	a := Evaluate(q)
	b := Evaluate(q)
	assert.Equal(t, a, b)
	assert.Len(t, a.ValidCells, 6)
}
