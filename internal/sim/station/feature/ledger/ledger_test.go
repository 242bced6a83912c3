package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/station/feature/modifiers"
	"apexhorizons.ai/internal/sim/tuning"
)

func defs(t *testing.T, kinds ...catalogs.Kind) []catalogs.ModuleDef {
	t.Helper()
	cats := catalogs.Default()
	out := make([]catalogs.ModuleDef, 0, len(kinds))
	for _, k := range kinds {
		d, ok := cats.Def(k)
		require.True(t, ok, k)
		out = append(out, d)
	}
	return out
}

func input(t *testing.T, dt float64, s Stock, kinds ...catalogs.Kind) Input {
	return Input{
		DT:      dt,
		Stock:   s,
		Modules: defs(t, kinds...),
		Mods:    modifiers.Defaults(),
		Economy: tuning.Defaults().Economy,
	}
}

func TestTick_EnergyDefeatReportedAfterOxygenCheck(t *testing.T) {
	out := Tick(input(t, 10, Stock{Energy: 10, Oxygen: 10}, catalogs.KindCryptoGenerator))

	assert.Equal(t, 0.0, out.Stock.Energy)
	assert.Equal(t, 10.0, out.Stock.Oxygen)
	assert.Equal(t, 200.0, out.EnergyMax)
	assert.Equal(t, CauseEnergy, out.Defeat)
	assert.Equal(t, 1.0, out.EnergyRatio)
	assert.InDelta(t, 5.0, out.Stock.Currency, 1e-9)
}

func TestTick_OxygenWinsWhenBothDepleted(t *testing.T) {
	out := Tick(input(t, 100, Stock{Energy: 1, Oxygen: 1, Food: 10}, catalogs.KindCryptoGenerator, catalogs.KindDormitory))
	assert.Equal(t, 0.0, out.Stock.Energy)
	assert.Equal(t, 0.0, out.Stock.Oxygen)
	assert.Equal(t, CauseOxygen, out.Defeat)
	assert.NotEmpty(t, out.Defeat.Message())
}

func TestTick_ExactBalanceGreenhouseDormitory(t *testing.T) {
	in := input(t, 1, Stock{Energy: 100, Oxygen: 100, Food: 50},
		catalogs.KindSolarPanel, catalogs.KindDormitory,
		catalogs.KindOxygenReserve, catalogs.KindOxygenReserve, catalogs.KindGreenhouse)
	out := Tick(in)

	require.Equal(t, CauseNone, out.Defeat)
	assert.Equal(t, 2, out.Population)
	assert.Equal(t, 1.0, out.PopulationBonus)

	assert.InDelta(t, 6.0, out.Flows.OxygenProd, 1e-9)
	assert.InDelta(t, 3.4, out.Flows.OxygenDemand, 1e-9)
	assert.InDelta(t, 2.0, out.Flows.FoodProd, 1e-9)
	assert.InDelta(t, 1.0, out.Flows.FoodDemand, 1e-9)

	assert.InDelta(t, 102.0, out.Stock.Energy, 1e-9)
	assert.InDelta(t, 102.6, out.Stock.Oxygen, 1e-9)
	assert.InDelta(t, 51.0, out.Stock.Food, 1e-9)

	e, o, f, c := out.Flows.Trend()
	assert.InDelta(t, 2.0, e, 1e-9)
	assert.InDelta(t, 2.6, o, 1e-9)
	assert.InDelta(t, 1.0, f, 1e-9)
	assert.Equal(t, 0.0, c)

	assert.Equal(t, Stock{Energy: 100, Oxygen: 100, Food: 50}, in.Stock, "input must not be mutated")
}

func TestTick_CapsHoldForAnyDelta(t *testing.T) {
	kinds := []catalogs.Kind{catalogs.KindSolarPanel, catalogs.KindOxygenReserve, catalogs.KindBattery, catalogs.KindRecycling}
	for _, dt := range []float64{0, 0.016, 1, 60, 1e6, 1e12, -5, math.NaN(), math.Inf(1)} {
		out := Tick(input(t, dt, Stock{Energy: 150, Oxygen: 150, Food: 5}, kinds...))
		assert.GreaterOrEqual(t, out.Stock.Energy, 0.0, "dt=%v", dt)
		assert.LessOrEqual(t, out.Stock.Energy, out.EnergyMax, "dt=%v", dt)
		assert.GreaterOrEqual(t, out.Stock.Oxygen, 0.0, "dt=%v", dt)
		assert.LessOrEqual(t, out.Stock.Oxygen, out.OxygenMax, "dt=%v", dt)
		assert.Equal(t, 700.0, out.EnergyMax)
		assert.Equal(t, 700.0, out.OxygenMax)
	}
}

func TestTick_ZeroDeltaIsNoOp(t *testing.T) {
	s := Stock{Energy: 50, Oxygen: 60, Food: 7, Currency: 12, Science: 3}
	out := Tick(input(t, 0, s, catalogs.KindCryptoGenerator, catalogs.KindSolarPanel, catalogs.KindDormitory))
	assert.Equal(t, s, out.Stock)
}

func TestTick_StarvationAndPopulationBonus(t *testing.T) {
	out := Tick(input(t, 1, Stock{Energy: 10, Oxygen: 100, Food: 0}, catalogs.KindSolarPanel))
	assert.InDelta(t, 1.6, out.Flows.EnergyProd, 1e-9)

	out = Tick(input(t, 1, Stock{Energy: 10, Oxygen: 100, Food: 100},
		catalogs.KindSolarPanel, catalogs.KindDormitory, catalogs.KindDormitory, catalogs.KindDormitory))
	assert.Equal(t, 6, out.Population)
	assert.InDelta(t, 1.2, out.PopulationBonus, 1e-9)
	assert.InDelta(t, 2.4, out.Flows.EnergyProd, 1e-9)
}

func TestTick_VirusSuppressesMiners(t *testing.T) {
	in := input(t, 10, Stock{Energy: 100, Oxygen: 100, Food: 10}, catalogs.KindCryptoGenerator, catalogs.KindSolarPanel)
	in.Mods.StartVirus(20)
	out := Tick(in)
	assert.Equal(t, 0.0, out.EnergyRatio)
	assert.Equal(t, 0.0, out.Stock.Currency)

	in.Economy.VirusMalus = 0.3
	out = Tick(in)
	assert.InDelta(t, 0.3, out.EnergyRatio, 1e-9)
	assert.InDelta(t, 1.5, out.Stock.Currency, 1e-9)
}

func TestTick_MinersStallWithoutPower(t *testing.T) {
	out := Tick(input(t, 1, Stock{Energy: 0, Oxygen: 100, Food: 10}, catalogs.KindCryptoGenerator))
	assert.Equal(t, 0.0, out.EnergyRatio)
	assert.Equal(t, 0.0, out.Stock.Currency)
}

func TestTick_CryptoEfficiencyAndBonus(t *testing.T) {
	in := input(t, 2, Stock{Energy: 100, Oxygen: 100, Food: 10},
		catalogs.KindCryptoGenerator, catalogs.KindCryptoGenerator,
		catalogs.KindDormitory, catalogs.KindDormitory)
	in.Mods.CryptoEfficiency = 1.2
	out := Tick(in)
	// 2 miners * 0.5 * popBonus(4 -> 1.1) * 1.2 * 2s
	assert.InDelta(t, 2*0.5*1.1*1.2*2, out.Stock.Currency, 1e-9)
}

func TestMaxima_StorageMultiplier(t *testing.T) {
	mods := modifiers.Defaults()
	mods.StorageMultiplier = 1.2
	e, o := Maxima(defs(t, catalogs.KindBattery), mods, tuning.Defaults().Economy)
	assert.InDelta(t, 740.0, e, 1e-9)
	assert.InDelta(t, 240.0, o, 1e-9)
}

func TestClamp(t *testing.T) {
	s := Clamp(Stock{Energy: 900, Oxygen: -3, Food: -1, Currency: math.NaN()}, 200, 200)
	assert.Equal(t, Stock{Energy: 200}, s)
}
