package ledger

import (
	"math"

	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/station/feature/modifiers"
	"apexhorizons.ai/internal/sim/tuning"
)

type Stock struct {
	Energy   float64 `json:"energy"`
	Oxygen   float64 `json:"oxygen"`
	Food     float64 `json:"food"`
	Currency float64 `json:"currency"`
	Science  float64 `json:"science"`
}

// Flows are per-second rates for one tick.
type Flows struct {
	EnergyProd   float64 `json:"energy_prod"`
	EnergyDemand float64 `json:"energy_demand"`
	OxygenProd   float64 `json:"oxygen_prod"`
	OxygenDemand float64 `json:"oxygen_demand"`
	FoodProd     float64 `json:"food_prod"`
	FoodDemand   float64 `json:"food_demand"`
	CryptoRate   float64 `json:"crypto_rate"`
}

type Cause string

const (
	CauseNone   Cause = ""
	CauseOxygen Cause = "OXYGEN_DEPLETED"
	CauseEnergy Cause = "ENERGY_DEPLETED"
)

func (c Cause) Message() string {
	switch c {
	case CauseOxygen:
		return "The crew ran out of oxygen."
	case CauseEnergy:
		return "Critical power failure. Life support is offline."
	}
	return ""
}

type Input struct {
	DT      float64
	Stock   Stock
	Modules []catalogs.ModuleDef
	Mods    modifiers.Modifiers
	Economy tuning.Economy
}

type Output struct {
	Stock           Stock   `json:"stock"`
	Flows           Flows   `json:"flows"`
	EnergyRatio     float64 `json:"energy_ratio"`
	EnergyMax       float64 `json:"energy_max"`
	OxygenMax       float64 `json:"oxygen_max"`
	Population      int     `json:"population"`
	PopulationBonus float64 `json:"population_bonus"`
	Defeat          Cause   `json:"defeat,omitempty"`
}

// Trend returns net per-second change of energy, oxygen, food and currency.
func (f Flows) Trend() (energy, oxygen, food, currency float64) {
	return f.EnergyProd - f.EnergyDemand, f.OxygenProd - f.OxygenDemand, f.FoodProd - f.FoodDemand, f.CryptoRate
}

func Population(defs []catalogs.ModuleDef) int {
	n := 0
	for _, d := range defs {
		if d.Kind == catalogs.KindDormitory {
			n += d.OccupantGenerated
		}
	}
	return n
}

func PopulationBonus(population int, econ tuning.Economy) float64 {
	extra := population - econ.PopulationBonusFree
	if extra < 0 {
		extra = 0
	}
	return 1 + float64(extra)*econ.PopulationBonusStep
}

// Maxima returns the energy and oxygen caps: the base caps scaled by the storage
// multiplier plus every battery and recycling bonus.
func Maxima(defs []catalogs.ModuleDef, mods modifiers.Modifiers, econ tuning.Economy) (energyMax, oxygenMax float64) {
	energyMax = econ.BaseEnergyMax * mods.StorageMultiplier
	oxygenMax = econ.BaseOxygenMax * mods.StorageMultiplier
	for _, d := range defs {
		switch d.Kind {
		case catalogs.KindBattery:
			energyMax += d.StorageBonus
		case catalogs.KindRecycling:
			oxygenMax += d.StorageBonus
		}
	}
	return energyMax, oxygenMax
}

// Tick advances the stock by one frame. It never mutates in.
func Tick(in Input) Output {
	dt := in.DT
	if !(dt > 0) || math.IsInf(dt, 0) {
		dt = 0
	}
	mods := in.Mods
	econ := in.Economy

	pop := Population(in.Modules)
	popBonus := PopulationBonus(pop, econ)
	foodMult := 1.0
	if !(in.Stock.Food > 0) {
		foodMult = econ.StarvingMultiplier
	}
	global := popBonus * foodMult
	energyMax, oxygenMax := Maxima(in.Modules, mods, econ)

	var f Flows
	miners := 0.0
	for _, d := range in.Modules {
		switch d.Kind {
		case catalogs.KindSolarPanel:
			f.EnergyProd += d.EnergyGenerated * global * mods.SolarEfficiency
		case catalogs.KindCryptoGenerator:
			f.EnergyDemand += d.EnergyConsumption
			miners += d.BaseGenerationRate
		case catalogs.KindOxygenReserve:
			f.OxygenProd += d.OxygenProduction * global * mods.OxygenEfficiency
		case catalogs.KindDormitory:
			occ := float64(d.OccupantGenerated)
			if occ <= 0 {
				occ = 1
			}
			f.OxygenDemand += d.OxygenConsumption * occ * mods.PopulationConsumption
			f.FoodDemand += d.FoodConsumption * occ * mods.PopulationConsumption
		case catalogs.KindGreenhouse:
			f.OxygenDemand += d.OxygenConsumption
			f.FoodProd += d.FoodProduction * global * mods.FoodEfficiency
		}
	}

	ratio := 0.0
	if in.Stock.Energy > 0 || f.EnergyProd >= f.EnergyDemand {
		ratio = 1
	}
	if mods.VirusActive {
		ratio *= econ.VirusMalus
	}
	f.CryptoRate = miners * ratio * popBonus * mods.CryptoEfficiency

	s := in.Stock
	s.Energy = clamp(s.Energy+(f.EnergyProd-f.EnergyDemand)*dt, 0, energyMax)
	s.Oxygen = clamp(s.Oxygen+(f.OxygenProd-f.OxygenDemand)*dt, 0, oxygenMax)
	s.Food = floor0(s.Food + (f.FoodProd-f.FoodDemand)*dt)
	s.Currency = floor0(s.Currency + f.CryptoRate*dt)
	s.Science = floor0(s.Science)

	out := Output{
		Stock:           s,
		Flows:           f,
		EnergyRatio:     ratio,
		EnergyMax:       energyMax,
		OxygenMax:       oxygenMax,
		Population:      pop,
		PopulationBonus: popBonus,
	}
	switch {
	case s.Oxygen <= 0:
		out.Defeat = CauseOxygen
	case s.Energy <= 0:
		out.Defeat = CauseEnergy
	}
	return out
}

// Clamp restores the stock invariants after an out-of-ledger mutation (trade, reward, load).
func Clamp(s Stock, energyMax, oxygenMax float64) Stock {
	s.Energy = clamp(s.Energy, 0, energyMax)
	s.Oxygen = clamp(s.Oxygen, 0, oxygenMax)
	s.Food = floor0(s.Food)
	s.Currency = floor0(s.Currency)
	s.Science = floor0(s.Science)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func floor0(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
