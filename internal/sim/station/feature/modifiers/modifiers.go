package modifiers

import (
	"fmt"

	"apexhorizons.ai/internal/sim/catalogs"
)

// Modifiers is the run-wide multiplier state read by the ledger and the placement validator.
type Modifiers struct {
	SolarEfficiency   float64 `json:"solar_efficiency"`
	CryptoEfficiency  float64 `json:"crypto_efficiency"`
	OxygenEfficiency  float64 `json:"oxygen_efficiency"`
	FoodEfficiency    float64 `json:"food_efficiency"`
	ScienceEfficiency float64 `json:"science_efficiency"`
	AntennaEfficiency float64 `json:"antenna_efficiency"`

	CostMultiplier        float64 `json:"cost_multiplier"`
	PopulationConsumption float64 `json:"population_consumption"`
	StorageMultiplier     float64 `json:"storage_multiplier"`

	VirusActive    bool    `json:"virus_active"`
	VirusRemaining float64 `json:"virus_remaining"`
}

func Defaults() Modifiers {
	return Modifiers{
		SolarEfficiency:       1,
		CryptoEfficiency:      1,
		OxygenEfficiency:      1,
		FoodEfficiency:        1,
		ScienceEfficiency:     1,
		AntennaEfficiency:     1,
		CostMultiplier:        1,
		PopulationConsumption: 1,
		StorageMultiplier:     1,
	}
}

func (m *Modifiers) Reset() { *m = Defaults() }

// ApplyBoon folds a boon into the multipliers. Efficiency effects add,
// multiplier effects compound.
func (m *Modifiers) ApplyBoon(b catalogs.BoonDef) error {
	switch b.Effect {
	case catalogs.EffectSolarEfficiency:
		m.SolarEfficiency += b.Value
	case catalogs.EffectCryptoEfficiency:
		m.CryptoEfficiency += b.Value
	case catalogs.EffectOxygenEfficiency:
		m.OxygenEfficiency += b.Value
	case catalogs.EffectFoodEfficiency:
		m.FoodEfficiency += b.Value
	case catalogs.EffectScienceEfficiency:
		m.ScienceEfficiency += b.Value
	case catalogs.EffectAntennaEfficiency:
		m.AntennaEfficiency += b.Value
	case catalogs.EffectCostMultiplier:
		m.CostMultiplier *= b.Value
	case catalogs.EffectPopulationConsumption:
		m.PopulationConsumption *= b.Value
	case catalogs.EffectStorageMultiplier:
		m.StorageMultiplier *= b.Value
	default:
		return fmt.Errorf("boon %q: unknown effect %q", b.ID, b.Effect)
	}
	return nil
}

// StartVirus arms the virus for seconds. A running virus is extended, never shortened.
func (m *Modifiers) StartVirus(seconds float64) {
	if seconds <= 0 {
		return
	}
	m.VirusActive = true
	if seconds > m.VirusRemaining {
		m.VirusRemaining = seconds
	}
}

// TickVirus counts the virus down and reports whether it ended during this tick.
func (m *Modifiers) TickVirus(dt float64) (ended bool) {
	if !m.VirusActive {
		return false
	}
	m.VirusRemaining -= dt
	if m.VirusRemaining <= 0 {
		m.VirusActive = false
		m.VirusRemaining = 0
		return true
	}
	return false
}

func (m Modifiers) EffectiveCost(cost float64) float64 { return cost * m.CostMultiplier }

func (m Modifiers) CanAfford(currency, cost float64) bool {
	return currency >= m.EffectiveCost(cost)
}

// Sanitize replaces non-positive multipliers (as found in old or hand-edited saves) with defaults.
func (m *Modifiers) Sanitize() {
	d := Defaults()
	fix := func(v *float64, def float64) {
		if !(*v > 0) {
			*v = def
		}
	}
	fix(&m.SolarEfficiency, d.SolarEfficiency)
	fix(&m.CryptoEfficiency, d.CryptoEfficiency)
	fix(&m.OxygenEfficiency, d.OxygenEfficiency)
	fix(&m.FoodEfficiency, d.FoodEfficiency)
	fix(&m.ScienceEfficiency, d.ScienceEfficiency)
	fix(&m.AntennaEfficiency, d.AntennaEfficiency)
	fix(&m.CostMultiplier, d.CostMultiplier)
	fix(&m.PopulationConsumption, d.PopulationConsumption)
	fix(&m.StorageMultiplier, d.StorageMultiplier)
	if m.VirusRemaining <= 0 {
		m.VirusActive = false
		m.VirusRemaining = 0
	}
}
