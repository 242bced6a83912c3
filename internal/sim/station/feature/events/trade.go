package events

import (
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/station/feature/ledger"
)

func amount(s *ledger.Stock, res string) *float64 {
	switch res {
	case catalogs.ResEnergy:
		return &s.Energy
	case catalogs.ResOxygen:
		return &s.Oxygen
	case catalogs.ResFood:
		return &s.Food
	case catalogs.ResCurrency:
		return &s.Currency
	}
	return nil
}

// ExecuteTrade pays the trade cost and adds its reward. It reports false and
// leaves s unchanged when the cost resource is short. The caller clamps.
func ExecuteTrade(s ledger.Stock, t catalogs.TradeDef) (ledger.Stock, bool) {
	cost := amount(&s, t.CostRes)
	give := amount(&s, t.GiveRes)
	if cost == nil || give == nil || *cost < t.CostVal {
		return s, false
	}
	*cost -= t.CostVal
	*give += t.GiveVal
	return s, true
}
