package income

import "apexhorizons.ai/internal/sim/catalogs"

// Antenna advances one antenna's payout timer. The timer is frozen while a virus
// is active. At most one payout is produced per call; the timer restarts from zero.
func Antenna(timer, dt float64, def catalogs.ModuleDef, efficiency float64, virus bool) (next, payout float64) {
	if virus || def.IncomeInterval <= 0 || !(dt > 0) {
		return timer, 0
	}
	timer += dt
	if timer >= def.IncomeInterval {
		return 0, def.IncomeAmount * efficiency
	}
	return timer, 0
}

// ScienceRate sums the science rate of every lab in defs.
func ScienceRate(defs []catalogs.ModuleDef) float64 {
	total := 0.0
	for _, d := range defs {
		if d.Kind == catalogs.KindScienceLab {
			total += d.ScienceRate
		}
	}
	return total
}

// Science advances the base-wide lab timer shared by every lab. The timer only
// runs while at least one lab exists.
func Science(timer, dt, interval, rate, efficiency float64) (next, payout float64) {
	if rate <= 0 {
		return 0, 0
	}
	if interval <= 0 || !(dt > 0) {
		return timer, 0
	}
	timer += dt
	if timer >= interval {
		return 0, rate * efficiency
	}
	return timer, 0
}
