package income

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"apexhorizons.ai/internal/sim/catalogs"
)

func antennaDef() catalogs.ModuleDef {
	d, _ := catalogs.Default().Def(catalogs.KindRadioAntenna)
	return d
}

func TestAntenna_PaysEveryInterval(t *testing.T) {
	def := antennaDef()
	timer, total := 0.0, 0.0
	for i := 0; i < 1100; i++ {
		var p float64
		timer, p = Antenna(timer, 0.1, def, 1, false)
		total += p
	}
	assert.InDelta(t, 50, total, 1e-9)
}

func TestAntenna_EfficiencyAndSinglePayout(t *testing.T) {
	next, p := Antenna(0, 500, antennaDef(), 1.25, false)
	assert.Equal(t, 0.0, next)
	assert.InDelta(t, 62.5, p, 1e-9)
}

func TestAntenna_FrozenByVirus(t *testing.T) {
	next, p := Antenna(59, 5, antennaDef(), 1, true)
	assert.Equal(t, 59.0, next)
	assert.Equal(t, 0.0, p)
}

func TestScience_SharedTimer(t *testing.T) {
	cats := catalogs.Default()
	lab, _ := cats.Def(catalogs.KindScienceLab)
	solar, _ := cats.Def(catalogs.KindSolarPanel)
	rate := ScienceRate([]catalogs.ModuleDef{lab, solar, lab, lab})
	assert.Equal(t, 3.0, rate)

	timer, p := Science(0, 59, 60, rate, 1)
	assert.Equal(t, 0.0, p)
	timer, p = Science(timer, 1, 60, rate, 1.5)
	assert.Equal(t, 0.0, timer)
	assert.InDelta(t, 4.5, p, 1e-9)
}

func TestScience_NoLabsResetsTimer(t *testing.T) {
	next, p := Science(30, 40, 60, 0, 1)
	assert.Equal(t, 0.0, next)
	assert.Equal(t, 0.0, p)
}
