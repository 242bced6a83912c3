package modifiers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexhorizons.ai/internal/sim/catalogs"
)

func TestApplyBoon_EveryBuiltinBoon(t *testing.T) {
	cats := catalogs.Default()
	for _, id := range cats.Boons.Order {
		m := Defaults()
		require.NoError(t, m.ApplyBoon(cats.Boons.ByID[id]), id)
		assert.NotEqual(t, Defaults(), m, "boon %s had no effect", id)
	}
}

func TestApplyBoon_Compounds(t *testing.T) {
	cats := catalogs.Default()
	m := Defaults()
	require.NoError(t, m.ApplyBoon(cats.Boons.ByID["crypto"]))
	require.NoError(t, m.ApplyBoon(cats.Boons.ByID["drill"]))
	assert.InDelta(t, 1.45, m.CryptoEfficiency, 1e-9)

	require.NoError(t, m.ApplyBoon(cats.Boons.ByID["cost"]))
	require.NoError(t, m.ApplyBoon(cats.Boons.ByID["cost"]))
	assert.InDelta(t, 0.7225, m.CostMultiplier, 1e-9)
	assert.InDelta(t, 50*0.7225, m.EffectiveCost(50), 1e-9)
}

func TestApplyBoon_UnknownEffect(t *testing.T) {
	m := Defaults()
	assert.Error(t, m.ApplyBoon(catalogs.BoonDef{ID: "x", Effect: "teleport"}))
	assert.Equal(t, Defaults(), m)
}

func TestVirus_Lifecycle(t *testing.T) {
	m := Defaults()
	assert.False(t, m.TickVirus(1))
	m.StartVirus(20)
	assert.True(t, m.VirusActive)
	assert.False(t, m.TickVirus(19.5))
	m.StartVirus(0.1)
	assert.InDelta(t, 0.5, m.VirusRemaining, 1e-9, "shorter virus must not shorten a running one")
	assert.True(t, m.TickVirus(0.5))
	assert.False(t, m.VirusActive)
	assert.Equal(t, 0.0, m.VirusRemaining)
}

func TestCanAfford(t *testing.T) {
	m := Defaults()
	assert.True(t, m.CanAfford(50, 50))
	assert.False(t, m.CanAfford(49.99, 50))
	m.CostMultiplier = 0.85
	assert.True(t, m.CanAfford(42.5, 50))
}

func TestReset(t *testing.T) {
	m := Defaults()
	m.SolarEfficiency = 3
	m.StartVirus(5)
	m.Reset()
	assert.Equal(t, Defaults(), m)
}

func TestSanitize(t *testing.T) {
	m := Modifiers{SolarEfficiency: 1.2, VirusActive: true}
	m.Sanitize()
	assert.Equal(t, 1.2, m.SolarEfficiency)
	assert.Equal(t, 1.0, m.CostMultiplier)
	assert.False(t, m.VirusActive)
}
