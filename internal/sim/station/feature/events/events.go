package events

import (
	"math/rand"

	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/tuning"
)

// Modal is a blocking choice offered to the player. Any open modal pauses the station.
type Modal string

const (
	ModalNone     Modal = ""
	ModalBoon     Modal = "BOON"
	ModalSignal   Modal = "SIGNAL"
	ModalMerchant Modal = "MERCHANT"
	ModalGift     Modal = "GIFT"
)

// Pending is the open modal and its offer.
type Pending struct {
	Modal  Modal               `json:"modal,omitempty"`
	Boons  []catalogs.BoonDef  `json:"boons,omitempty"`
	Trades []catalogs.TradeDef `json:"trades,omitempty"`
	Gifts  []catalogs.GiftDef  `json:"gifts,omitempty"`
}

func (p Pending) Open() bool { return p.Modal != ModalNone }

// Timers are the sandbox boon and signal countdowns.
type Timers struct {
	Boon   float64 `json:"boon"`
	Signal float64 `json:"signal"`
}

func NewTimers(rng *rand.Rand, ev tuning.Events) Timers {
	return Timers{
		Boon:   ev.BoonFirstSeconds,
		Signal: ev.SignalFirstMinSeconds + rng.Float64()*ev.SignalFirstSpreadSeconds,
	}
}

// Tick counts both timers down and returns the modal that fired, if any.
// The boon has priority; a firing timer is re-armed immediately.
func (t *Timers) Tick(dt float64, rng *rand.Rand, ev tuning.Events) Modal {
	if !(dt > 0) {
		return ModalNone
	}
	t.Boon -= dt
	t.Signal -= dt
	// A boon wins a shared tick; a due signal fires on the next unpaused tick.
	if t.Boon <= 0 {
		t.Boon = ev.BoonEverySeconds
		return ModalBoon
	}
	if t.Signal <= 0 {
		t.Signal = ev.SignalMinSeconds + rng.Float64()*ev.SignalSpreadSeconds
		return ModalSignal
	}
	return ModalNone
}

// DrawBoons returns n distinct boons in random order.
func DrawBoons(rng *rand.Rand, c catalogs.BoonCatalog, n int) []catalogs.BoonDef {
	ids := sample(rng, c.Order, n)
	out := make([]catalogs.BoonDef, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.ByID[id])
	}
	return out
}

// DrawTrades returns n distinct merchant offers in random order.
func DrawTrades(rng *rand.Rand, c catalogs.TradeCatalog, n int) []catalogs.TradeDef {
	return sample(rng, c.Offers, n)
}

func sample[T any](rng *rand.Rand, pool []T, n int) []T {
	cp := append([]T(nil), pool...)
	if n > len(cp) {
		n = len(cp)
	}
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(cp)-i)
		cp[i], cp[j] = cp[j], cp[i]
	}
	return cp[:n]
}

type SignalOutcome struct {
	Accepted bool    `json:"accepted"`
	Virus    bool    `json:"virus"`
	Reward   float64 `json:"reward"`
}

// ResolveSignal rolls the outcome of an answered signal.
func ResolveSignal(accept bool, rng *rand.Rand, ev tuning.Events) SignalOutcome {
	if !accept {
		return SignalOutcome{}
	}
	if rng.Float64() < ev.VirusChance {
		return SignalOutcome{Accepted: true, Virus: true}
	}
	return SignalOutcome{Accepted: true, Reward: ev.SignalReward}
}
