package station

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// Digest returns the state digest at the current tick.
func (s *Station) Digest() string { return s.stateDigest(s.tick) }

func (s *Station) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteI64(h, &tmp, s.cfg.Seed)
	digestWriteString(h, string(s.phase))
	digestWriteString(h, string(s.mode))
	h.Write([]byte{boolByte(s.paused)})
	digestWriteF64(h, &tmp, s.playTime)

	st := s.stock
	for _, v := range []float64{st.Energy, st.Oxygen, st.Food, st.Currency, st.Science} {
		digestWriteF64(h, &tmp, v)
	}

	m := s.mods
	for _, v := range []float64{
		m.SolarEfficiency, m.CryptoEfficiency, m.OxygenEfficiency, m.FoodEfficiency,
		m.ScienceEfficiency, m.AntennaEfficiency, m.CostMultiplier,
		m.PopulationConsumption, m.StorageMultiplier, m.VirusRemaining,
	} {
		digestWriteF64(h, &tmp, v)
	}
	h.Write([]byte{boolByte(m.VirusActive)})

	digestWriteU64(h, &tmp, uint64(len(s.modules)))
	for _, mod := range s.modules {
		digestWriteI64(h, &tmp, int64(mod.ID))
		digestWriteString(h, string(mod.Kind))
		digestWriteI64(h, &tmp, int64(mod.Cell.X))
		digestWriteI64(h, &tmp, int64(mod.Cell.Z))
		digestWriteF64(h, &tmp, mod.Timer)
	}
	digestWriteI64(h, &tmp, int64(s.nextID))

	digestWriteI64(h, &tmp, int64(s.tut.Step))
	digestWriteF64(h, &tmp, s.tut.Timer)
	digestWriteF64(h, &tmp, s.timers.Boon)
	digestWriteF64(h, &tmp, s.timers.Signal)
	digestWriteF64(h, &tmp, s.sciTimer)

	digestWriteString(h, string(s.pending.Modal))
	for _, b := range s.pending.Boons {
		digestWriteString(h, b.ID)
	}
	for _, t := range s.pending.Trades {
		digestWriteString(h, t.ID)
	}
	for _, g := range s.pending.Gifts {
		digestWriteString(h, g.ID)
	}

	digestWriteString(h, s.goalID)
	for _, g := range s.goals {
		digestWriteString(h, g.ID)
		digestWriteF64(h, &tmp, g.Target)
	}

	hz := s.hazards
	digestWriteF64(h, &tmp, hz.SpawnTimer)
	digestWriteI64(h, &tmp, int64(hz.NextID))
	digestWriteU64(h, &tmp, uint64(len(hz.Asteroids)))
	for _, a := range hz.Asteroids {
		digestWriteI64(h, &tmp, int64(a.ID))
		digestWriteI64(h, &tmp, int64(a.Cell.X))
		digestWriteI64(h, &tmp, int64(a.Cell.Z))
		digestWriteI64(h, &tmp, int64(a.Science))
		digestWriteF64(h, &tmp, a.Timer)
	}
	digestWriteU64(h, &tmp, uint64(len(hz.Drones)))
	for _, d := range hz.Drones {
		digestWriteI64(h, &tmp, int64(d.ID))
		digestWriteI64(h, &tmp, int64(d.Hangar))
		digestWriteI64(h, &tmp, int64(d.Cell.X))
		digestWriteI64(h, &tmp, int64(d.Cell.Z))
		digestWriteString(h, string(d.State))
		digestWriteI64(h, &tmp, int64(d.Target))
		digestWriteI64(h, &tmp, int64(d.Cargo))
		digestWriteF64(h, &tmp, d.Timer)
	}

	digestWriteString(h, string(s.defeat))
	digestWriteI64(h, &tmp, int64(s.meta.CompletedRuns))
	for _, id := range s.meta.Starters {
		digestWriteString(h, id)
	}
	h.Write([]byte{boolByte(s.meta.VisitedSandbox)})

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hash.Hash, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteString(h hash.Hash, s string) {
	var tmp [8]byte
	digestWriteU64(h, &tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
