package station

import (
	"math"

	"apexhorizons.ai/internal/protocol"
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/station/feature/drones"
	"apexhorizons.ai/internal/sim/station/feature/events"
	"apexhorizons.ai/internal/sim/station/feature/income"
	"apexhorizons.ai/internal/sim/station/feature/ledger"
	"apexhorizons.ai/internal/sim/station/feature/progression"
	"apexhorizons.ai/internal/sim/station/feature/tutorial"
)

type StepResult struct {
	Tick   uint64
	Digest string
	Events []protocol.Event
}

// Step applies acts at the tick boundary, then advances the station by dt
// seconds. Events produced by direct calls since the previous Step are
// returned together with this tick's.
func (s *Station) Step(dt float64, acts []protocol.ActMsg) StepResult {
	now := s.tick
	for _, act := range acts {
		s.applyAct(act, now)
	}
	s.simulate(dt)

	digest := s.stateDigest(now)
	if s.tickLogger != nil {
		_ = s.tickLogger.WriteTick(TickLogEntry{Tick: now, DT: sanitizeDT(dt), Acts: acts, Digest: digest})
	}
	s.tick++
	return StepResult{Tick: now, Digest: digest, Events: s.TakeEvents()}
}

func sanitizeDT(dt float64) float64 {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return 0
	}
	return dt
}

func (s *Station) simulate(dt float64) {
	dt = sanitizeDT(dt)
	defer s.refreshGhost()

	if s.phase != PhaseRunning && s.phase != PhaseJumpReady {
		return
	}
	if s.Paused() {
		s.observe()
		return
	}

	if s.mods.TickVirus(dt) {
		s.emit(protocol.Event{"type": "VIRUS_ENDED"})
	}
	if s.sandbox() {
		s.fireTimers(dt)
	}

	out := ledger.Tick(s.ledgerInput(dt))
	s.stock = out.Stock
	s.last = out
	if out.Defeat != ledger.CauseNone {
		s.gameOver(out.Defeat)
		return
	}

	if s.tut.Active() {
		s.advanceTutorial(dt)
	}
	s.payIncome(dt)
	if s.sandbox() {
		s.stepHazards(dt)
	}
	if s.phase == PhaseRunning && s.sandbox() {
		if g, ok := s.Goal(); ok && progression.Check(g, s.goalSnapshot()) {
			s.spawnJumpDrive(g)
		}
	}

	s.playTime += dt
	s.clampStock()
}

func (s *Station) fireTimers(dt float64) {
	ev := s.tune.Events
	switch s.timers.Tick(dt, s.rand(), ev) {
	case events.ModalBoon:
		boons := events.DrawBoons(s.rand(), s.cats.Boons, ev.BoonChoices)
		if len(boons) == 0 {
			return
		}
		s.pending = events.Pending{Modal: events.ModalBoon, Boons: boons}
		ids := make([]string, 0, len(boons))
		for _, b := range boons {
			ids = append(ids, b.ID)
		}
		s.emit(protocol.Event{"type": "BOON_OFFERED", "choices": ids})
	case events.ModalSignal:
		s.pending = events.Pending{Modal: events.ModalSignal}
		s.emit(protocol.Event{"type": "SIGNAL_RECEIVED"})
	}
}

func (s *Station) advanceTutorial(dt float64) {
	c := tutorial.Counts{
		OxygenReserves:   s.countKind(catalogs.KindOxygenReserve),
		CryptoGenerators: s.countKind(catalogs.KindCryptoGenerator),
		SolarPanels:      s.countKind(catalogs.KindSolarPanel),
		Dormitories:      s.countKind(catalogs.KindDormitory),
		EnergyDeficit:    s.last.Flows.EnergyProd < s.last.Flows.EnergyDemand,
	}
	if !s.tut.Advance(dt, c) {
		return
	}
	s.emit(protocol.Event{"type": "TUTORIAL_STEP", "step": int(s.tut.Step), "name": s.tut.Step.String()})
	if s.tut.Step == tutorial.StepComplete {
		s.emit(protocol.Event{"type": "TUTORIAL_COMPLETE"})
		s.audit(AuditEntry{Action: "TUTORIAL_COMPLETE"})
	}
}

func (s *Station) payIncome(dt float64) {
	for i := range s.modules {
		m := &s.modules[i]
		if m.Kind != catalogs.KindRadioAntenna {
			continue
		}
		var pay float64
		m.Timer, pay = income.Antenna(m.Timer, dt, m.Def, s.mods.AntennaEfficiency, s.mods.VirusActive)
		if pay > 0 {
			s.stock.Currency += pay
			s.emit(protocol.Event{"type": "INCOME", "module": m.ID, "amount": pay})
			s.audit(AuditEntry{Action: "INCOME", Kind: string(m.Kind), Cell: cellArr(m.Cell), Amount: pay})
		}
	}

	rate := income.ScienceRate(s.defs())
	var pay float64
	s.sciTimer, pay = income.Science(s.sciTimer, dt, s.tune.Economy.ScienceIntervalSeconds, rate, s.mods.ScienceEfficiency)
	if pay > 0 {
		s.stock.Science += pay
		s.emit(protocol.Event{"type": "SCIENCE", "amount": pay})
	}
}

func (s *Station) stepHazards(dt float64) {
	res := s.hazards.Tick(drones.Input{
		DT:      dt,
		Modules: s.droneModules(),
		Hazards: s.tune.Hazards,
		RNG:     s.rand(),
	})
	if res.Spawned > 0 {
		s.emit(protocol.Event{"type": "ASTEROID_SPAWNED", "count": res.Spawned})
	}
	for _, id := range res.Destroyed {
		for i, m := range s.modules {
			if m.ID != id {
				continue
			}
			s.removeAt(i)
			s.emit(protocol.Event{"type": "MODULE_DESTROYED", "id": m.ID, "kind": string(m.Kind), "cell": m.Cell.ToArray()})
			s.audit(AuditEntry{Action: "DESTROYED", Kind: string(m.Kind), Cell: cellArr(m.Cell)})
			break
		}
	}
	if res.Intercepted > 0 {
		s.emit(protocol.Event{"type": "ASTEROID_INTERCEPTED", "count": res.Intercepted})
	}
	if res.Science > 0 {
		s.stock.Science += res.Science
		s.emit(protocol.Event{"type": "SCIENCE", "amount": res.Science, "source": "drones"})
	}
}
