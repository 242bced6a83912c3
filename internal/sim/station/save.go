package station

import (
	"fmt"

	"apexhorizons.ai/internal/persistence/snapshot"
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/grid"
	"apexhorizons.ai/internal/sim/station/feature/events"
	"apexhorizons.ai/internal/sim/station/feature/ledger"
	"apexhorizons.ai/internal/sim/station/feature/progression"
	"apexhorizons.ai/internal/sim/station/feature/tutorial"
)

// ImportReport tells the caller what a rehydration had to drop.
type ImportReport struct {
	Modules int
	Skipped int
	// Reasons holds one line per skipped entry.
	Reasons []string
}

// ExportSave captures the station. Tick is the next tick to simulate.
func (s *Station) ExportSave() snapshot.SaveV1 {
	stock := s.stock
	sv := snapshot.SaveV1{
		Header:         snapshot.Header{Version: snapshot.Version, RunID: s.cfg.RunID, Tick: s.tick},
		CompletedRuns:  s.meta.CompletedRuns,
		PlayTime:       s.playTime,
		TutorialStep:   int(s.tut.Step),
		Modifiers:      s.mods,
		Modules:        make([]snapshot.ModuleV1, 0, len(s.modules)),
		Mode:           string(s.mode),
		Stock:          &stock,
		GoalID:         s.goalID,
		Starters:       append([]string(nil), s.meta.Starters...),
		VisitedSandbox: s.meta.VisitedSandbox,
		Seed:           s.cfg.Seed,
		Tick:           s.tick,
	}
	for _, m := range s.modules {
		sv.Modules = append(sv.Modules, snapshot.ModuleV1{Kind: string(m.Kind), X: m.Cell.X, Z: m.Cell.Z, ID: m.ID, Timer: m.Timer})
	}
	rt := &snapshot.RuntimeV1{
		Phase:         string(s.phase),
		Paused:        s.paused,
		TutorialTimer: s.tut.Timer,
		Timers:        s.timers,
		Pending:       s.pending,
		Goals:         append([]progression.Goal(nil), s.goals...),
		ScienceTimer:  s.sciTimer,
		Hazards:       s.hazards,
		NextModuleID:  s.nextID,
		Defeat:        string(s.defeat),
		Hold:          string(s.hold),
	}
	rt.Hazards.Asteroids = append(rt.Hazards.Asteroids[:0:0], s.hazards.Asteroids...)
	rt.Hazards.Drones = append(rt.Hazards.Drones[:0:0], s.hazards.Drones...)
	if s.hover != nil {
		rt.Hover = cellArr(*s.hover)
	}
	sv.Runtime = rt
	return sv
}

// ImportSave replaces the station with sv. Modules are rebuilt from registry
// defaults and then moved to their saved cell; entries with an unknown kind
// or a clashing cell are skipped and reported, never fatal.
func (s *Station) ImportSave(sv snapshot.SaveV1) (ImportReport, error) {
	var rep ImportReport
	if v := sv.Header.Version; v != 0 && v != snapshot.Version {
		return rep, fmt.Errorf("save: unsupported version %d", v)
	}

	mode := Mode(sv.Mode)
	if !mode.Valid() {
		mode = ModeTutorial
		if tutorial.Step(sv.TutorialStep) == tutorial.StepSandbox {
			mode = ModeSandbox
		}
	}
	if sv.Seed != 0 {
		s.cfg.Seed = sv.Seed
	}
	if sv.Header.RunID != "" && s.cfg.RunID == "" {
		s.cfg.RunID = sv.Header.RunID
	}
	s.tick = sv.Tick
	if s.tick == 0 {
		s.tick = sv.Header.Tick
	}
	s.rng = nil

	s.resetRun(mode)
	s.meta.CompletedRuns = sv.CompletedRuns
	if s.meta.CompletedRuns < 0 {
		s.meta.CompletedRuns = 0
	}
	s.meta.Starters = append([]string(nil), sv.Starters...)
	s.meta.VisitedSandbox = sv.VisitedSandbox || mode == ModeSandbox
	s.playTime = sanitizeDT(sv.PlayTime)

	s.mods = sv.Modifiers
	s.mods.Sanitize()

	if st := tutorial.Step(sv.TutorialStep); st.Valid() {
		s.tut = tutorial.State{Step: st}
	}

	usedIDs := map[int]bool{}
	for i, e := range sv.Modules {
		kind := catalogs.Kind(e.Kind)
		def, ok := s.cats.Def(kind)
		if !ok {
			rep.skip(fmt.Sprintf("module %d: unknown kind %q", i, e.Kind))
			continue
		}
		cell := grid.Coord{X: e.X, Z: e.Z}
		if s.occupied(cell) {
			rep.skip(fmt.Sprintf("module %d: cell %v already taken", i, cell.ToArray()))
			continue
		}
		m := Module{ID: e.ID, Kind: kind, Cell: cell, Def: def, Timer: sanitizeDT(e.Timer)}
		if m.ID <= 0 || usedIDs[m.ID] {
			m.ID = 0
		}
		if m.ID > s.nextID {
			s.nextID = m.ID
		}
		usedIDs[m.ID] = true
		s.modules = append(s.modules, m)
		rep.Modules++
	}
	for i := range s.modules {
		if s.modules[i].ID == 0 {
			s.nextID++
			s.modules[i].ID = s.nextID
		}
	}

	if sv.Stock != nil {
		s.stock = *sv.Stock
	}
	s.stock.Science = sanitizeDT(s.stock.Science)

	if rt := sv.Runtime; rt != nil {
		s.importRuntime(rt)
	} else {
		s.phase = PhaseRunning
		if s.countKind(catalogs.KindJumpDrive) > 0 {
			s.phase = PhaseJumpReady
		}
		if mode == ModeSandbox {
			s.timers = events.NewTimers(s.rand(), s.tune.Events)
		}
	}
	if mode == ModeSandbox && len(s.goals) == 0 {
		s.goals = progression.GenerateGoals(s.cats.Goals.Templates, s.meta.CompletedRuns, s.tune.Progression.GoalScalePerRun)
	}
	if _, ok := progression.Find(s.goals, sv.GoalID); ok {
		s.goalID = sv.GoalID
	} else if mode == ModeSandbox {
		if g, ok := progression.Pick(s.goals, s.rand()); ok {
			s.goalID = g.ID
		}
	}

	s.clampStock()
	s.observe()
	s.refreshGhost()
	return rep, nil
}

func (s *Station) importRuntime(rt *snapshot.RuntimeV1) {
	switch p := Phase(rt.Phase); p {
	case PhaseNotStarted, PhaseRunning, PhaseJumpReady, PhaseGameOver:
		s.phase = p
	default:
		s.phase = PhaseRunning
	}
	s.paused = rt.Paused
	if s.tut.Active() {
		s.tut.Timer = sanitizeDT(rt.TutorialTimer)
	}
	s.timers = rt.Timers
	s.pending = s.validPending(rt.Pending)
	s.goals = append([]progression.Goal(nil), rt.Goals...)
	s.sciTimer = sanitizeDT(rt.ScienceTimer)
	s.hazards = rt.Hazards
	if rt.NextModuleID > s.nextID {
		s.nextID = rt.NextModuleID
	}
	s.defeat = ledger.Cause(rt.Defeat)
	if _, ok := s.cats.Def(catalogs.Kind(rt.Hold)); ok {
		s.hold = catalogs.Kind(rt.Hold)
	}
	if rt.Hover != nil {
		c := grid.Coord{X: rt.Hover[0], Z: rt.Hover[1]}
		s.hover = &c
	}
}

// validPending drops an offer whose contents no longer exist in the catalogs.
func (s *Station) validPending(p events.Pending) events.Pending {
	switch p.Modal {
	case events.ModalBoon:
		for _, b := range p.Boons {
			if _, ok := s.cats.Boons.ByID[b.ID]; !ok {
				return events.Pending{}
			}
		}
		if len(p.Boons) == 0 {
			return events.Pending{}
		}
	case events.ModalSignal:
		return events.Pending{Modal: events.ModalSignal}
	case events.ModalMerchant:
		if len(p.Trades) == 0 {
			return events.Pending{}
		}
	case events.ModalGift:
		if len(p.Gifts) == 0 {
			return events.Pending{}
		}
	default:
		return events.Pending{}
	}
	return p
}

func (r *ImportReport) skip(reason string) {
	r.Skipped++
	r.Reasons = append(r.Reasons, reason)
}
