package station

import (
	"apexhorizons.ai/internal/protocol"
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/grid"
	"apexhorizons.ai/internal/sim/station/feature/drones"
	"apexhorizons.ai/internal/sim/station/feature/events"
	"apexhorizons.ai/internal/sim/station/feature/ledger"
	"apexhorizons.ai/internal/sim/station/feature/modifiers"
	"apexhorizons.ai/internal/sim/station/feature/progression"
	"apexhorizons.ai/internal/sim/station/feature/tutorial"
	"apexhorizons.ai/internal/sim/tuning"
)

// Starting hub every run begins with.
var (
	HubSolarCell = grid.Coord{X: 0, Z: 0}
	HubDormCell  = grid.Coord{X: 1, Z: 0}
)

// Refusal is a rule-level rejection of a command. It carries a protocol error code.
type Refusal struct {
	Code    string
	Message string
}

func (r *Refusal) Error() string { return r.Code + ": " + r.Message }

func refuse(code, msg string) error { return &Refusal{Code: code, Message: msg} }

func startStock(st tuning.Stock) ledger.Stock {
	return ledger.Stock{Energy: st.Energy, Oxygen: st.Oxygen, Food: st.Food, Currency: st.Currency}
}

// StartRun discards the current run and begins a fresh one in mode.
func (s *Station) StartRun(mode Mode) error {
	if !mode.Valid() {
		return refuse(protocol.ErrBadRequest, "unknown mode")
	}
	s.resetRun(mode)

	solar, _ := s.cats.Def(catalogs.KindSolarPanel)
	dorm, _ := s.cats.Def(catalogs.KindDormitory)
	s.addModule(solar, HubSolarCell)
	s.addModule(dorm, HubDormCell)

	if s.sandbox() {
		s.timers = events.NewTimers(s.rand(), s.tune.Events)
		for _, p := range events.PlaceStarters(s.cats.Gifts, s.meta.Starters, s.occupied) {
			if def, ok := s.cats.Def(p.Kind); ok {
				s.addModule(def, p.Cell)
			}
		}
		s.rollGoals()
		if !s.meta.VisitedSandbox {
			s.meta.VisitedSandbox = true
			s.persistMeta()
		}
		if s.meta.CompletedRuns > 0 && len(s.cats.Gifts.Gifts) > 0 {
			s.pending = events.Pending{Modal: events.ModalGift, Gifts: append([]catalogs.GiftDef(nil), s.cats.Gifts.Gifts...)}
			s.emit(protocol.Event{"type": "GIFT_OFFERED", "choices": giftIDs(s.pending.Gifts)})
		}
	}
	s.clampStock()
	s.observe()
	s.refreshGhost()

	ev := protocol.Event{"type": "RUN_STARTED", "mode": string(mode), "completed_runs": s.meta.CompletedRuns}
	if g, ok := s.Goal(); ok {
		ev["goal"] = g.ID
		ev["target"] = g.Target
	}
	s.emit(ev)
	s.audit(AuditEntry{Action: "START_RUN", Kind: string(mode)})
	return nil
}

func (s *Station) resetRun(mode Mode) {
	s.mode = mode
	s.phase = PhaseRunning
	s.paused = false
	s.playTime = 0
	start := s.tune.Start.Tutorial
	if mode == ModeSandbox {
		start = s.tune.Start.Sandbox
	}
	s.stock = startStock(start)
	s.last = ledger.Output{}
	s.mods = modifiers.Defaults()
	s.modules = nil
	s.nextID = 0
	s.tut = tutorial.New(mode == ModeSandbox)
	s.timers = events.Timers{}
	s.pending = events.Pending{}
	s.goals = nil
	s.goalID = ""
	s.sciTimer = 0
	s.hazards.Reset()
	s.defeat = ledger.CauseNone
	s.hold = ""
	s.hover = nil
	s.ghost = nil
}

func (s *Station) rollGoals() {
	s.goals = progression.GenerateGoals(s.cats.Goals.Templates, s.meta.CompletedRuns, s.tune.Progression.GoalScalePerRun)
	s.goalID = ""
	if g, ok := progression.Pick(s.goals, s.rand()); ok {
		s.goalID = g.ID
	}
}

func (s *Station) gameOver(cause ledger.Cause) {
	s.phase = PhaseGameOver
	s.defeat = cause
	s.pending = events.Pending{}
	s.hold = ""
	s.hover = nil
	s.ghost = nil
	s.emit(protocol.Event{"type": "GAME_OVER", "cause": string(cause), "message": cause.Message(), "play_time": s.playTime})
	s.audit(AuditEntry{Action: "GAME_OVER", Reason: string(cause)})
	if s.sandbox() {
		s.meta.CompletedRuns = 0
		s.meta.Starters = nil
		s.persistMeta()
	}
}

// spawnJumpDrive places the one-off jump drive on the ring and arms the jump.
func (s *Station) spawnJumpDrive(g progression.Goal) {
	def, _ := s.cats.Def(catalogs.KindJumpDrive)
	cell := progression.JumpDriveCell(s.rand(), grid.Coord{}, s.tune.Progression.JumpRadius, s.occupied)
	m := s.addModule(def, cell)
	s.phase = PhaseJumpReady
	s.emit(protocol.Event{"type": "GOAL_COMPLETE", "goal": g.ID, "target": g.Target})
	s.emit(protocol.Event{"type": "JUMP_DRIVE_SPAWNED", "id": m.ID, "cell": cell.ToArray()})
	s.audit(AuditEntry{Action: "GOAL_COMPLETE", Kind: g.ID, Cell: cellArr(cell)})
}

// Jump commits the jump when the player clicks the jump drive at cell.
func (s *Station) Jump(cell grid.Coord) error {
	if s.phase != PhaseJumpReady {
		return refuse(protocol.ErrBadPhase, "no jump drive is ready")
	}
	if s.pending.Open() {
		return refuse(protocol.ErrBadPhase, "a choice is pending")
	}
	i, ok := s.moduleAt(cell)
	if !ok || s.modules[i].Kind != catalogs.KindJumpDrive {
		return refuse(protocol.ErrInvalidTarget, "no jump drive at cell")
	}
	s.removeAt(i)
	s.meta.CompletedRuns++
	s.rollGoals()
	s.stock.Currency += s.tune.Progression.JumpBonus
	s.clampStock()
	s.persistMeta()
	s.phase = PhaseRunning
	s.observe()
	s.refreshGhost()

	ev := protocol.Event{"type": "JUMPED", "completed_runs": s.meta.CompletedRuns, "bonus": s.tune.Progression.JumpBonus}
	if g, ok := s.Goal(); ok {
		ev["goal"] = g.ID
		ev["target"] = g.Target
	}
	s.emit(ev)
	s.audit(AuditEntry{Action: "JUMP", Cell: cellArr(cell), Amount: s.tune.Progression.JumpBonus})
	return nil
}

func (s *Station) droneModules() []drones.Module {
	out := make([]drones.Module, 0, len(s.modules))
	for _, m := range s.modules {
		out = append(out, drones.Module{ID: m.ID, Kind: m.Kind, Cell: m.Cell, Drones: m.Def.DroneCount})
	}
	return out
}

func giftIDs(gs []catalogs.GiftDef) []string {
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.ID)
	}
	return out
}
