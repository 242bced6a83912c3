package station

import (
	"fmt"
	"math/rand"

	"apexhorizons.ai/internal/protocol"
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/grid"
	"apexhorizons.ai/internal/sim/station/feature/drones"
	"apexhorizons.ai/internal/sim/station/feature/events"
	"apexhorizons.ai/internal/sim/station/feature/ledger"
	"apexhorizons.ai/internal/sim/station/feature/modifiers"
	"apexhorizons.ai/internal/sim/station/feature/placement"
	"apexhorizons.ai/internal/sim/station/feature/progression"
	"apexhorizons.ai/internal/sim/station/feature/tutorial"
	"apexhorizons.ai/internal/sim/tuning"
)

type Phase string

const (
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseRunning    Phase = "RUNNING"
	PhaseJumpReady  Phase = "JUMP_READY"
	PhaseGameOver   Phase = "GAME_OVER"
)

type Mode string

const (
	ModeTutorial Mode = "TUTORIAL"
	ModeSandbox  Mode = "SANDBOX"
)

func (m Mode) Valid() bool { return m == ModeTutorial || m == ModeSandbox }

// StaleTicks is how far behind the current tick an ACT may be and still apply.
const StaleTicks = 2

type Config struct {
	RunID  string
	Seed   int64
	Tuning tuning.Tuning
}

// Module is a placed instance. Def is a copy of the registry entry taken at placement.
type Module struct {
	ID    int
	Kind  catalogs.Kind
	Cell  grid.Coord
	Def   catalogs.ModuleDef
	Timer float64
}

// Meta is the progression that survives runs.
type Meta struct {
	CompletedRuns  int      `json:"completed_runs"`
	Starters       []string `json:"starters,omitempty"`
	VisitedSandbox bool     `json:"visited_sandbox,omitempty"`
}

type MetaStore interface {
	SaveMeta(m Meta) error
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick   uint64            `json:"tick"`
	DT     float64           `json:"dt"`
	Acts   []protocol.ActMsg `json:"acts,omitempty"`
	Digest string            `json:"digest"`
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	RunID   string         `json:"run_id,omitempty"`
	Action  string         `json:"action"` // e.g. "PLACE"
	Kind    string         `json:"kind,omitempty"`
	Cell    *[2]int        `json:"cell,omitempty"`
	Amount  float64        `json:"amount,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Station is a single-threaded authoritative base simulation.
// All state must be accessed only from one goroutine (see Runner).
type Station struct {
	cfg  Config
	cats *catalogs.Catalogs
	tune tuning.Tuning

	tick     uint64
	phase    Phase
	mode     Mode
	paused   bool
	playTime float64

	stock   ledger.Stock
	last    ledger.Output
	mods    modifiers.Modifiers
	modules []Module
	nextID  int

	tut      tutorial.State
	timers   events.Timers
	pending  events.Pending
	goals    []progression.Goal
	goalID   string
	sciTimer float64
	hazards  drones.System
	defeat   ledger.Cause

	meta Meta

	hold  catalogs.Kind
	hover *grid.Coord
	ghost *placement.Result

	events []protocol.Event

	rng     *rand.Rand
	rngTick uint64

	metaStore   MetaStore
	tickLogger  TickLogger
	auditLogger AuditLogger
}

func New(cfg Config, cats *catalogs.Catalogs) (*Station, error) {
	if cats == nil {
		return nil, fmt.Errorf("station: nil catalogs")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("station: %w", err)
	}
	for _, k := range []catalogs.Kind{catalogs.KindSolarPanel, catalogs.KindDormitory, catalogs.KindJumpDrive} {
		if _, ok := cats.Def(k); !ok {
			return nil, fmt.Errorf("station: catalog is missing %s", k)
		}
	}
	s := &Station{
		cfg:   cfg,
		cats:  cats,
		tune:  cfg.Tuning,
		phase: PhaseNotStarted,
		mode:  ModeTutorial,
		mods:  modifiers.Defaults(),
		tut:   tutorial.New(false),
	}
	return s, nil
}

func (s *Station) SetMetaStore(m MetaStore)     { s.metaStore = m }
func (s *Station) SetTickLogger(l TickLogger)   { s.tickLogger = l }
func (s *Station) SetAuditLogger(l AuditLogger) { s.auditLogger = l }

// SetMeta installs progression loaded from the key-value store. It does not persist.
func (s *Station) SetMeta(m Meta) {
	if m.CompletedRuns < 0 {
		m.CompletedRuns = 0
	}
	m.Starters = append([]string(nil), m.Starters...)
	s.meta = m
}

func (s *Station) Meta() Meta {
	m := s.meta
	m.Starters = append([]string(nil), m.Starters...)
	return m
}

func (s *Station) RunID() string                  { return s.cfg.RunID }
func (s *Station) Seed() int64                    { return s.cfg.Seed }
func (s *Station) Tick() uint64                   { return s.tick }
func (s *Station) Phase() Phase                   { return s.phase }
func (s *Station) Mode() Mode                     { return s.mode }
func (s *Station) Stock() ledger.Stock            { return s.stock }
func (s *Station) Flows() ledger.Flows            { return s.last.Flows }
func (s *Station) Modifiers() modifiers.Modifiers { return s.mods }
func (s *Station) Tutorial() tutorial.State       { return s.tut }
func (s *Station) Pending() events.Pending        { return s.pending }
func (s *Station) Defeat() ledger.Cause           { return s.defeat }
func (s *Station) Catalogs() *catalogs.Catalogs   { return s.cats }
func (s *Station) Tuning() tuning.Tuning          { return s.tune }

// Paused reports whether the simulation is frozen by the player or an open modal.
func (s *Station) Paused() bool { return s.paused || s.pending.Open() }

func (s *Station) Modules() []Module {
	return append([]Module(nil), s.modules...)
}

func (s *Station) Goal() (progression.Goal, bool) {
	if s.goalID == "" {
		return progression.Goal{}, false
	}
	return progression.Find(s.goals, s.goalID)
}

// GoalProgress is the active goal's completion percentage, or 0 without a goal.
func (s *Station) GoalProgress() float64 {
	g, ok := s.Goal()
	if !ok {
		return 0
	}
	return progression.Progress(g, s.goalSnapshot())
}

// rand returns the RNG for the current tick. Every tick gets a fresh source
// derived from the seed so that replays from any snapshot draw the same values.
func (s *Station) rand() *rand.Rand {
	if s.rng == nil || s.rngTick != s.tick {
		s.rng = rand.New(rand.NewSource(tickSeed(s.cfg.Seed, s.tick)))
		s.rngTick = s.tick
	}
	return s.rng
}

func tickSeed(seed int64, tick uint64) int64 {
	z := uint64(seed) + (tick+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return int64(z ^ (z >> 31))
}

func (s *Station) sandbox() bool { return s.mode == ModeSandbox }

func (s *Station) defs() []catalogs.ModuleDef {
	out := make([]catalogs.ModuleDef, 0, len(s.modules))
	for _, m := range s.modules {
		out = append(out, m.Def)
	}
	return out
}

func (s *Station) placed() []placement.Placed {
	out := make([]placement.Placed, 0, len(s.modules))
	for _, m := range s.modules {
		out = append(out, placement.Placed{Kind: m.Kind, Cell: m.Cell})
	}
	return out
}

func (s *Station) moduleAt(c grid.Coord) (int, bool) {
	for i, m := range s.modules {
		if m.Cell == c {
			return i, true
		}
	}
	return -1, false
}

func (s *Station) occupied(c grid.Coord) bool {
	_, ok := s.moduleAt(c)
	return ok
}

func (s *Station) countKind(k catalogs.Kind) int {
	n := 0
	for _, m := range s.modules {
		if m.Kind == k {
			n++
		}
	}
	return n
}

func (s *Station) addModule(def catalogs.ModuleDef, cell grid.Coord) Module {
	s.nextID++
	m := Module{ID: s.nextID, Kind: def.Kind, Cell: cell, Def: def}
	s.modules = append(s.modules, m)
	return m
}

func (s *Station) removeAt(i int) Module {
	m := s.modules[i]
	s.modules = append(s.modules[:i], s.modules[i+1:]...)
	return m
}

func (s *Station) population() int { return ledger.Population(s.defs()) }

func (s *Station) maxima() (energyMax, oxygenMax float64) {
	return ledger.Maxima(s.defs(), s.mods, s.tune.Economy)
}

// clampStock restores the stock invariants after any mutation outside the ledger.
func (s *Station) clampStock() {
	eMax, oMax := s.maxima()
	s.stock = ledger.Clamp(s.stock, eMax, oMax)
}

// observe refreshes flows and maxima without advancing time.
func (s *Station) observe() {
	out := ledger.Tick(s.ledgerInput(0))
	out.Stock = s.stock
	out.Defeat = ledger.CauseNone
	s.last = out
}

func (s *Station) ledgerInput(dt float64) ledger.Input {
	return ledger.Input{
		DT:      dt,
		Stock:   s.stock,
		Modules: s.defs(),
		Mods:    s.mods,
		Economy: s.tune.Economy,
	}
}

func (s *Station) goalSnapshot() progression.Snapshot {
	eMax, oMax := s.maxima()
	return progression.Snapshot{
		Currency:    s.stock.Currency,
		Food:        s.stock.Food,
		EnergyMax:   eMax,
		OxygenMax:   oMax,
		Population:  s.population(),
		Modules:     placement.ModuleCount(s.placed()),
		Greenhouses: s.countKind(catalogs.KindGreenhouse),
		Antennas:    s.countKind(catalogs.KindRadioAntenna),
	}
}

func (s *Station) emit(e protocol.Event) {
	if _, ok := e["t"]; !ok {
		e["t"] = s.tick
	}
	s.events = append(s.events, e)
}

// TakeEvents drains the events produced since the last call.
func (s *Station) TakeEvents() []protocol.Event {
	out := s.events
	s.events = nil
	return out
}

func (s *Station) audit(e AuditEntry) {
	if s.auditLogger == nil {
		return
	}
	e.Tick = s.tick
	e.RunID = s.cfg.RunID
	_ = s.auditLogger.WriteAudit(e)
}

func (s *Station) persistMeta() {
	if s.metaStore == nil {
		return
	}
	if err := s.metaStore.SaveMeta(s.Meta()); err != nil {
		s.emit(protocol.Event{"type": "META_SAVE_FAILED", "message": err.Error()})
	}
}

func cellArr(c grid.Coord) *[2]int {
	a := c.ToArray()
	return &a
}
