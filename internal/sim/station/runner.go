package station

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"apexhorizons.ai/internal/persistence/snapshot"
	"apexhorizons.ai/internal/protocol"
)

type RunnerConfig struct {
	TickRateHz int
	// AutosaveEveryTicks sends a save to the snapshot sink every N ticks. Zero disables autosave.
	AutosaveEveryTicks uint64
	TuningDigest       string
}

type JoinRequest struct {
	Name     string
	Observer bool
	Out      chan []byte
	Resp     chan JoinResponse
}

type JoinResponse struct {
	Welcome  protocol.WelcomeMsg
	Catalogs []protocol.CatalogMsg
}

type ActEnvelope struct {
	SessionID string
	Act       protocol.ActMsg
}

// Stats is published after every tick for metrics and health checks.
type Stats struct {
	Tick          uint64
	Clients       int
	Phase         string
	Mode          string
	Modules       int
	CompletedRuns int
	Energy        float64
	Oxygen        float64
	Food          float64
	Currency      float64
	Science       float64
	StepSeconds   float64
	Autosaves     uint64
}

type client struct {
	id       string
	name     string
	observer bool
	out      chan []byte
}

type queryReq struct {
	fn   func(s *Station)
	done chan struct{}
}

// Runner owns a Station and drives it from one goroutine.
type Runner struct {
	st  *Station
	cfg RunnerConfig
	log *log.Logger

	inbox chan ActEnvelope
	join  chan JoinRequest
	leave chan string
	query chan queryReq
	stop  chan struct{}

	stopOnce sync.Once

	clients      map[string]*client
	snapshotSink chan<- snapshot.SaveV1
	autosaves    uint64

	stats atomic.Pointer[Stats]
}

func NewRunner(st *Station, cfg RunnerConfig, logger *log.Logger) *Runner {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = st.tune.TickRateHz
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		st:      st,
		cfg:     cfg,
		log:     logger,
		inbox:   make(chan ActEnvelope, 1024),
		join:    make(chan JoinRequest, 16),
		leave:   make(chan string, 16),
		query:   make(chan queryReq, 8),
		stop:    make(chan struct{}),
		clients: map[string]*client{},
	}
	r.publish(0)
	return r
}

func (r *Runner) SetSnapshotSink(ch chan<- snapshot.SaveV1) { r.snapshotSink = ch }

func (r *Runner) Inbox() chan<- ActEnvelope { return r.inbox }
func (r *Runner) Join() chan<- JoinRequest  { return r.join }
func (r *Runner) Leave() chan<- string      { return r.leave }
func (r *Runner) TickRateHz() int           { return r.cfg.TickRateHz }

// Stats returns the figures published after the most recent tick.
func (r *Runner) Stats() Stats {
	if p := r.stats.Load(); p != nil {
		return *p
	}
	return Stats{}
}

func (r *Runner) Stop() { r.stopOnce.Do(func() { close(r.stop) }) }

// Done is closed once the runner has been stopped or Run has returned.
func (r *Runner) Done() <-chan struct{} { return r.stop }

// Do runs fn on the loop goroutine between ticks and waits for it.
func (r *Runner) Do(ctx context.Context, fn func(s *Station)) error {
	q := queryReq{fn: fn, done: make(chan struct{})}
	select {
	case r.query <- q:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.stop:
		return context.Canceled
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(r.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer r.Stop()

	r.sendSnapshot()

	var pending []protocol.ActMsg
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case req := <-r.join:
			r.handleJoin(req)
		case id := <-r.leave:
			if _, ok := r.clients[id]; ok {
				delete(r.clients, id)
				r.log.Printf("leave session=%s", id)
			}
		case q := <-r.query:
			q.fn(r.st)
			close(q.done)
		case env := <-r.inbox:
			if c := r.clients[env.SessionID]; c != nil && c.observer {
				continue
			}
			pending = append(pending, env.Act)
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			r.step(dt, pending)
			pending = pending[:0]
		}
	}
}

// step runs one tick and fans the HUD out to every client.
func (r *Runner) step(dt float64, acts []protocol.ActMsg) {
	start := time.Now()
	res := r.st.Step(dt, acts)

	hud := r.st.HUD()
	if len(res.Events) > 0 {
		hud.Events = res.Events
	}
	b, err := json.Marshal(hud)
	if err != nil {
		r.log.Printf("hud encode tick=%d: %v", res.Tick, err)
	} else {
		for _, c := range r.clients {
			sendLatest(c.out, b)
		}
	}

	if every := r.cfg.AutosaveEveryTicks; every > 0 && res.Tick != 0 && res.Tick%every == 0 {
		r.sendSnapshot()
	}
	r.publish(time.Since(start).Seconds())
}

func (r *Runner) sendSnapshot() {
	if r.snapshotSink == nil {
		return
	}
	select {
	case r.snapshotSink <- r.st.ExportSave():
		r.autosaves++
	default:
		// Drop snapshot if sink is backed up.
	}
}

func (r *Runner) publish(stepSeconds float64) {
	s := r.st
	st := s.Stock()
	r.stats.Store(&Stats{
		Tick:          s.Tick(),
		Clients:       len(r.clients),
		Phase:         string(s.Phase()),
		Mode:          string(s.Mode()),
		Modules:       len(s.modules),
		CompletedRuns: s.meta.CompletedRuns,
		Energy:        st.Energy,
		Oxygen:        st.Oxygen,
		Food:          st.Food,
		Currency:      st.Currency,
		Science:       st.Science,
		StepSeconds:   stepSeconds,
		Autosaves:     r.autosaves,
	})
}

func (r *Runner) handleJoin(req JoinRequest) {
	id := "S" + uuid.NewString()
	r.clients[id] = &client{id: id, name: req.Name, observer: req.Observer, out: req.Out}
	r.log.Printf("join session=%s name=%q observer=%v", id, req.Name, req.Observer)

	resp := JoinResponse{
		Welcome:  r.welcome(id),
		Catalogs: r.catalogMsgs(),
	}
	select {
	case req.Resp <- resp:
	default:
	}
	if b, err := json.Marshal(r.st.HUD()); err == nil {
		sendLatest(req.Out, b)
	}
}

func (r *Runner) welcome(sessionID string) protocol.WelcomeMsg {
	c := r.st.cats
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		RunID:           r.st.RunID(),
		Params: protocol.StationParams{
			TickRateHz: r.cfg.TickRateHz,
			Seed:       r.st.Seed(),
			StaleTicks: StaleTicks,
		},
		Catalogs: protocol.CatalogDigests{
			Modules: c.Modules.Digest,
			Boons:   c.Boons.Digest,
			Goals:   c.Goals.Digest,
			Trades:  c.Trades.Digest,
			Gifts:   c.Gifts.Digest,
			Tuning:  r.cfg.TuningDigest,
		},
	}
}

func (r *Runner) catalogMsgs() []protocol.CatalogMsg {
	c := r.st.cats
	modules := make([]interface{}, 0, len(c.Modules.Order))
	for _, k := range c.Modules.Order {
		if d, ok := c.Def(k); ok {
			modules = append(modules, d)
		}
	}
	boons := make([]interface{}, 0, len(c.Boons.Order))
	for _, id := range c.Boons.Order {
		boons = append(boons, c.Boons.ByID[id])
	}
	msg := func(name, digest string, data interface{}) protocol.CatalogMsg {
		return protocol.CatalogMsg{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            name,
			Digest:          digest,
			Part:            1,
			TotalParts:      1,
			Data:            data,
		}
	}
	return []protocol.CatalogMsg{
		msg("modules", c.Modules.Digest, modules),
		msg("boons", c.Boons.Digest, boons),
		msg("goals", c.Goals.Digest, c.Goals.Templates),
		msg("trades", c.Trades.Digest, c.Trades.Offers),
		msg("gifts", c.Gifts.Digest, c.Gifts.Gifts),
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
