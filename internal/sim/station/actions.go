package station

import (
	"errors"

	"apexhorizons.ai/internal/protocol"
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/grid"
	"apexhorizons.ai/internal/sim/station/feature/events"
	"apexhorizons.ai/internal/sim/station/feature/placement"
)

type commandHandler func(s *Station, c protocol.CommandReq) error

var commandDispatch = map[string]commandHandler{
	protocol.CmdStartRun: func(s *Station, c protocol.CommandReq) error { return s.StartRun(Mode(c.Mode)) },
	protocol.CmdPlace: func(s *Station, c protocol.CommandReq) error {
		cell, err := reqCell(c)
		if err != nil {
			return err
		}
		_, err = s.RequestPlacement(catalogs.Kind(c.Kind), cell)
		return err
	},
	protocol.CmdHold: func(s *Station, c protocol.CommandReq) error { return s.Hold(catalogs.Kind(c.Kind)) },
	protocol.CmdHover: func(s *Station, c protocol.CommandReq) error {
		cell, err := reqCell(c)
		if err != nil {
			return err
		}
		s.Hover(cell)
		return nil
	},
	protocol.CmdRelease: func(s *Station, c protocol.CommandReq) error {
		_, err := s.Release()
		return err
	},
	protocol.CmdSelectBoon:    func(s *Station, c protocol.CommandReq) error { return s.SelectBoon(c.Choice) },
	protocol.CmdAnswerSignal:  func(s *Station, c protocol.CommandReq) error { return s.AnswerSignal(c.Accept) },
	protocol.CmdTrade:         func(s *Station, c protocol.CommandReq) error { return s.ExecuteTrade(c.Choice) },
	protocol.CmdCloseMerchant: func(s *Station, c protocol.CommandReq) error { return s.CloseMerchant() },
	protocol.CmdChooseGift:    func(s *Station, c protocol.CommandReq) error { return s.ChooseGift(c.Choice) },
	protocol.CmdJump: func(s *Station, c protocol.CommandReq) error {
		cell, err := reqCell(c)
		if err != nil {
			return err
		}
		return s.Jump(cell)
	},
	protocol.CmdPause:  func(s *Station, c protocol.CommandReq) error { s.Pause(); return nil },
	protocol.CmdResume: func(s *Station, c protocol.CommandReq) error { s.Resume(); return nil },
}

func reqCell(c protocol.CommandReq) (grid.Coord, error) {
	if c.Cell == nil {
		return grid.Coord{}, refuse(protocol.ErrBadRequest, "missing cell")
	}
	return grid.Coord{X: c.Cell[0], Z: c.Cell[1]}, nil
}

func (s *Station) applyAct(act protocol.ActMsg, nowTick uint64) {
	// Staleness check: accept only [now-2, now].
	if act.Tick+StaleTicks < nowTick || act.Tick > nowTick {
		ref := act.ID
		if ref == "" {
			ref = "ACT"
		}
		s.emit(actionResult(nowTick, ref, false, protocol.ErrStale, "act tick out of range"))
		return
	}
	for _, c := range act.Commands {
		s.applyCommand(c, nowTick)
	}
}

func (s *Station) applyCommand(c protocol.CommandReq, nowTick uint64) {
	h := commandDispatch[c.Type]
	if h == nil {
		s.emit(actionResult(nowTick, c.ID, false, protocol.ErrBadRequest, "unknown command type"))
		return
	}
	if err := h(s, c); err != nil {
		var r *Refusal
		if errors.As(err, &r) {
			s.emit(actionResult(nowTick, c.ID, false, r.Code, r.Message))
			return
		}
		s.emit(actionResult(nowTick, c.ID, false, protocol.ErrInternal, err.Error()))
		return
	}
	s.emit(actionResult(nowTick, c.ID, true, "", ""))
}

func actionResult(tick uint64, ref string, ok bool, code string, message string) protocol.Event {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
		if message == "" {
			message = "unknown error code"
		}
	}
	e := protocol.Event{
		"t":    tick,
		"type": "ACTION_RESULT",
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		e["code"] = code
	}
	if message != "" {
		e["message"] = message
	}
	return e
}

func statusCode(st placement.Status) string {
	switch st {
	case placement.StatusOccupied:
		return protocol.ErrOccupied
	case placement.StatusTooFar:
		return protocol.ErrTooFar
	case placement.StatusNoFunds:
		return protocol.ErrNoFunds
	case placement.StatusModuleLimit:
		return protocol.ErrModuleLimit
	case placement.StatusAntennaLimit:
		return protocol.ErrAntennaLimit
	case placement.StatusLocked:
		return protocol.ErrLocked
	}
	return ""
}

func (s *Station) canBuild() error {
	if s.phase != PhaseRunning && s.phase != PhaseJumpReady {
		return refuse(protocol.ErrBadPhase, "no run in progress")
	}
	if s.pending.Open() {
		return refuse(protocol.ErrBadPhase, "a choice is pending")
	}
	return nil
}

func (s *Station) evaluate(def catalogs.ModuleDef, cell grid.Coord) placement.Result {
	return placement.Evaluate(placement.Query{
		Def:            def,
		Cell:           cell,
		Base:           s.placed(),
		Currency:       s.stock.Currency,
		CostMultiplier: s.mods.CostMultiplier,
		Population:     s.population(),
		CompletedRuns:  s.meta.CompletedRuns,
		Sandbox:        s.sandbox(),
		Limits:         s.tune.Limits,
	})
}

// QueryValidCells returns the sorted adjacency frontier for kind. It has no side effects.
func (s *Station) QueryValidCells(kind catalogs.Kind) ([]grid.Coord, error) {
	def, ok := s.cats.Def(kind)
	if !ok {
		return nil, refuse(protocol.ErrBadRequest, "unknown module kind")
	}
	return grid.Sorted(placement.ValidPlacements(def, s.placed())), nil
}

// Preview evaluates a placement without committing it.
func (s *Station) Preview(kind catalogs.Kind, cell grid.Coord) (placement.Result, error) {
	def, ok := s.cats.Def(kind)
	if !ok {
		return placement.Result{}, refuse(protocol.ErrBadRequest, "unknown module kind")
	}
	return s.evaluate(def, cell), nil
}

// RequestPlacement commits a purchase at cell. The returned Result is always
// filled in; a non-nil error is a Refusal explaining why nothing changed.
func (s *Station) RequestPlacement(kind catalogs.Kind, cell grid.Coord) (placement.Result, error) {
	def, ok := s.cats.Def(kind)
	if !ok {
		return placement.Result{}, refuse(protocol.ErrBadRequest, "unknown module kind")
	}
	res := s.evaluate(def, cell)
	if err := s.canBuild(); err != nil {
		return res, err
	}
	if !res.Legal {
		return res, refuse(statusCode(res.Status), res.Message)
	}

	s.stock.Currency -= res.Cost
	if res.Replacement {
		if i, ok := s.moduleAt(cell); ok {
			old := s.removeAt(i)
			s.emit(protocol.Event{"type": "MODULE_REPLACED", "id": old.ID, "kind": string(old.Kind), "cell": cell.ToArray()})
		}
	}
	m := s.addModule(def, cell)
	s.clampStock()
	s.observe()
	s.emit(protocol.Event{"type": "MODULE_PLACED", "id": m.ID, "kind": string(kind), "cell": cell.ToArray(), "cost": res.Cost})
	s.audit(AuditEntry{Action: "PLACE", Kind: string(kind), Cell: cellArr(cell), Amount: res.Cost})

	if kind == catalogs.KindRadioAntenna {
		s.openMerchant()
	}
	s.refreshGhost()
	return res, nil
}

func (s *Station) openMerchant() {
	trades := events.DrawTrades(s.rand(), s.cats.Trades, s.tune.Events.MerchantOffers)
	if len(trades) == 0 {
		return
	}
	s.pending = events.Pending{Modal: events.ModalMerchant, Trades: trades}
	s.emit(protocol.Event{"type": "MERCHANT_OPENED", "offers": tradeIDs(trades)})
}

func tradeIDs(ts []catalogs.TradeDef) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

// Hold picks up kind from the palette for drag-to-place.
func (s *Station) Hold(kind catalogs.Kind) error {
	if _, ok := s.cats.Def(kind); !ok {
		return refuse(protocol.ErrBadRequest, "unknown module kind")
	}
	s.hold = kind
	s.refreshGhost()
	return nil
}

func (s *Station) Hover(cell grid.Coord) {
	c := cell
	s.hover = &c
	s.refreshGhost()
}

// Release drops the held module at the hovered cell and clears the drag.
func (s *Station) Release() (placement.Result, error) {
	kind, hover := s.hold, s.hover
	s.hold = ""
	s.hover = nil
	s.ghost = nil
	if kind == "" || hover == nil {
		return placement.Result{}, refuse(protocol.ErrBadRequest, "nothing held")
	}
	return s.RequestPlacement(kind, *hover)
}

func (s *Station) refreshGhost() {
	if s.hold == "" || s.hover == nil || (s.phase != PhaseRunning && s.phase != PhaseJumpReady) {
		s.ghost = nil
		return
	}
	def, ok := s.cats.Def(s.hold)
	if !ok {
		s.ghost = nil
		return
	}
	r := s.evaluate(def, *s.hover)
	s.ghost = &r
}

func (s *Station) Ghost() (placement.Result, bool) {
	if s.ghost == nil {
		return placement.Result{}, false
	}
	return *s.ghost, true
}

func (s *Station) SelectBoon(id string) error {
	if s.pending.Modal != events.ModalBoon {
		return refuse(protocol.ErrBadPhase, "no boon offer")
	}
	for _, b := range s.pending.Boons {
		if b.ID != id {
			continue
		}
		if err := s.mods.ApplyBoon(b); err != nil {
			return err
		}
		s.pending = events.Pending{}
		s.clampStock()
		s.observe()
		s.emit(protocol.Event{"type": "BOON_SELECTED", "boon": b.ID, "effect": b.Effect, "value": b.Value})
		s.audit(AuditEntry{Action: "BOON", Kind: b.ID, Amount: b.Value})
		return nil
	}
	return refuse(protocol.ErrInvalidTarget, "boon not offered")
}

func (s *Station) AnswerSignal(accept bool) error {
	if s.pending.Modal != events.ModalSignal {
		return refuse(protocol.ErrBadPhase, "no signal to answer")
	}
	out := events.ResolveSignal(accept, s.rand(), s.tune.Events)
	s.pending = events.Pending{}
	if out.Virus {
		s.mods.StartVirus(s.tune.Events.VirusSeconds)
		s.emit(protocol.Event{"type": "VIRUS_STARTED", "seconds": s.mods.VirusRemaining})
	}
	if out.Reward > 0 {
		s.stock.Currency += out.Reward
		s.clampStock()
	}
	s.emit(protocol.Event{"type": "SIGNAL_RESOLVED", "accepted": out.Accepted, "virus": out.Virus, "reward": out.Reward})
	s.audit(AuditEntry{Action: "SIGNAL", Amount: out.Reward, Details: map[string]any{"accepted": out.Accepted, "virus": out.Virus}})
	return nil
}

// ExecuteTrade runs one of the merchant's current offers. The offer is redrawn afterwards.
func (s *Station) ExecuteTrade(id string) error {
	if s.pending.Modal != events.ModalMerchant {
		return refuse(protocol.ErrBadPhase, "merchant is not open")
	}
	for _, t := range s.pending.Trades {
		if t.ID != id {
			continue
		}
		next, ok := events.ExecuteTrade(s.stock, t)
		if !ok {
			return refuse(protocol.ErrNoResource, "not enough "+t.CostRes)
		}
		s.stock = next
		s.clampStock()
		s.emit(protocol.Event{"type": "TRADE_EXECUTED", "trade": t.ID, "cost_resource": t.CostRes, "cost": t.CostVal, "give_resource": t.GiveRes, "give": t.GiveVal})
		s.audit(AuditEntry{Action: "TRADE", Kind: t.ID, Amount: t.CostVal})
		if trades := events.DrawTrades(s.rand(), s.cats.Trades, s.tune.Events.MerchantOffers); len(trades) > 0 {
			s.pending.Trades = trades
		}
		return nil
	}
	return refuse(protocol.ErrInvalidTarget, "trade not offered")
}

func (s *Station) CloseMerchant() error {
	if s.pending.Modal != events.ModalMerchant {
		return refuse(protocol.ErrBadPhase, "merchant is not open")
	}
	s.pending = events.Pending{}
	s.emit(protocol.Event{"type": "MERCHANT_CLOSED"})
	return nil
}

// ChooseGift unlocks a starter for every later sandbox run and places it now.
func (s *Station) ChooseGift(id string) error {
	if s.pending.Modal != events.ModalGift {
		return refuse(protocol.ErrBadPhase, "no gift offer")
	}
	var gift catalogs.GiftDef
	found := false
	for _, g := range s.pending.Gifts {
		if g.ID == id {
			gift, found = g, true
			break
		}
	}
	if !found {
		return refuse(protocol.ErrInvalidTarget, "gift not offered")
	}
	s.pending = events.Pending{}
	s.meta.Starters = append(s.meta.Starters, gift.ID)
	s.persistMeta()

	ev := protocol.Event{"type": "GIFT_CHOSEN", "gift": gift.ID, "kind": string(gift.Kind)}
	for _, p := range events.PlaceStarters(s.cats.Gifts, []string{gift.ID}, s.occupied) {
		if def, ok := s.cats.Def(p.Kind); ok {
			m := s.addModule(def, p.Cell)
			ev["cell"] = m.Cell.ToArray()
		}
	}
	s.clampStock()
	s.observe()
	s.emit(ev)
	s.audit(AuditEntry{Action: "GIFT", Kind: gift.ID})
	return nil
}

func (s *Station) Pause() {
	if s.paused {
		return
	}
	s.paused = true
	s.emit(protocol.Event{"type": "PAUSED"})
}

func (s *Station) Resume() {
	if !s.paused {
		return
	}
	s.paused = false
	s.emit(protocol.Event{"type": "RESUMED"})
}
