package station

import (
	"apexhorizons.ai/internal/protocol"
	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/station/feature/events"
	"apexhorizons.ai/internal/sim/station/feature/placement"
)

// HUD renders the station for clients. Events are left to the caller.
func (s *Station) HUD() protocol.HUDMsg {
	eMax, oMax := s.maxima()
	te, to, tf, tc := s.last.Flows.Trend()
	pop := s.population()
	base := s.placed()

	h := protocol.HUDMsg{
		Type:            protocol.TypeHUD,
		ProtocolVersion: protocol.Version,
		Tick:            s.tick,
		RunID:           s.cfg.RunID,
		Phase:           string(s.phase),
		Paused:          s.Paused(),
		Stock: protocol.StockObs{
			Energy:    s.stock.Energy,
			EnergyMax: eMax,
			Oxygen:    s.stock.Oxygen,
			OxygenMax: oMax,
			Food:      s.stock.Food,
			Currency:  s.stock.Currency,
			Science:   s.stock.Science,
		},
		Trends:          protocol.TrendObs{Energy: te, Oxygen: to, Food: tf, Currency: tc},
		Population:      pop,
		PopulationBonus: s.last.PopulationBonus,
		ModuleCount:     placement.ModuleCount(base),
		ModuleLimit:     placement.ModuleLimit(pop, s.tune.Limits),
		CompletedRuns:   s.meta.CompletedRuns,
		PlayTime:        s.playTime,
		Tutorial: protocol.TutorialObs{
			Step:  int(s.tut.Step),
			Name:  s.tut.Step.String(),
			Timer: s.tut.Timer,
		},
		Modules: make([]protocol.ModuleObs, 0, len(s.modules)),
		Events:  []protocol.Event{},
	}
	if s.phase != PhaseNotStarted {
		h.Mode = string(s.mode)
	}
	if h.PopulationBonus == 0 {
		h.PopulationBonus = 1
	}

	if g, ok := s.Goal(); ok {
		h.Goal = &protocol.GoalObs{
			ID:       g.ID,
			Title:    g.Title,
			Metric:   g.Metric,
			Target:   g.Target,
			Progress: s.GoalProgress(),
		}
	}
	if s.ghost != nil {
		g := s.ghost
		cells := make([][2]int, 0, len(g.ValidCells))
		for _, c := range g.ValidCells {
			cells = append(cells, c.ToArray())
		}
		h.Ghost = &protocol.GhostObs{
			Kind:        string(g.Kind),
			Cell:        g.Cell.ToArray(),
			Status:      string(g.Status),
			Message:     g.Message,
			ColorClass:  g.ColorClass,
			Legal:       g.Legal,
			Replacement: g.Replacement,
			Cost:        g.Cost,
			ValidCells:  cells,
		}
	}
	if s.pending.Open() {
		h.Modal = modalObs(s.pending)
	}
	if s.mods.VirusActive {
		h.Virus = &protocol.VirusObs{Remaining: s.mods.VirusRemaining}
	}
	if s.defeat != "" {
		h.Defeat = &protocol.DefeatObs{Cause: string(s.defeat), Message: s.defeat.Message()}
	}

	for _, m := range s.modules {
		h.Modules = append(h.Modules, protocol.ModuleObs{ID: m.ID, Kind: string(m.Kind), Cell: m.Cell.ToArray()})
		if m.Kind == catalogs.KindJumpDrive {
			c := m.Cell.ToArray()
			h.JumpDrive = &c
		}
	}
	for _, a := range s.hazards.Asteroids {
		h.Asteroids = append(h.Asteroids, protocol.AsteroidObs{ID: a.ID, Cell: a.Cell.ToArray(), Science: a.Science})
	}
	for _, d := range s.hazards.Drones {
		h.Drones = append(h.Drones, protocol.DroneObs{ID: d.ID, Cell: d.Cell.ToArray(), State: string(d.State)})
	}
	return h
}

func modalObs(p events.Pending) *protocol.ModalObs {
	m := &protocol.ModalObs{Modal: string(p.Modal)}
	for _, b := range p.Boons {
		m.Boons = append(m.Boons, protocol.ChoiceObs{ID: b.ID, Title: b.Title, Description: b.Description})
	}
	for _, t := range p.Trades {
		m.Trades = append(m.Trades, protocol.TradeObs{
			ID:      t.ID,
			Title:   t.Title,
			CostRes: t.CostRes,
			CostVal: t.CostVal,
			GiveRes: t.GiveRes,
			GiveVal: t.GiveVal,
		})
	}
	for _, g := range p.Gifts {
		m.Gifts = append(m.Gifts, protocol.ChoiceObs{ID: g.ID, Title: g.Title})
	}
	return m
}
