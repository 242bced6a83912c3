package drones

import (
	"math"
	"math/rand"

	"apexhorizons.ai/internal/sim/catalogs"
	"apexhorizons.ai/internal/sim/grid"
	"apexhorizons.ai/internal/sim/tuning"
)

type Asteroid struct {
	ID      int        `json:"id"`
	Cell    grid.Coord `json:"cell"`
	Science int        `json:"science"`
	Timer   float64    `json:"timer"`
}

type State string

const (
	StateIdle      State = "IDLE"
	StateOutbound  State = "OUTBOUND"
	StateReturning State = "RETURNING"
)

type Drone struct {
	ID     int        `json:"id"`
	Hangar int        `json:"hangar"`
	Home   grid.Coord `json:"home"`
	Cell   grid.Coord `json:"cell"`
	State  State      `json:"state"`
	Target int        `json:"target,omitempty"`
	Cargo  int        `json:"cargo,omitempty"`
	Timer  float64    `json:"timer"`
}

// Module is a placed module as seen by the hazard system.
type Module struct {
	ID   int
	Kind catalogs.Kind
	Cell grid.Coord
	// Drones is the number of drones a hangar launches.
	Drones int
}

type System struct {
	Asteroids  []Asteroid `json:"asteroids"`
	Drones     []Drone    `json:"drones"`
	SpawnTimer float64    `json:"spawn_timer"`
	NextID     int        `json:"next_id"`
}

type Input struct {
	DT      float64
	Modules []Module
	Hazards tuning.Hazards
	RNG     *rand.Rand
}

type Result struct {
	// Destroyed lists the ids of modules hit by asteroids, in hit order.
	Destroyed   []int
	Science     float64
	Spawned     int
	Intercepted int
	Impacts     int
}

func (s *System) Reset() { *s = System{} }

func (s *System) newID() int {
	s.NextID++
	return s.NextID
}

// Tick runs hangar sync, spawning, asteroid movement and drone movement, in that order.
func (s *System) Tick(in Input) Result {
	var res Result
	dt := in.DT
	if !(dt > 0) || math.IsInf(dt, 0) {
		return res
	}
	h := in.Hazards
	s.syncHangars(in.Modules)

	s.SpawnTimer += dt
	if s.SpawnTimer >= h.AsteroidEverySeconds {
		s.SpawnTimer = 0
		angle := in.RNG.Float64() * 2 * math.Pi
		science := h.AsteroidScienceMin
		if span := h.AsteroidScienceMax - h.AsteroidScienceMin + 1; span > 0 {
			science += in.RNG.Intn(span)
		}
		s.Asteroids = append(s.Asteroids, Asteroid{
			ID:      s.newID(),
			Cell:    grid.RingCell(grid.Coord{}, h.AsteroidRingRadius, angle),
			Science: science,
		})
		res.Spawned++
	}

	destroyed := map[int]bool{}
	kept := s.Asteroids[:0]
	for _, a := range s.Asteroids {
		a.Timer += dt
		if a.Timer >= h.AsteroidStepSeconds {
			a.Timer = 0
			if target, ok := nearest(a.Cell, in.Modules, destroyed); ok {
				a.Cell = grid.StepToward(a.Cell, target.Cell)
			}
		}
		if hit, ok := moduleAt(a.Cell, in.Modules, destroyed); ok {
			res.Impacts++
			if hit.Kind != catalogs.KindJumpDrive {
				destroyed[hit.ID] = true
				res.Destroyed = append(res.Destroyed, hit.ID)
			}
			continue
		}
		kept = append(kept, a)
	}
	s.Asteroids = kept
	if len(destroyed) > 0 {
		s.dropOrphans(destroyed)
	}

	for i := range s.Drones {
		d := &s.Drones[i]
		d.Timer += dt
		switch d.State {
		case StateIdle:
			if id, ok := s.untargeted(); ok {
				d.Target = id
				d.State = StateOutbound
				d.Timer = 0
			}
		case StateOutbound:
			idx := s.asteroidIndex(d.Target)
			if idx < 0 {
				d.Target = 0
				d.State = StateReturning
				continue
			}
			if d.Timer < h.DroneStepSeconds {
				continue
			}
			d.Timer = 0
			if d.Cell == s.Asteroids[idx].Cell {
				d.Cargo += s.Asteroids[idx].Science
				d.Target = 0
				d.State = StateReturning
				s.Asteroids = append(s.Asteroids[:idx], s.Asteroids[idx+1:]...)
				res.Intercepted++
				continue
			}
			d.Cell = grid.StepToward(d.Cell, s.Asteroids[idx].Cell)
		case StateReturning:
			if d.Timer < h.DroneStepSeconds {
				continue
			}
			d.Timer = 0
			if d.Cell == d.Home {
				res.Science += float64(d.Cargo)
				d.Cargo = 0
				d.State = StateIdle
				continue
			}
			d.Cell = grid.StepToward(d.Cell, d.Home)
		}
	}
	return res
}

// syncHangars gives every hangar its drones and drops drones whose hangar is gone.
func (s *System) syncHangars(mods []Module) {
	want := map[int]Module{}
	for _, m := range mods {
		if m.Kind == catalogs.KindDroneHangar {
			want[m.ID] = m
		}
	}
	have := map[int]int{}
	kept := s.Drones[:0]
	for _, d := range s.Drones {
		m, ok := want[d.Hangar]
		if !ok || have[d.Hangar] >= m.Drones {
			continue
		}
		have[d.Hangar]++
		kept = append(kept, d)
	}
	s.Drones = kept
	for _, m := range mods {
		if m.Kind != catalogs.KindDroneHangar {
			continue
		}
		for have[m.ID] < m.Drones {
			have[m.ID]++
			s.Drones = append(s.Drones, Drone{ID: s.newID(), Hangar: m.ID, Home: m.Cell, Cell: m.Cell, State: StateIdle})
		}
	}
}

func (s *System) dropOrphans(destroyed map[int]bool) {
	kept := s.Drones[:0]
	for _, d := range s.Drones {
		if !destroyed[d.Hangar] {
			kept = append(kept, d)
		}
	}
	s.Drones = kept
}

func (s *System) untargeted() (int, bool) {
	taken := map[int]bool{}
	for _, d := range s.Drones {
		if d.State == StateOutbound {
			taken[d.Target] = true
		}
	}
	for _, a := range s.Asteroids {
		if !taken[a.ID] {
			return a.ID, true
		}
	}
	return 0, false
}

func (s *System) asteroidIndex(id int) int {
	for i, a := range s.Asteroids {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// nearest returns the closest surviving module by Manhattan distance, first wins ties.
func nearest(from grid.Coord, mods []Module, destroyed map[int]bool) (Module, bool) {
	best, bestDist, found := Module{}, 0, false
	for _, m := range mods {
		if destroyed[m.ID] {
			continue
		}
		d := grid.Manhattan(from, m.Cell)
		if !found || d < bestDist {
			best, bestDist, found = m, d, true
		}
	}
	return best, found
}

func moduleAt(c grid.Coord, mods []Module, destroyed map[int]bool) (Module, bool) {
	for _, m := range mods {
		if m.Cell == c && !destroyed[m.ID] {
			return m, true
		}
	}
	return Module{}, false
}
