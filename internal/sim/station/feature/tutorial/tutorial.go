package tutorial

type Step int

const (
	StepOxygen Step = iota
	StepWaitCrypto
	StepCrypto
	StepWaitEnergy
	StepEnergy
	StepWaitPopulation
	StepPopulation
	StepSurvival
	StepComplete

	// StepSandbox marks a run that never enters the tutorial.
	StepSandbox Step = 10
)

// Wait durations, in seconds.
const (
	WaitCrypto     = 3.0
	WaitEnergy     = 5.0
	WaitPopulation = 15.0
	SurvivalTime   = 60.0
)

// Required module counts.
const (
	NeedOxygenReserves   = 2
	NeedCryptoGenerators = 2
	NeedSolarPanels      = 4
	NeedDormitories      = 4
)

func (s Step) String() string {
	switch s {
	case StepOxygen:
		return "OXYGEN"
	case StepWaitCrypto:
		return "WAIT_CRYPTO"
	case StepCrypto:
		return "CRYPTO"
	case StepWaitEnergy:
		return "WAIT_ENERGY"
	case StepEnergy:
		return "ENERGY"
	case StepWaitPopulation:
		return "WAIT_POPULATION"
	case StepPopulation:
		return "POPULATION"
	case StepSurvival:
		return "SURVIVAL"
	case StepComplete:
		return "COMPLETE"
	case StepSandbox:
		return "SANDBOX"
	}
	return "UNKNOWN"
}

func (s Step) Valid() bool {
	return (s >= StepOxygen && s <= StepComplete) || s == StepSandbox
}

// Counts is what the gate reads from the station each tick.
type Counts struct {
	OxygenReserves   int
	CryptoGenerators int
	SolarPanels      int
	Dormitories      int
	// EnergyDeficit is energy production below demand.
	EnergyDeficit bool
}

type State struct {
	Step  Step    `json:"step"`
	Timer float64 `json:"timer"`
}

func New(sandbox bool) State {
	if sandbox {
		return State{Step: StepSandbox}
	}
	return State{Step: StepOxygen}
}

func (s State) Active() bool { return s.Step < StepComplete }

// Advance runs one tick of the gate and reports whether the step changed.
// At most one transition happens per call.
func (s *State) Advance(dt float64, c Counts) bool {
	if !(dt > 0) {
		dt = 0
	}
	switch s.Step {
	case StepOxygen:
		if c.OxygenReserves >= NeedOxygenReserves {
			s.enter(StepWaitCrypto, WaitCrypto)
			return true
		}
	case StepWaitCrypto:
		s.Timer -= dt
		if s.Timer <= 0 {
			s.enter(StepCrypto, 0)
			return true
		}
	case StepCrypto:
		if c.CryptoGenerators >= NeedCryptoGenerators {
			s.enter(StepWaitEnergy, WaitEnergy)
			return true
		}
	case StepWaitEnergy:
		s.Timer -= dt
		if s.Timer <= 0 && c.EnergyDeficit {
			s.enter(StepEnergy, 0)
			return true
		}
	case StepEnergy:
		if c.SolarPanels >= NeedSolarPanels {
			s.enter(StepWaitPopulation, WaitPopulation)
			return true
		}
	case StepWaitPopulation:
		s.Timer -= dt
		if s.Timer <= 0 {
			s.enter(StepPopulation, 0)
			return true
		}
	case StepPopulation:
		if c.Dormitories >= NeedDormitories {
			s.enter(StepSurvival, SurvivalTime)
			return true
		}
	case StepSurvival:
		s.Timer -= dt
		if s.Timer <= 0 {
			s.enter(StepComplete, 0)
			return true
		}
	}
	return false
}

func (s *State) enter(step Step, timer float64) {
	s.Step = step
	s.Timer = timer
}
