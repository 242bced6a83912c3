package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz           int     `yaml:"tick_rate_hz"`
	AutosaveEverySeconds float64 `yaml:"autosave_every_seconds"`

	Economy     Economy     `yaml:"economy"`
	Start       Start       `yaml:"start"`
	Limits      Limits      `yaml:"limits"`
	Events      Events      `yaml:"events"`
	Progression Progression `yaml:"progression"`
	Hazards     Hazards     `yaml:"hazards"`
	RateLimits  RateLimits  `yaml:"rate_limits"`
}

type Economy struct {
	BaseEnergyMax float64 `yaml:"base_energy_max"`
	BaseOxygenMax float64 `yaml:"base_oxygen_max"`
	// Occupants beyond PopulationBonusFree add PopulationBonusStep each to the global multiplier.
	PopulationBonusFree int     `yaml:"population_bonus_free"`
	PopulationBonusStep float64 `yaml:"population_bonus_step"`
	StarvingMultiplier  float64 `yaml:"starving_multiplier"`
	// VirusMalus scales the crypto energy ratio while a virus is active.
	VirusMalus             float64 `yaml:"virus_malus"`
	ScienceIntervalSeconds float64 `yaml:"science_interval_seconds"`
}

type Stock struct {
	Energy   float64 `yaml:"energy"`
	Oxygen   float64 `yaml:"oxygen"`
	Food     float64 `yaml:"food"`
	Currency float64 `yaml:"currency"`
}

type Start struct {
	Tutorial Stock `yaml:"tutorial"`
	Sandbox  Stock `yaml:"sandbox"`
}

type Limits struct {
	ModuleBase        int `yaml:"module_base"`
	ModulePerOccupant int `yaml:"module_per_occupant"`
	AntennaBase       int `yaml:"antenna_base"`
}

type Events struct {
	BoonFirstSeconds float64 `yaml:"boon_first_seconds"`
	BoonEverySeconds float64 `yaml:"boon_every_seconds"`
	BoonChoices      int     `yaml:"boon_choices"`

	SignalFirstMinSeconds    float64 `yaml:"signal_first_min_seconds"`
	SignalFirstSpreadSeconds float64 `yaml:"signal_first_spread_seconds"`
	SignalMinSeconds         float64 `yaml:"signal_min_seconds"`
	SignalSpreadSeconds      float64 `yaml:"signal_spread_seconds"`
	SignalReward             float64 `yaml:"signal_reward"`
	VirusChance              float64 `yaml:"virus_chance"`
	VirusSeconds             float64 `yaml:"virus_seconds"`

	MerchantOffers int `yaml:"merchant_offers"`
}

type Progression struct {
	GoalScalePerRun float64 `yaml:"goal_scale_per_run"`
	JumpBonus       float64 `yaml:"jump_bonus"`
	JumpRadius      int     `yaml:"jump_radius"`
}

type Hazards struct {
	AsteroidEverySeconds float64 `yaml:"asteroid_every_seconds"`
	AsteroidRingRadius   int     `yaml:"asteroid_ring_radius"`
	AsteroidStepSeconds  float64 `yaml:"asteroid_step_seconds"`
	AsteroidScienceMin   int     `yaml:"asteroid_science_min"`
	AsteroidScienceMax   int     `yaml:"asteroid_science_max"`
	DroneStepSeconds     float64 `yaml:"drone_step_seconds"`
}

type RateLimits struct {
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	CommandBurst      int     `yaml:"command_burst"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:      "1.0",
		TickRateHz:           10,
		AutosaveEverySeconds: 30,
		Economy: Economy{
			BaseEnergyMax:          200,
			BaseOxygenMax:          200,
			PopulationBonusFree:    2,
			PopulationBonusStep:    0.05,
			StarvingMultiplier:     0.8,
			VirusMalus:             0.0,
			ScienceIntervalSeconds: 60,
		},
		Start: Start{
			Tutorial: Stock{Energy: 100, Oxygen: 100, Food: 100, Currency: 500},
			Sandbox:  Stock{Energy: 100, Oxygen: 100, Food: 50, Currency: 1000},
		},
		Limits: Limits{
			ModuleBase:        4,
			ModulePerOccupant: 3,
			AntennaBase:       4,
		},
		Events: Events{
			BoonFirstSeconds:         120,
			BoonEverySeconds:         300,
			BoonChoices:              2,
			SignalFirstMinSeconds:    45,
			SignalFirstSpreadSeconds: 60,
			SignalMinSeconds:         60,
			SignalSpreadSeconds:      120,
			SignalReward:             250,
			VirusChance:              0.4,
			VirusSeconds:             20,
			MerchantOffers:           3,
		},
		Progression: Progression{
			GoalScalePerRun: 0.4,
			JumpBonus:       500,
			JumpRadius:      6,
		},
		Hazards: Hazards{
			AsteroidEverySeconds: 90,
			AsteroidRingRadius:   10,
			AsteroidStepSeconds:  3,
			AsteroidScienceMin:   5,
			AsteroidScienceMax:   14,
			DroneStepSeconds:     0.5,
		},
		RateLimits: RateLimits{
			CommandsPerSecond: 10,
			CommandBurst:      20,
		},
	}
}

// Load reads path over Defaults. A missing file yields Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if t.Economy.BaseEnergyMax <= 0 || t.Economy.BaseOxygenMax <= 0 {
		return fmt.Errorf("base maxima must be > 0")
	}
	if t.Economy.StarvingMultiplier < 0 || t.Economy.VirusMalus < 0 || t.Economy.VirusMalus > 1 {
		return fmt.Errorf("starving_multiplier/virus_malus out of range")
	}
	if t.Economy.ScienceIntervalSeconds <= 0 {
		return fmt.Errorf("science_interval_seconds must be > 0")
	}
	if t.Limits.ModuleBase < 0 || t.Limits.ModulePerOccupant < 0 || t.Limits.AntennaBase < 0 {
		return fmt.Errorf("limits must be >= 0")
	}
	if t.Events.BoonChoices <= 0 || t.Events.MerchantOffers <= 0 {
		return fmt.Errorf("boon_choices and merchant_offers must be > 0")
	}
	if t.Events.VirusChance < 0 || t.Events.VirusChance > 1 {
		return fmt.Errorf("virus_chance must be in [0,1]")
	}
	if t.Events.BoonFirstSeconds <= 0 || t.Events.BoonEverySeconds <= 0 || t.Events.SignalMinSeconds <= 0 {
		return fmt.Errorf("event intervals must be > 0")
	}
	if t.Progression.JumpRadius <= 0 || t.Progression.GoalScalePerRun < 0 {
		return fmt.Errorf("jump_radius must be > 0")
	}
	h := t.Hazards
	if h.AsteroidEverySeconds <= 0 || h.AsteroidStepSeconds <= 0 || h.DroneStepSeconds <= 0 || h.AsteroidRingRadius <= 0 {
		return fmt.Errorf("hazard intervals must be > 0")
	}
	if h.AsteroidScienceMin < 0 || h.AsteroidScienceMax < h.AsteroidScienceMin {
		return fmt.Errorf("asteroid science range is empty")
	}
	if t.RateLimits.CommandsPerSecond <= 0 || t.RateLimits.CommandBurst <= 0 {
		return fmt.Errorf("rate_limits must be > 0")
	}
	return nil
}
