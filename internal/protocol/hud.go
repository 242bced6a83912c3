package protocol

// HUD (server -> client), one frame per tick.
type HUDMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	RunID           string `json:"run_id,omitempty"`

	Phase  string `json:"phase"`
	Mode   string `json:"mode,omitempty"`
	Paused bool   `json:"paused"`

	Stock  StockObs `json:"stock"`
	Trends TrendObs `json:"trends"`

	Population      int     `json:"population"`
	PopulationBonus float64 `json:"population_bonus"`
	ModuleCount     int     `json:"module_count"`
	ModuleLimit     int     `json:"module_limit"`
	CompletedRuns   int     `json:"completed_runs"`
	PlayTime        float64 `json:"play_time"`

	Tutorial TutorialObs `json:"tutorial"`
	Goal     *GoalObs    `json:"goal,omitempty"`
	Ghost    *GhostObs   `json:"ghost,omitempty"`
	Modal    *ModalObs   `json:"modal,omitempty"`
	Virus    *VirusObs   `json:"virus,omitempty"`
	Defeat   *DefeatObs  `json:"defeat,omitempty"`

	Modules   []ModuleObs   `json:"modules"`
	JumpDrive *[2]int       `json:"jump_drive,omitempty"`
	Asteroids []AsteroidObs `json:"asteroids,omitempty"`
	Drones    []DroneObs    `json:"drones,omitempty"`

	Events []Event `json:"events"`
}

type StockObs struct {
	Energy    float64 `json:"energy"`
	EnergyMax float64 `json:"energy_max"`
	Oxygen    float64 `json:"oxygen"`
	OxygenMax float64 `json:"oxygen_max"`
	Food      float64 `json:"food"`
	Currency  float64 `json:"currency"`
	Science   float64 `json:"science"`
}

// TrendObs holds net per-second rates.
type TrendObs struct {
	Energy   float64 `json:"energy"`
	Oxygen   float64 `json:"oxygen"`
	Food     float64 `json:"food"`
	Currency float64 `json:"currency"`
}

type TutorialObs struct {
	Step  int     `json:"step"`
	Name  string  `json:"name"`
	Timer float64 `json:"timer,omitempty"`
}

type GoalObs struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Metric   string  `json:"metric"`
	Target   float64 `json:"target"`
	Progress float64 `json:"progress"`
}

type GhostObs struct {
	Kind        string   `json:"kind"`
	Cell        [2]int   `json:"cell"`
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	ColorClass  string   `json:"color_class"`
	Legal       bool     `json:"legal"`
	Replacement bool     `json:"replacement,omitempty"`
	Cost        float64  `json:"cost"`
	ValidCells  [][2]int `json:"valid_cells"`
}

type ModalObs struct {
	Modal  string      `json:"modal"`
	Boons  []ChoiceObs `json:"boons,omitempty"`
	Trades []TradeObs  `json:"trades,omitempty"`
	Gifts  []ChoiceObs `json:"gifts,omitempty"`
}

type ChoiceObs struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type TradeObs struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	CostRes string  `json:"cost_resource"`
	CostVal float64 `json:"cost_value"`
	GiveRes string  `json:"give_resource"`
	GiveVal float64 `json:"give_value"`
}

type VirusObs struct {
	Remaining float64 `json:"remaining"`
}

type DefeatObs struct {
	Cause   string `json:"cause"`
	Message string `json:"message"`
}

type ModuleObs struct {
	ID   int    `json:"id"`
	Kind string `json:"kind"`
	Cell [2]int `json:"cell"`
}

type AsteroidObs struct {
	ID      int    `json:"id"`
	Cell    [2]int `json:"cell"`
	Science int    `json:"science"`
}

type DroneObs struct {
	ID    int    `json:"id"`
	Cell  [2]int `json:"cell"`
	State string `json:"state"`
}

type Event map[string]interface{}
