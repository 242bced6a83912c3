package protocol

// ACT (client -> server)
type ActMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ID              string       `json:"id,omitempty"`
	Tick            uint64       `json:"tick"`
	Commands        []CommandReq `json:"commands"`
}

// Command types.
const (
	CmdStartRun      = "START_RUN"
	CmdPlace         = "PLACE"
	CmdHold          = "HOLD"
	CmdHover         = "HOVER"
	CmdRelease       = "RELEASE"
	CmdSelectBoon    = "SELECT_BOON"
	CmdAnswerSignal  = "ANSWER_SIGNAL"
	CmdTrade         = "TRADE"
	CmdCloseMerchant = "CLOSE_MERCHANT"
	CmdChooseGift    = "CHOOSE_GIFT"
	CmdJump          = "JUMP"
	CmdPause         = "PAUSE"
	CmdResume        = "RESUME"
)

type CommandReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Kind   string  `json:"kind,omitempty"`
	Cell   *[2]int `json:"cell,omitempty"`
	Choice string  `json:"choice,omitempty"`
	Accept bool    `json:"accept,omitempty"`
	Mode   string  `json:"mode,omitempty"`
}
