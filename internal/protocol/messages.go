package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	// Observer sessions receive HUD frames but may not send ACT.
	Observer bool `json:"observer,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	RunID           string         `json:"run_id"`
	Params          StationParams  `json:"params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type StationParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	Seed       int64 `json:"seed"`
	// StaleTicks is how far behind the current tick an ACT may be.
	StaleTicks int `json:"stale_ticks"`
}

type CatalogDigests struct {
	Modules string `json:"modules"`
	Boons   string `json:"boons"`
	Goals   string `json:"goals"`
	Trades  string `json:"trades"`
	Gifts   string `json:"gifts"`
	Tuning  string `json:"tuning,omitempty"`
}

// CATALOG (server -> client): a catalog sent as a single part.
type CatalogMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Name            string      `json:"name"`   // e.g. "modules"
	Digest          string      `json:"digest"` // sha256 hex
	Part            int         `json:"part"`
	TotalParts      int         `json:"total_parts"`
	Data            interface{} `json:"data"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}
