package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrRateLimit       = "E_RATE_LIMIT"

	// Placement refusals.
	ErrOccupied     = "E_OCCUPIED"
	ErrTooFar       = "E_TOO_FAR"
	ErrNoFunds      = "E_NO_FUNDS"
	ErrModuleLimit  = "E_MODULE_LIMIT"
	ErrAntennaLimit = "E_ANTENNA_LIMIT"
	ErrLocked       = "E_LOCKED"

	// Rule/command layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrNoResource    = "E_NO_RESOURCE"
	ErrBadPhase      = "E_BAD_PHASE"
	ErrStale         = "E_STALE"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrRateLimit:       {},
	ErrOccupied:        {},
	ErrTooFar:          {},
	ErrNoFunds:         {},
	ErrModuleLimit:     {},
	ErrAntennaLimit:    {},
	ErrLocked:          {},
	ErrBadRequest:      {},
	ErrInvalidTarget:   {},
	ErrNoResource:      {},
	ErrBadPhase:        {},
	ErrStale:           {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
