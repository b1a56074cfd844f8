package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session setup.
	ErrNotFound = "E_NOT_FOUND"
	ErrBusy     = "E_BUSY"

	// Action layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownAction = "E_UNKNOWN_ACTION"
	ErrInvalidAction = "E_INVALID_ACTION"
	ErrNoResource    = "E_NO_RESOURCE"
	ErrStale         = "E_STALE"
	ErrTerminal      = "E_TERMINAL"
	ErrStepLimit     = "E_STEP_LIMIT"
	ErrRateLimit     = "E_RATE_LIMIT"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrNotFound:        {},
	ErrBusy:            {},
	ErrBadRequest:      {},
	ErrUnknownAction:   {},
	ErrInvalidAction:   {},
	ErrNoResource:      {},
	ErrStale:           {},
	ErrTerminal:        {},
	ErrStepLimit:       {},
	ErrRateLimit:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
