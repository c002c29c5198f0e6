package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrRateLimit       = "E_RATE_LIMIT"
	ErrBadRequest      = "E_BAD_REQUEST"
	ErrInvalidTarget   = "E_INVALID_TARGET"
	ErrWorldBusy       = "E_WORLD_BUSY"
	ErrInternal        = "E_INTERNAL"

	// Craft attempt outcomes.
	ErrStructureInvalid = "E_STRUCTURE_INVALID"
	ErrNoResource       = "E_NO_RESOURCE"
	ErrNoRecipe         = "E_NO_RECIPE"
	ErrNoSpace          = "E_NO_SPACE"
	ErrDepositFailed    = "E_DEPOSIT_FAILED"
	ErrRemovalShortfall = "E_REMOVAL_SHORTFALL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrRateLimit:        {},
	ErrBadRequest:       {},
	ErrInvalidTarget:    {},
	ErrWorldBusy:        {},
	ErrInternal:         {},
	ErrStructureInvalid: {},
	ErrNoResource:       {},
	ErrNoRecipe:         {},
	ErrNoSpace:          {},
	ErrDepositFailed:    {},
	ErrRemovalShortfall: {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
