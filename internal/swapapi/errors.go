package swapapi

import (
	"errors"

	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
)

var rejectedErrors = []error{
	ErrOrderExists,
	ErrWrongParams,
	ErrUnknownStatus,
	registry.ErrStatusMismatch,
	types.ErrWrongStatus,
	types.ErrSwapTerminal,
	types.ErrSecretMismatch,
	types.ErrNoSecretHeld,
	types.ErrDuplicateTimer,
	types.ErrUnknownChain,
	types.ErrInvalidArgument,
}

// IsValidationError is err a swap params validation failure
func IsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// IsRejected is err caused by the request itself (bad input, wrong status,
// secret mismatch) rather than by the infrastructure
func IsRejected(err error) bool {
	if _, ok := IsValidationError(err); ok {
		return true
	}
	for _, target := range rejectedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound is err an unknown order
func IsNotFound(err error) bool {
	return registry.IsNotFound(err)
}
