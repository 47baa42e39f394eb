package types

import "fmt"

// -----------------------------------------------
// swap status change graph
//
// pending -> |- awaiting_secret -> |- secret_shared -> |- completed
//            |                     |                   |- expired
//            |                     |                   |- cancelled
//            |                     |- completed (held secret force revealed, or revealed on chain)
//            |                     |- expired / cancelled
//            |- completed (withdrawal observed on chain)
//            |- expired / cancelled
//
// completed, expired and cancelled are terminal.
// -----------------------------------------------

// SwapStatus swap status
type SwapStatus string

// swap status values
const (
	StatusPending        SwapStatus = "pending"
	StatusAwaitingSecret SwapStatus = "awaiting_secret"
	StatusSecretShared   SwapStatus = "secret_shared"
	StatusCompleted      SwapStatus = "completed"
	StatusExpired        SwapStatus = "expired"
	StatusCancelled      SwapStatus = "cancelled"
)

// ActiveStatuses non terminal statuses
var ActiveStatuses = []SwapStatus{
	StatusPending,
	StatusAwaitingSecret,
	StatusSecretShared,
}

var statusEdges = map[SwapStatus][]SwapStatus{
	StatusPending:        {StatusAwaitingSecret, StatusCompleted, StatusExpired, StatusCancelled},
	StatusAwaitingSecret: {StatusSecretShared, StatusCompleted, StatusExpired, StatusCancelled},
	StatusSecretShared:   {StatusCompleted, StatusExpired, StatusCancelled},
}

// IsValid is known status
func (s SwapStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAwaitingSecret, StatusSecretShared,
		StatusCompleted, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal is terminal status
func (s SwapStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitTo status only moves forward along the defined edges
func (s SwapStatus) CanTransitTo(next SwapStatus) bool {
	for _, to := range statusEdges[s] {
		if to == next {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrWrongStatus wrapped with details if from -> to is not an edge
func CheckTransition(from, to SwapStatus) error {
	if from.CanTransitTo(to) {
		return nil
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: %v -> %v", ErrSwapTerminal, from, to)
	}
	return fmt.Errorf("%w: %v -> %v", ErrWrongStatus, from, to)
}

func (s SwapStatus) String() string {
	return string(s)
}

// Resolution how a swap reached its terminal status
type Resolution string

// resolution values
const (
	ResolutionNone               Resolution = ""
	ResolutionResolverWithdrawal Resolution = "resolver_withdrawal"
	ResolutionPublicDisclosure   Resolution = "public_disclosure"
	ResolutionPublicCancel       Resolution = "public_cancel"
	ResolutionExpiredUnfunded    Resolution = "expired_unfunded"
	ResolutionOnChainCancel      Resolution = "onchain_cancel"
)

// RewardPolicyFirstPublicActor the public-withdraw / public-cancel safety deposit
// is claimed by whoever submits the public action first; the relayer never claims it.
const RewardPolicyFirstPublicActor = "first_public_actor"
