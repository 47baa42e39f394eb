// Package registry defines the durable store of swap records.
//
// The registry does not enforce the swap state machine. Callers validate a
// transition with types.CheckTransition and then apply it with UpdateSwap,
// which only takes effect if the stored status still equals the expected
// pre-state.
package registry

import (
	"errors"

	"github.com/anyswap/CrossChain-HTLC/types"
)

// registry errors
var (
	ErrSwapNotFound   = errors.New("swap is not found")
	ErrItemIsDup      = errors.New("item is duplicate")
	ErrStatusMismatch = errors.New("swap status mismatch")
)

// Registry swap record store
type Registry interface {
	CreateSwap(rec *types.SwapRecord) error
	GetSwap(orderID string) (*types.SwapRecord, error)

	// UpdateSwap applies update if the current status equals from,
	// otherwise returns ErrStatusMismatch and leaves the record untouched.
	UpdateSwap(orderID string, from types.SwapStatus, update *SwapUpdate) error
	SetEscrow(orderID string, leg types.SwapLeg, escrow string, timestamp int64) error

	FindSwapsByStatus(status types.SwapStatus) ([]*types.SwapRecord, error)
	FindActiveSwaps() ([]*types.SwapRecord, error)
	// range queries over active swaps, bounds are [from, to)
	FindByUserDeadline(from, to int64) ([]*types.SwapRecord, error)
	FindByCancelAfter(from, to int64) ([]*types.SwapRecord, error)
	FindBySecretSharedAt(from, to int64) ([]*types.SwapRecord, error)

	GetCursor(chain string) (*types.ChainCursor, error)
	SetCursor(cursor *types.ChainCursor) error

	Close() error
}

// SwapUpdate fields written by UpdateSwap, zero values are left unchanged
type SwapUpdate struct {
	Status         types.SwapStatus
	Secret         string
	SecretSharedAt int64
	Resolver       string
	Resolution     types.Resolution
	DisclosureRef  string
	DisclosedAt    int64
	Memo           string
	Timestamp      int64
}

// Apply write update into rec
func (u *SwapUpdate) Apply(rec *types.SwapRecord) {
	if u.Status != "" {
		rec.Status = u.Status
	}
	if u.Secret != "" {
		rec.Secret = u.Secret
	}
	if u.SecretSharedAt != 0 {
		rec.SecretSharedAt = u.SecretSharedAt
	}
	if u.Resolver != "" {
		rec.Resolver = u.Resolver
	}
	if u.Resolution != "" {
		rec.Resolution = u.Resolution
	}
	if u.DisclosureRef != "" {
		rec.DisclosureRef = u.DisclosureRef
	}
	if u.DisclosedAt != 0 {
		rec.DisclosedAt = u.DisclosedAt
	}
	if u.Memo != "" {
		rec.Memo = u.Memo
	}
	rec.UpdatedAt = u.Timestamp
}

// UpdateStatus transit status from -> to
func UpdateStatus(r Registry, orderID string, from, to types.SwapStatus, resolution types.Resolution, now int64) error {
	return r.UpdateSwap(orderID, from, &SwapUpdate{
		Status:     to,
		Resolution: resolution,
		Timestamp:  now,
	})
}

// SetSecret persist the secret handed to resolver and move to secret_shared
func SetSecret(r Registry, orderID, secret, resolver string, now int64) error {
	return r.UpdateSwap(orderID, types.StatusAwaitingSecret, &SwapUpdate{
		Status:         types.StatusSecretShared,
		Secret:         secret,
		SecretSharedAt: now,
		Resolver:       resolver,
		Timestamp:      now,
	})
}

// FindAwaitingSecret swaps waiting for the maker's secret
func FindAwaitingSecret(r Registry) ([]*types.SwapRecord, error) {
	return r.FindSwapsByStatus(types.StatusAwaitingSecret)
}

// FindGraceExpired shared swaps whose grace period of holdTime seconds has lapsed at now
func FindGraceExpired(r Registry, now, holdTime int64) ([]*types.SwapRecord, error) {
	return r.FindBySecretSharedAt(0, now-holdTime+1)
}

// FindPastUserDeadline active swaps with userDeadline <= now
func FindPastUserDeadline(r Registry, now int64) ([]*types.SwapRecord, error) {
	return r.FindByUserDeadline(0, now+1)
}

// FindPastCancelDeadline active swaps with cancelAfter <= now
func FindPastCancelDeadline(r Registry, now int64) ([]*types.SwapRecord, error) {
	return r.FindByCancelAfter(0, now+1)
}

// IsNotFound is err ErrSwapNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSwapNotFound)
}

// IsStatusMismatch is err ErrStatusMismatch
func IsStatusMismatch(err error) bool {
	return errors.Is(err, ErrStatusMismatch)
}
