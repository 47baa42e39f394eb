// Package tokens defines the chain adapter used to observe escrows and submit
// escrow actions on a ledger.
package tokens

import (
	"context"

	"github.com/anyswap/CrossChain-HTLC/types"
)

// EscrowAction escrow action kind
type EscrowAction string

// escrow actions
const (
	ActionDeploy   EscrowAction = "deploy"
	ActionWithdraw EscrowAction = "withdraw"
	ActionCancel   EscrowAction = "cancel"
)

// EscrowTx a signed escrow transaction built by the wallet
type EscrowTx struct {
	Action  EscrowAction
	OrderID string
	Raw     []byte
}

// EscrowState observed escrow state
type EscrowState struct {
	Address   string
	Deployed  bool
	Withdrawn bool
	Cancelled bool
	Balance   string
}

// IsSettled is escrow withdrawn or cancelled
func (s *EscrowState) IsSettled() bool {
	return s.Withdrawn || s.Cancelled
}

// ChainAdapter per chain client
type ChainAdapter interface {
	ChainName() string
	Family() types.ChainFamily
	GetCurrentHeight(ctx context.Context) (uint64, error)
	// GetEventsInRange escrow events in blocks [from, to]
	GetEventsInRange(ctx context.Context, from, to uint64) ([]*types.EscrowEvent, error)
	Submit(ctx context.Context, tx *EscrowTx) (txHash string, err error)
	QueryEscrow(ctx context.Context, address string) (*EscrowState, error)
}

// TxBuilder builds and signs escrow transactions, implemented by the wallet
type TxBuilder interface {
	BuildEscrowTx(chain string, action EscrowAction, swap *types.SwapRecord) (*EscrowTx, error)
}
