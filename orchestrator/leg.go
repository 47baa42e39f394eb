package orchestrator

import (
	"github.com/anyswap/CrossChain-HTLC/types"
)

// LegStatus resolver side progress of one escrow leg
type LegStatus string

// leg statuses
const (
	LegIdle        LegStatus = "idle"      // nothing submitted
	LegDeploying   LegStatus = "deploying" // deploy submitted, escrow not observed yet
	LegDeployed    LegStatus = "deployed"
	LegWithdrawing LegStatus = "withdrawing"
	LegRefunding   LegStatus = "refunding"
	LegWithdrawn   LegStatus = "withdrawn"
	LegRefunded    LegStatus = "refunded"
	LegSkipped     LegStatus = "skipped" // no escrow was ever deployed, nothing to refund
)

// IsTerminal is leg finished
func (s LegStatus) IsTerminal() bool {
	switch s {
	case LegWithdrawn, LegRefunded, LegSkipped:
		return true
	default:
		return false
	}
}

// LegState one chain of a swap
type LegState struct {
	Leg    types.SwapLeg `json:"leg"`
	Chain  string        `json:"chain"`
	Escrow string        `json:"escrow,omitempty"`
	Status LegStatus     `json:"status"`
	TxHash string        `json:"txHash,omitempty"`
}

// Plan resolver side execution of one swap
type Plan struct {
	OrderID string    `json:"orderId"`
	Src     *LegState `json:"src"`
	Dst     *LegState `json:"dst"`
	Ready   bool      `json:"ready"` // resolver readiness signalled
	Secret  string    `json:"-"`
}

func newPlan(rec *types.SwapRecord) *Plan {
	return &Plan{
		OrderID: rec.OrderID,
		Src:     &LegState{Leg: types.LegSource, Chain: rec.SrcChain, Status: LegIdle},
		Dst:     &LegState{Leg: types.LegDestination, Chain: rec.DstChain, Status: LegIdle},
	}
}

// Legs source and destination legs
func (p *Plan) Legs() []*LegState {
	return []*LegState{p.Src, p.Dst}
}

// IsResolved both legs reached a terminal status
func (p *Plan) IsResolved() bool {
	return p.Src.Status.IsTerminal() && p.Dst.Status.IsTerminal()
}

// Clone copy of plan
func (p *Plan) Clone() *Plan {
	src, dst := *p.Src, *p.Dst
	cpy := *p
	cpy.Src, cpy.Dst = &src, &dst
	return &cpy
}
