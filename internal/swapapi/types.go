package swapapi

import (
	"github.com/anyswap/CrossChain-HTLC/orchestrator"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/types"
	"github.com/anyswap/CrossChain-HTLC/validator"
	"github.com/anyswap/CrossChain-HTLC/worker"
)

// SwapRecord type alias
type SwapRecord = types.SwapRecord

// TimeoutAlert type alias
type TimeoutAlert = types.TimeoutAlert

// CreateResult result of swap creation
type CreateResult struct {
	ID      string           `json:"id"`
	OrderID string           `json:"orderId"`
	Status  types.SwapStatus `json:"status"`
}

// ResolverReadyResult result of resolver readiness. Secret is empty when
// the maker has not provided it yet.
type ResolverReadyResult struct {
	OrderID string           `json:"orderId"`
	Status  types.SwapStatus `json:"status"`
	Secret  string           `json:"secret,omitempty"`
}

// SwapSummary short view of a swap
type SwapSummary struct {
	OrderID      string           `json:"orderId"`
	SrcChain     string           `json:"srcChain"`
	DstChain     string           `json:"dstChain"`
	Status       types.SwapStatus `json:"status"`
	UserDeadline int64            `json:"userDeadline"`
	CancelAfter  int64            `json:"cancelAfter"`
	Resolver     string           `json:"resolver,omitempty"`
	UpdatedAt    int64            `json:"updatedAt"`
}

// ChainStatus chain monitor progress
type ChainStatus struct {
	Chain         string `json:"chain"`
	Family        string `json:"family"`
	CursorHeight  uint64 `json:"cursorHeight"`
	CursorUpdated int64  `json:"cursorUpdated"`
	Confirmations uint64 `json:"confirmations"`
}

// StatusInfo aggregate health of the relayer
type StatusInfo struct {
	Identifier        string               `json:"identifier"`
	Version           string               `json:"version"`
	Timestamp         int64                `json:"timestamp"`
	Chains            []*ChainStatus       `json:"chains"`
	ActiveSwaps       int                  `json:"activeSwaps"`
	UpcomingDeadlines int                  `json:"upcomingDeadlines"`
	HeldSecrets       int                  `json:"heldSecrets"`
	Config            *params.SwapConfig   `json:"config"`
	Jobs              []worker.JobStats    `json:"jobs,omitempty"`
	ResolverPlans     []*orchestrator.Plan `json:"resolverPlans,omitempty"`
}

// ValidationError swap params failed validation
type ValidationError struct {
	Errors []validator.FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	res := &validator.Result{Errors: e.Errors}
	return res.Error()
}

func toSummary(rec *types.SwapRecord) *SwapSummary {
	return &SwapSummary{
		OrderID:      rec.OrderID,
		SrcChain:     rec.SrcChain,
		DstChain:     rec.DstChain,
		Status:       rec.Status,
		UserDeadline: rec.UserDeadline,
		CancelAfter:  rec.CancelAfter,
		Resolver:     rec.Resolver,
		UpdatedAt:    rec.UpdatedAt,
	}
}
