// Package orchestrator drives the resolver side of a swap: deploy both
// escrows, withdraw once the secret is known and refund only the legs whose
// escrow was actually deployed when the swap fails.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set"
	"github.com/shopspring/decimal"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/types"
	"github.com/anyswap/CrossChain-HTLC/validator"
)

var bpsBase = decimal.NewFromInt(10000)

// orchestrator errors
var (
	ErrNoQuote        = errors.New("no quote rate for chain pair")
	ErrNotProfitable  = errors.New("swap is not profitable")
	ErrAlreadyPlanned = errors.New("swap is already planned")
)

// ReadyNotifier signals resolver readiness to the secret mediator
type ReadyNotifier interface {
	HandleResolverReady(orderID, resolver string) (string, error)
}

// Orchestrator resolver side swap driver
type Orchestrator struct {
	reg      registry.Registry
	adapters *tokens.Adapters
	builder  tokens.TxBuilder
	notifier ReadyNotifier

	resolver     string
	minProfitBps decimal.Decimal
	quoteRates   map[string]string
	now          func() int64

	mu       sync.Mutex
	plans    map[string]*Plan
	rejected mapset.Set
}

// New new orchestrator
func New(reg registry.Registry, adapters *tokens.Adapters, builder tokens.TxBuilder, notifier ReadyNotifier, config *params.ResolverConfig) *Orchestrator {
	return &Orchestrator{
		reg:          reg,
		adapters:     adapters,
		builder:      builder,
		notifier:     notifier,
		resolver:     config.Address,
		minProfitBps: decimal.NewFromInt(config.MinProfitBps),
		quoteRates:   config.QuoteRates,
		now:          common.Now,
		plans:        make(map[string]*Plan),
		rejected:     mapset.NewSet(),
	}
}

// SetClock replace the clock (unix seconds)
func (o *Orchestrator) SetClock(now func() int64) {
	o.now = now
}

// ProfitBps resolver profit in basis points of dstAmount when srcAmount is worth
// quoteRate destination units each
func ProfitBps(srcAmount, dstAmount, quoteRate string) (decimal.Decimal, error) {
	src, err := validator.ParseDecimal(srcAmount)
	if err != nil {
		return decimal.Zero, err
	}
	dst, err := validator.ParseDecimal(dstAmount)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := validator.ParseDecimal(quoteRate)
	if err != nil {
		return decimal.Zero, err
	}
	if !dst.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: dst amount must be positive", types.ErrInvalidArgument)
	}
	return src.Mul(rate).Sub(dst).Div(dst).Mul(bpsBase), nil
}

// CheckProfitable profit check against the configured quote
func (o *Orchestrator) CheckProfitable(rec *types.SwapRecord) (decimal.Decimal, error) {
	rate, exist := o.quoteRates[rec.SrcChain+"/"+rec.DstChain]
	if !exist {
		return decimal.Zero, fmt.Errorf("%w: %v/%v", ErrNoQuote, rec.SrcChain, rec.DstChain)
	}
	bps, err := ProfitBps(rec.SrcAmount, rec.DstAmount, rate)
	if err != nil {
		return decimal.Zero, err
	}
	if bps.LessThan(o.minProfitBps) {
		return bps, fmt.Errorf("%w: %v bps < %v bps", ErrNotProfitable, bps.StringFixed(2), o.minProfitBps)
	}
	return bps, nil
}

// Accept plan a profitable swap
func (o *Orchestrator) Accept(rec *types.SwapRecord) (*Plan, error) {
	o.mu.Lock()
	_, exist := o.plans[rec.OrderID]
	o.mu.Unlock()
	if exist {
		return nil, fmt.Errorf("%w: %v", ErrAlreadyPlanned, rec.OrderID)
	}
	bps, err := o.CheckProfitable(rec)
	if err != nil {
		return nil, err
	}
	plan := newPlan(rec)
	o.mu.Lock()
	o.plans[rec.OrderID] = plan
	o.mu.Unlock()
	log.Info("[orchestrator] accept swap", "orderID", rec.OrderID, "profitBps", bps.StringFixed(2))
	return plan.Clone(), nil
}

// GetPlan copy of plan of order
func (o *Orchestrator) GetPlan(orderID string) (*Plan, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	plan, exist := o.plans[orderID]
	if !exist {
		return nil, false
	}
	return plan.Clone(), true
}

// Plans copies of all unresolved plans
func (o *Orchestrator) Plans() []*Plan {
	o.mu.Lock()
	defer o.mu.Unlock()
	plans := make([]*Plan, 0, len(o.plans))
	for _, plan := range o.plans {
		plans = append(plans, plan.Clone())
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].OrderID < plans[j].OrderID })
	return plans
}

// Job scheduler entry
func (o *Orchestrator) Job(ctx context.Context) error {
	return o.Step(ctx)
}

// Step pick up new swaps and advance every plan once
func (o *Orchestrator) Step(ctx context.Context) error {
	var errs []error
	if err := o.discover(); err != nil {
		errs = append(errs, err)
	}

	o.mu.Lock()
	orderIDs := make([]string, 0, len(o.plans))
	for orderID := range o.plans {
		orderIDs = append(orderIDs, orderID)
	}
	o.mu.Unlock()
	sort.Strings(orderIDs)

	for _, orderID := range orderIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.advance(ctx, orderID); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", orderID, err))
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) isOurs(address string) bool {
	return strings.EqualFold(address, o.resolver)
}

func (o *Orchestrator) discover() error {
	awaiting, err := registry.FindAwaitingSecret(o.reg)
	if err != nil {
		return err
	}
	for _, rec := range awaiting {
		if _, planned := o.GetPlan(rec.OrderID); planned || o.rejected.Contains(rec.OrderID) {
			continue
		}
		if rec.Taker != "" && !o.isOurs(rec.Taker) {
			continue
		}
		if o.now() >= rec.UserDeadline {
			continue
		}
		if _, err = o.Accept(rec); err != nil {
			o.rejected.Add(rec.OrderID)
			log.Info("[orchestrator] skip swap", "orderID", rec.OrderID, "err", err)
		}
	}

	// swaps shared with us before a restart
	shared, err := o.reg.FindSwapsByStatus(types.StatusSecretShared)
	if err != nil {
		return err
	}
	for _, rec := range shared {
		if !o.isOurs(rec.Resolver) {
			continue
		}
		o.mu.Lock()
		if _, exist := o.plans[rec.OrderID]; !exist {
			plan := newPlan(rec)
			plan.Ready = true
			plan.Secret = rec.Secret
			o.plans[rec.OrderID] = plan
			log.Info("[orchestrator] recover shared swap", "orderID", rec.OrderID)
		}
		o.mu.Unlock()
	}
	return nil
}

func (o *Orchestrator) advance(ctx context.Context, orderID string) error {
	o.mu.Lock()
	current, exist := o.plans[orderID]
	o.mu.Unlock()
	if !exist {
		return nil
	}
	// work on a copy so readers of the plan table never see a half applied step
	plan := current.Clone()
	defer o.store(plan)

	rec, err := o.reg.GetSwap(orderID)
	if err != nil {
		return err
	}
	if plan.Secret == "" && rec.Secret != "" {
		plan.Secret = rec.Secret
	}

	var errs []error
	for _, leg := range plan.Legs() {
		if err = o.syncLeg(ctx, rec, leg); err != nil {
			errs = append(errs, err)
		}
	}

	now := o.now()
	refunding := rec.Status == types.StatusExpired || rec.Status == types.StatusCancelled ||
		(plan.Secret == "" && now >= rec.CancelAfter)
	finished := rec.Status.IsTerminal() || now >= rec.UserDeadline

	for _, leg := range plan.Legs() {
		if leg.Status.IsTerminal() {
			continue
		}
		switch {
		case leg.Status == LegWithdrawing || leg.Status == LegRefunding:
			// wait for the escrow state to settle
		case refunding:
			if leg.Escrow == "" {
				skipIdleLeg(orderID, leg)
				continue
			}
			err = o.submit(ctx, rec, plan, leg, tokens.ActionCancel, LegRefunding)
		case plan.Secret != "":
			if leg.Escrow == "" {
				if finished {
					skipIdleLeg(orderID, leg)
				}
				continue
			}
			err = o.submit(ctx, rec, plan, leg, tokens.ActionWithdraw, LegWithdrawing)
		case finished:
			if leg.Escrow == "" && rec.Status.IsTerminal() {
				skipIdleLeg(orderID, leg)
			}
		case leg.Status == LegIdle:
			if leg.Leg == types.LegDestination && plan.Src.Status != LegDeployed {
				continue
			}
			err = o.submit(ctx, rec, plan, leg, tokens.ActionDeploy, LegDeploying)
		}
		if err != nil {
			errs = append(errs, err)
			err = nil
		}
	}

	if !plan.Ready && plan.Src.Status == LegDeployed && plan.Dst.Status == LegDeployed && !rec.Status.IsTerminal() {
		secret, err := o.notifier.HandleResolverReady(orderID, o.resolver)
		if err != nil {
			errs = append(errs, fmt.Errorf("signal ready: %w", err))
		} else {
			plan.Ready = true
			if secret != "" {
				plan.Secret = secret
			}
			log.Info("[orchestrator] resolver ready", "orderID", orderID, "gotSecret", secret != "")
		}
	}

	if plan.IsResolved() {
		log.Info("[orchestrator] swap fully resolved", "orderID", orderID,
			"src", plan.Src.Status, "dst", plan.Dst.Status, "status", rec.Status)
	}
	return errors.Join(errs...)
}

// skipIdleLeg resolve a leg that never submitted a deploy.
// A deploying leg stays open until its escrow is observed and can be refunded.
func skipIdleLeg(orderID string, leg *LegState) {
	if leg.Status != LegIdle {
		log.Debug("[orchestrator] wait for deploy to be observed", "orderID", orderID, "chain", leg.Chain, "txHash", leg.TxHash)
		return
	}
	leg.Status = LegSkipped
	log.Info("[orchestrator] no escrow on leg, nothing to do", "orderID", orderID, "chain", leg.Chain)
}

func (o *Orchestrator) store(plan *Plan) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if plan.IsResolved() {
		delete(o.plans, plan.OrderID)
		return
	}
	o.plans[plan.OrderID] = plan
}

// syncLeg pick up the observed escrow and its on-chain settlement
func (o *Orchestrator) syncLeg(ctx context.Context, rec *types.SwapRecord, leg *LegState) error {
	if leg.Status.IsTerminal() {
		return nil
	}
	if escrow := rec.EscrowOf(leg.Leg); escrow != "" && leg.Escrow == "" {
		leg.Escrow = escrow
		if leg.Status == LegIdle || leg.Status == LegDeploying {
			leg.Status = LegDeployed
		}
	}
	if leg.Escrow == "" {
		return nil
	}
	adapter, err := o.adapters.Get(leg.Chain)
	if err != nil {
		return err
	}
	state, err := adapter.QueryEscrow(ctx, leg.Escrow)
	if err != nil {
		return fmt.Errorf("query escrow %v on %v: %w", leg.Escrow, leg.Chain, err)
	}
	switch {
	case state.Withdrawn:
		leg.Status = LegWithdrawn
	case state.Cancelled:
		leg.Status = LegRefunded
	}
	return nil
}

func (o *Orchestrator) submit(ctx context.Context, rec *types.SwapRecord, plan *Plan, leg *LegState, action tokens.EscrowAction, next LegStatus) error {
	adapter, err := o.adapters.Get(leg.Chain)
	if err != nil {
		return err
	}
	swap := rec.Clone()
	if action == tokens.ActionWithdraw {
		swap.Secret = plan.Secret
	}
	tx, err := o.builder.BuildEscrowTx(leg.Chain, action, swap)
	if err != nil {
		return fmt.Errorf("build %v tx on %v: %w", action, leg.Chain, err)
	}
	txHash, err := adapter.Submit(ctx, tx)
	if err != nil {
		return fmt.Errorf("submit %v tx on %v: %w", action, leg.Chain, err)
	}
	leg.Status = next
	leg.TxHash = txHash
	log.Info("[orchestrator] escrow tx submitted", "orderID", rec.OrderID, "chain", leg.Chain, "action", action, "txHash", txHash)
	return nil
}
