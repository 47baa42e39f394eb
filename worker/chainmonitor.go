package worker

import (
	"context"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/types"
	"github.com/anyswap/CrossChain-HTLC/validator"
)

const (
	chainMonitorJob = "chainmonitor"
	maxSeenEvents   = 100000
)

// SecretReceiver mediator view used by the chain monitor
type SecretReceiver interface {
	RequestSecret(orderID string) error
	ProvideSecret(orderID, secret string) error
	Forget(orderID string)
}

// ScanOptions per chain scan options
type ScanOptions struct {
	Confirmations uint64
	MaxScanRange  uint64
	StartHeight   uint64
}

type chainScanner struct {
	adapter tokens.ChainAdapter
	opts    ScanOptions
	seen    mapset.Set
	mu      sync.Mutex // one scan at a time per chain
}

// ChainMonitor turns finalized escrow events into registry and mediator updates
type ChainMonitor struct {
	reg      registry.Registry
	bus      *events.Bus
	receiver SecretReceiver
	hashAlgo string
	now      func() int64

	chains map[string]*chainScanner
}

// NewChainMonitor new chain monitor
func NewChainMonitor(reg registry.Registry, bus *events.Bus, receiver SecretReceiver, hashAlgo string) *ChainMonitor {
	return &ChainMonitor{
		reg:      reg,
		bus:      bus,
		receiver: receiver,
		hashAlgo: hashAlgo,
		now:      common.Now,
		chains:   make(map[string]*chainScanner),
	}
}

// SetClock replace the clock (unix seconds)
func (m *ChainMonitor) SetClock(now func() int64) {
	m.now = now
}

// AddChain watch chain of adapter
func (m *ChainMonitor) AddChain(adapter tokens.ChainAdapter, opts ScanOptions) {
	if opts.MaxScanRange == 0 {
		opts.MaxScanRange = 1000
	}
	m.chains[adapter.ChainName()] = &chainScanner{
		adapter: adapter,
		opts:    opts,
		seen:    mapset.NewSet(),
	}
}

// Chains watched chain names
func (m *ChainMonitor) Chains() []string {
	names := make([]string, 0, len(m.chains))
	for name := range m.chains {
		names = append(names, name)
	}
	return names
}

// Job scheduler entry of one chain
func (m *ChainMonitor) Job(chain string) JobFunc {
	return func(ctx context.Context) error {
		return m.ScanChain(ctx, chain)
	}
}

// ScanChain scan finalized blocks after the chain cursor. The cursor only
// advances past blocks whose events were all handled.
func (m *ChainMonitor) ScanChain(ctx context.Context, chain string) error {
	scanner, exist := m.chains[chain]
	if !exist {
		return fmt.Errorf("%w: %v", types.ErrUnknownChain, chain)
	}
	scanner.mu.Lock()
	defer scanner.mu.Unlock()

	job := chainMonitorJob + "/" + chain
	latest, err := scanner.adapter.GetCurrentHeight(ctx)
	if err != nil {
		return fmt.Errorf("get current height of %v: %w", chain, err)
	}
	if latest < scanner.opts.Confirmations {
		return nil
	}
	stable := latest - scanner.opts.Confirmations

	cursor, err := m.reg.GetCursor(chain)
	if err != nil {
		return err
	}
	if cursor == nil {
		start := stable
		if scanner.opts.StartHeight > 0 {
			start = scanner.opts.StartHeight - 1
		}
		cursor = &types.ChainCursor{Chain: chain, Height: start}
		if err = m.saveCursor(cursor); err != nil {
			return err
		}
		logWorker(job, "init chain cursor", "height", start)
	}

	for from := cursor.Height + 1; from <= stable; from = cursor.Height + 1 {
		if err = ctx.Err(); err != nil {
			return err
		}
		to := from + scanner.opts.MaxScanRange - 1
		if to > stable {
			to = stable
		}
		evs, err := scanner.adapter.GetEventsInRange(ctx, from, to)
		if err != nil {
			return fmt.Errorf("get events of %v in [%v, %v]: %w", chain, from, to, err)
		}
		for _, ev := range evs {
			if err = m.handleEvent(scanner, ev); err != nil {
				// resume from the block of the failed event next time
				if ev.Height > cursor.Height+1 {
					cursor.Height = ev.Height - 1
					if serr := m.saveCursor(cursor); serr != nil {
						logWorkerWarn(job, "save cursor failed, will rescan", "chain", chain, "height", cursor.Height, "err", serr)
					}
				}
				return fmt.Errorf("handle %v event of %v: %w", ev.Kind, ev.OrderID, err)
			}
		}
		cursor.Height = to
		if err = m.saveCursor(cursor); err != nil {
			return err
		}
		logWorkerTrace(job, "scanned range", "from", from, "to", to, "events", len(evs))
	}
	return nil
}

func (m *ChainMonitor) saveCursor(cursor *types.ChainCursor) error {
	cursor.Timestamp = m.now()
	return m.reg.SetCursor(cursor)
}

func (m *ChainMonitor) handleEvent(scanner *chainScanner, ev *types.EscrowEvent) error {
	key := ev.Key()
	if scanner.seen.Contains(key) {
		return nil
	}
	err := m.HandleEvent(ev)
	if err != nil {
		return err
	}
	if scanner.seen.Cardinality() >= maxSeenEvents {
		scanner.seen.Clear()
	}
	scanner.seen.Add(key)
	m.bus.PublishEscrowObserved(ev)
	return nil
}

// HandleEvent apply one escrow event. Events of unknown or settled swaps are ignored.
func (m *ChainMonitor) HandleEvent(ev *types.EscrowEvent) error {
	job := chainMonitorJob + "/" + ev.Chain
	rec, err := m.reg.GetSwap(ev.OrderID)
	if err != nil {
		if registry.IsNotFound(err) {
			logWorkerTrace(job, "ignore event of unknown swap", "orderID", ev.OrderID, "kind", ev.Kind)
			return nil
		}
		return err
	}
	leg := rec.LegOfChain(ev.Chain)
	if leg == "" {
		logWorkerWarn(job, "ignore event from chain not in swap", "orderID", ev.OrderID, "kind", ev.Kind)
		return nil
	}

	switch ev.Kind {
	case types.EscrowCreated:
		if ev.Escrow == "" || rec.EscrowOf(leg) == ev.Escrow {
			return nil
		}
		logWorker(job, "escrow deployed", "orderID", ev.OrderID, "leg", leg, "escrow", ev.Escrow, "txHash", ev.TxHash)
		return m.reg.SetEscrow(ev.OrderID, leg, ev.Escrow, m.now())
	case types.EscrowSecretRevealed:
		return m.onSecretRevealed(job, rec, ev)
	case types.EscrowWithdrawn:
		return m.settle(job, rec, ev, types.ResolutionResolverWithdrawal)
	case types.EscrowCancelled:
		return m.settle(job, rec, ev, types.ResolutionOnChainCancel)
	default:
		logWorkerWarn(job, "ignore unknown event kind", "orderID", ev.OrderID, "kind", ev.Kind)
		return nil
	}
}

// onSecretRevealed an on-chain secret is handled like one provided by the maker
func (m *ChainMonitor) onSecretRevealed(job string, rec *types.SwapRecord, ev *types.EscrowEvent) error {
	if rec.Status.IsTerminal() || rec.Status == types.StatusSecretShared {
		return nil
	}
	if !validator.ValidateSecret(ev.Secret, rec.Hashlock, m.hashAlgo) {
		logWorkerWarn(job, "on-chain secret does not match hashlock", "orderID", rec.OrderID, "txHash", ev.TxHash)
		return nil
	}
	logWorker(job, "secret revealed on chain", "orderID", rec.OrderID, "status", rec.Status, "txHash", ev.TxHash)
	if rec.Status == types.StatusPending {
		if err := m.receiver.RequestSecret(rec.OrderID); err != nil && !isStaleStatus(err) {
			return err
		}
	}
	if err := m.receiver.ProvideSecret(rec.OrderID, ev.Secret); err != nil && !isStaleStatus(err) {
		return err
	}
	return nil
}

func (m *ChainMonitor) settle(job string, rec *types.SwapRecord, ev *types.EscrowEvent, resolution types.Resolution) error {
	if rec.Status.IsTerminal() {
		return nil
	}
	to := types.StatusCompleted
	if ev.Kind == types.EscrowCancelled {
		to = types.StatusCancelled
	}
	update := &registry.SwapUpdate{
		Status:     to,
		Resolution: resolution,
		Timestamp:  m.now(),
	}
	if ev.Secret != "" && !rec.HasSecret() && validator.ValidateSecret(ev.Secret, rec.Hashlock, m.hashAlgo) {
		update.Secret = ev.Secret
	}
	err := m.reg.UpdateSwap(rec.OrderID, rec.Status, update)
	if err != nil {
		if registry.IsStatusMismatch(err) {
			return nil
		}
		return err
	}
	m.receiver.Forget(rec.OrderID)
	logWorker(job, "swap settled on chain", "orderID", rec.OrderID, "from", rec.Status, "to", to, "resolution", resolution, "txHash", ev.TxHash)
	return nil
}
