// Package mediator owns the secret revelation protocol of a swap:
// request the secret from the maker, validate and hold it, release it
// to a ready resolver and guard the resolver with a grace timer.
package mediator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
	"github.com/anyswap/CrossChain-HTLC/validator"
)

const timerCheckInterval = time.Second

// Discloser publishes a secret to the public channel and completes the swap
type Discloser interface {
	PublishSecretPublicly(orderID, secret, reason string) error
}

type pendingRequest struct {
	hashlock     string
	userDeadline int64
	requestedAt  int64
}

type heldSecret struct {
	secret string
	heldAt int64
}

// Mediator secret mediator
type Mediator struct {
	reg       registry.Registry
	bus       *events.Bus
	discloser Discloser

	holdTime int64
	hashAlgo string
	now      func() int64

	locks  orderLocks
	timers *TimerQueue

	mu             sync.Mutex
	pending        map[string]*pendingRequest
	held           map[string]*heldSecret
	readyResolvers map[string]string
}

// New new mediator, holdTime is the grace period in seconds
func New(reg registry.Registry, bus *events.Bus, holdTime int64, hashAlgo string) *Mediator {
	return &Mediator{
		reg:            reg,
		bus:            bus,
		holdTime:       holdTime,
		hashAlgo:       hashAlgo,
		now:            common.Now,
		timers:         NewTimerQueue(),
		pending:        make(map[string]*pendingRequest),
		held:           make(map[string]*heldSecret),
		readyResolvers: make(map[string]string),
	}
}

// SetDiscloser set the public disclosure path
func (m *Mediator) SetDiscloser(discloser Discloser) {
	m.discloser = discloser
}

// SetClock replace the clock (unix seconds)
func (m *Mediator) SetClock(now func() int64) {
	m.now = now
}

// Timers grace timer queue
func (m *Mediator) Timers() *TimerQueue {
	return m.timers
}

func normalizeSecret(secret string) string {
	return "0x" + strings.TrimPrefix(strings.ToLower(secret), "0x")
}

func checkStatus(rec *types.SwapRecord, expect types.SwapStatus) error {
	if rec.Status == expect {
		return nil
	}
	if rec.Status.IsTerminal() {
		return fmt.Errorf("%w: order %v is %v", types.ErrSwapTerminal, rec.OrderID, rec.Status)
	}
	return fmt.Errorf("%w: order %v is %v, expect %v", types.ErrWrongStatus, rec.OrderID, rec.Status, expect)
}

// RequestSecret pending -> awaiting_secret
func (m *Mediator) RequestSecret(orderID string) error {
	unlock := m.locks.lock(orderID)
	defer unlock()

	rec, err := m.reg.GetSwap(orderID)
	if err != nil {
		return err
	}
	if err = checkStatus(rec, types.StatusPending); err != nil {
		return err
	}
	now := m.now()
	err = registry.UpdateStatus(m.reg, orderID, types.StatusPending, types.StatusAwaitingSecret, types.ResolutionNone, now)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.pending[orderID] = &pendingRequest{
		hashlock:     rec.Hashlock,
		userDeadline: rec.UserDeadline,
		requestedAt:  now,
	}
	m.mu.Unlock()
	log.Info("[mediator] secret requested", "orderID", orderID, "userDeadline", rec.UserDeadline)
	return nil
}

// ProvideSecret validate and hold the maker's secret. The secret is not
// persisted until it is shared with a resolver.
func (m *Mediator) ProvideSecret(orderID, secret string) error {
	unlock := m.locks.lock(orderID)
	defer unlock()

	rec, err := m.reg.GetSwap(orderID)
	if err != nil {
		return err
	}
	if err = checkStatus(rec, types.StatusAwaitingSecret); err != nil {
		return err
	}
	if err = validator.CheckSecret(secret, rec.Hashlock, m.hashAlgo); err != nil {
		log.Warn("[mediator] reject secret", "orderID", orderID, "err", err)
		return err
	}

	m.mu.Lock()
	m.held[orderID] = &heldSecret{secret: normalizeSecret(secret), heldAt: m.now()}
	delete(m.pending, orderID)
	resolver, ready := m.readyResolvers[orderID]
	m.mu.Unlock()
	log.Info("[mediator] secret accepted and held", "orderID", orderID)

	if ready {
		if _, err = m.shareSecret(orderID, resolver); err != nil {
			log.Warn("[mediator] share secret with waiting resolver failed", "orderID", orderID, "resolver", resolver, "err", err)
		}
	}
	return nil
}

// HandleResolverReady share the held secret with resolver and return it.
// If no secret is held yet the resolver is remembered and served once the
// secret arrives, and an empty secret is returned.
func (m *Mediator) HandleResolverReady(orderID, resolver string) (string, error) {
	unlock := m.locks.lock(orderID)
	defer unlock()

	rec, err := m.reg.GetSwap(orderID)
	if err != nil {
		return "", err
	}
	if rec.Taker != "" && !strings.EqualFold(rec.Taker, resolver) {
		return "", fmt.Errorf("%w: order %v is reserved for taker %v", types.ErrWrongStatus, orderID, rec.Taker)
	}

	if _, held := m.HeldSecret(orderID); held {
		return m.shareSecret(orderID, resolver)
	}

	switch rec.Status {
	case types.StatusSecretShared:
		// resolver restarted, hand back the persisted secret, the grace timer keeps running
		if !strings.EqualFold(rec.Resolver, resolver) {
			return "", fmt.Errorf("%w: order %v is shared with another resolver", types.ErrWrongStatus, orderID)
		}
		return rec.Secret, nil
	case types.StatusPending, types.StatusAwaitingSecret:
		m.mu.Lock()
		m.readyResolvers[orderID] = resolver
		m.mu.Unlock()
		log.Warn("[mediator] resolver ready before secret", "orderID", orderID, "resolver", resolver, "status", rec.Status)
		return "", nil
	default:
		return "", checkStatus(rec, types.StatusAwaitingSecret)
	}
}

// ShareSecretWithResolver persist the held secret, move to secret_shared
// and start the grace timer.
func (m *Mediator) ShareSecretWithResolver(orderID, resolver string) (string, error) {
	unlock := m.locks.lock(orderID)
	defer unlock()
	return m.shareSecret(orderID, resolver)
}

func (m *Mediator) shareSecret(orderID, resolver string) (string, error) {
	held, ok := m.HeldSecret(orderID)
	if !ok {
		return "", fmt.Errorf("%w: %v", types.ErrNoSecretHeld, orderID)
	}
	if m.timers.Has(orderID) {
		return "", fmt.Errorf("%w: %v", types.ErrDuplicateTimer, orderID)
	}
	now := m.now()
	if err := registry.SetSecret(m.reg, orderID, held, resolver, now); err != nil {
		// keep holding the secret, the next attempt retries
		return "", fmt.Errorf("persist secret of %v: %w", orderID, err)
	}
	if err := m.timers.Schedule(orderID, now+m.holdTime); err != nil {
		return "", err
	}

	m.mu.Lock()
	delete(m.held, orderID)
	delete(m.readyResolvers, orderID)
	m.mu.Unlock()

	m.bus.PublishSecretShared(&events.SecretShared{OrderID: orderID, Resolver: resolver, SharedAt: now})
	log.Info("[mediator] secret shared with resolver", "orderID", orderID, "resolver", resolver, "graceEnd", now+m.holdTime)
	return held, nil
}

// ForceRevealSecret publish the secret of order and complete it.
// Calling it on a completed order is a no-op.
func (m *Mediator) ForceRevealSecret(orderID, reason string) error {
	unlock := m.locks.lock(orderID)
	defer unlock()

	rec, err := m.reg.GetSwap(orderID)
	if err != nil {
		return err
	}
	switch {
	case rec.Status == types.StatusCompleted:
		m.forget(orderID)
		return nil
	case rec.Status.IsTerminal():
		m.forget(orderID)
		return checkStatus(rec, types.StatusSecretShared)
	}

	secret := rec.Secret
	if secret == "" {
		secret, _ = m.HeldSecret(orderID)
	}
	if secret == "" {
		return fmt.Errorf("%w: %v", types.ErrNoSecretHeld, orderID)
	}
	if m.discloser == nil {
		return fmt.Errorf("no discloser to reveal secret of %v", orderID)
	}
	if err = m.discloser.PublishSecretPublicly(orderID, secret, reason); err != nil {
		return err
	}
	m.forget(orderID)
	log.Info("[mediator] secret force revealed", "orderID", orderID, "reason", reason)
	return nil
}

func (m *Mediator) onGraceExpired(orderID string) {
	rec, err := m.reg.GetSwap(orderID)
	if err != nil {
		log.Error("[mediator] grace timer read swap failed", "orderID", orderID, "err", err)
		return
	}
	if rec.Status != types.StatusSecretShared {
		return
	}
	reason := types.ReasonGracePeriodExpired
	if m.now() >= rec.UserDeadline {
		reason = types.ReasonUserDeadlinePassed
	}
	log.Warn("[mediator] grace period expired", "orderID", orderID, "resolver", rec.Resolver, "reason", reason)
	if err = m.ForceRevealSecret(orderID, reason); err != nil {
		log.Error("[mediator] force reveal on grace expiry failed", "orderID", orderID, "err", err)
	}
}

// FireDueTimers run expired grace timers synchronously
func (m *Mediator) FireDueTimers() int {
	due := m.timers.PopDue(m.now())
	for _, orderID := range due {
		m.onGraceExpired(orderID)
	}
	return len(due)
}

// Run fire grace timers until ctx is done, each order in its own goroutine
func (m *Mediator) Run(ctx context.Context) {
	ticker := time.NewTicker(timerCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, orderID := range m.timers.PopDue(m.now()) {
				go m.onGraceExpired(orderID)
			}
		}
	}
}

// HeldSecret secret held in memory and not yet persisted
func (m *Mediator) HeldSecret(orderID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, ok := m.held[orderID]
	if !ok {
		return "", false
	}
	return held.secret, true
}

// HeldOrders orders with a held secret
func (m *Mediator) HeldOrders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	orderIDs := make([]string, 0, len(m.held))
	for orderID := range m.held {
		orderIDs = append(orderIDs, orderID)
	}
	return orderIDs
}

// IsPending is secret request outstanding
func (m *Mediator) IsPending(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[orderID]
	return ok
}

// Forget drop cached state of an order that reached a terminal status
func (m *Mediator) Forget(orderID string) {
	unlock := m.locks.lock(orderID)
	defer unlock()
	m.forget(orderID)
}

func (m *Mediator) forget(orderID string) {
	m.timers.Cancel(orderID)
	m.mu.Lock()
	delete(m.pending, orderID)
	delete(m.held, orderID)
	delete(m.readyResolvers, orderID)
	m.mu.Unlock()
}

// Recover rebuild the pending request table and grace timers from the registry
func (m *Mediator) Recover() error {
	awaiting, err := registry.FindAwaitingSecret(m.reg)
	if err != nil {
		return err
	}
	m.mu.Lock()
	for _, rec := range awaiting {
		m.pending[rec.OrderID] = &pendingRequest{
			hashlock:     rec.Hashlock,
			userDeadline: rec.UserDeadline,
			requestedAt:  rec.UpdatedAt,
		}
	}
	m.mu.Unlock()

	shared, err := m.reg.FindSwapsByStatus(types.StatusSecretShared)
	if err != nil {
		return err
	}
	for _, rec := range shared {
		if m.timers.Has(rec.OrderID) {
			continue
		}
		if err = m.timers.Schedule(rec.OrderID, rec.SecretSharedAt+m.holdTime); err != nil {
			return err
		}
	}
	log.Info("[mediator] recovered from registry", "awaitingSecret", len(awaiting), "graceTimers", len(shared))
	return nil
}
