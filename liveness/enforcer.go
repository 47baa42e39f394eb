// Package liveness is the escape valve of the relayer: it publishes a held
// secret once the resolver overstays its grace period or the user deadline
// passes, so anyone can finish or refund the swap.
package liveness

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/disclosure"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
	"github.com/anyswap/CrossChain-HTLC/validator"
)

// Revealer reveals the secret of an order through the mediator
type Revealer interface {
	ForceRevealSecret(orderID, reason string) error
	HeldSecret(orderID string) (string, bool)
	HeldOrders() []string
}

// Enforcer liveness enforcer
type Enforcer struct {
	reg      registry.Registry
	sink     disclosure.Sink
	bus      *events.Bus
	revealer Revealer

	holdTime int64
	hashAlgo string
	now      func() int64
}

// NewEnforcer new enforcer, holdTime is the grace period in seconds
func NewEnforcer(reg registry.Registry, sink disclosure.Sink, bus *events.Bus, holdTime int64, hashAlgo string) *Enforcer {
	return &Enforcer{
		reg:      reg,
		sink:     sink,
		bus:      bus,
		holdTime: holdTime,
		hashAlgo: hashAlgo,
		now:      common.Now,
	}
}

// SetRevealer set the mediator
func (e *Enforcer) SetRevealer(revealer Revealer) {
	e.revealer = revealer
}

// SetClock replace the clock (unix seconds)
func (e *Enforcer) SetClock(now func() int64) {
	e.now = now
}

// PublishSecretPublicly replicate the secret to the public sink, complete the
// swap and broadcast SecretPublished. Only the caller whose status transition
// wins broadcasts, so repeated calls have one observable effect. A sink
// failure leaves the swap untouched for the next attempt.
func (e *Enforcer) PublishSecretPublicly(orderID, secret, reason string) error {
	rec, err := e.reg.GetSwap(orderID)
	if err != nil {
		return err
	}
	if rec.Status.IsTerminal() {
		log.Debug("[liveness] skip publish of terminal swap", "orderID", orderID, "status", rec.Status)
		return nil
	}
	if err = validator.CheckSecret(secret, rec.Hashlock, e.hashAlgo); err != nil {
		return fmt.Errorf("refuse to publish secret of %v: %w", orderID, err)
	}
	if err = types.CheckTransition(rec.Status, types.StatusCompleted); err != nil {
		return err
	}

	payload := &types.DisclosurePayload{
		OrderID:      rec.OrderID,
		Secret:       secret,
		Hashlock:     rec.Hashlock,
		SrcChain:     rec.SrcChain,
		DstChain:     rec.DstChain,
		SrcEscrow:    rec.SrcEscrow,
		DstEscrow:    rec.DstEscrow,
		Reason:       reason,
		RewardPolicy: types.RewardPolicyFirstPublicActor,
	}
	ref, err := e.sink.Publish(payload)
	if err != nil {
		log.Error("[liveness] publish secret to sink failed", "orderID", orderID, "err", err)
		return err
	}

	now := e.now()
	err = e.reg.UpdateSwap(orderID, rec.Status, &registry.SwapUpdate{
		Status:        types.StatusCompleted,
		Secret:        secret,
		Resolution:    types.ResolutionPublicDisclosure,
		DisclosureRef: ref,
		DisclosedAt:   now,
		Memo:          reason,
		Timestamp:     now,
	})
	if err != nil {
		if registry.IsStatusMismatch(err) {
			log.Info("[liveness] swap changed while publishing, skip broadcast", "orderID", orderID, "err", err)
			return nil
		}
		return err
	}

	e.bus.PublishSecretPublished(&events.SecretPublished{Payload: payload, DisclosureRef: ref})
	log.Warn("[liveness] secret published publicly", "orderID", orderID, "reason", reason, "ref", ref)
	return nil
}

// Scan run both triggers once. Orders past their user deadline are handled
// first and are not revisited by the grace expiry pass of the same scan.
func (e *Enforcer) Scan() error {
	now := e.now()
	handled := mapset.NewThreadUnsafeSet()
	var errs []error

	pastDeadline, err := registry.FindPastUserDeadline(e.reg, now)
	if err != nil {
		return err
	}
	for _, rec := range pastDeadline {
		if !rec.HasSecret() {
			if _, held := e.revealer.HeldSecret(rec.OrderID); !held {
				continue
			}
		}
		handled.Add(rec.OrderID)
		if err = e.revealer.ForceRevealSecret(rec.OrderID, types.ReasonUserDeadlinePassed); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", rec.OrderID, err))
		}
	}

	graceExpired, err := registry.FindGraceExpired(e.reg, now, e.holdTime)
	if err != nil {
		return err
	}
	for _, rec := range graceExpired {
		if handled.Contains(rec.OrderID) {
			continue
		}
		handled.Add(rec.OrderID)
		if err = e.revealer.ForceRevealSecret(rec.OrderID, types.ReasonGracePeriodExpired); err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", rec.OrderID, err))
		}
	}
	return errors.Join(errs...)
}

// HandleRevealRequired react to a high urgency reveal request
func (e *Enforcer) HandleRevealRequired(ev *events.SecretRevealRequired) error {
	if ev.Urgency != types.UrgencyHigh {
		return nil
	}
	return e.revealer.ForceRevealSecret(ev.OrderID, ev.Reason)
}
