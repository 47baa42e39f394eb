package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
)

const timeoutJob = "timeout"

// SecretHolder mediator view used by the timeout monitor
type SecretHolder interface {
	HeldSecret(orderID string) (string, bool)
	Forget(orderID string)
}

// TimeoutMonitor watches swap deadlines
type TimeoutMonitor struct {
	reg         registry.Registry
	bus         *events.Bus
	holder      SecretHolder
	alertWindow int64
	now         func() int64
}

// NewTimeoutMonitor new timeout monitor, alertWindow in seconds
func NewTimeoutMonitor(reg registry.Registry, bus *events.Bus, holder SecretHolder, alertWindow int64) *TimeoutMonitor {
	return &TimeoutMonitor{
		reg:         reg,
		bus:         bus,
		holder:      holder,
		alertWindow: alertWindow,
		now:         common.Now,
	}
}

// SetClock replace the clock (unix seconds)
func (m *TimeoutMonitor) SetClock(now func() int64) {
	m.now = now
}

// Job scheduler entry
func (m *TimeoutMonitor) Job(ctx context.Context) error {
	return m.Tick()
}

// Tick run the approaching, passed and cancellation passes once
func (m *TimeoutMonitor) Tick() error {
	now := m.now()
	var errs []error

	alerts, err := m.UpcomingAlerts(now, m.alertWindow)
	if err != nil {
		errs = append(errs, err)
	}
	for _, alert := range alerts {
		m.bus.PublishTimeoutAlert(alert)
	}

	if err = m.checkPassedDeadlines(now); err != nil {
		errs = append(errs, err)
	}
	if err = m.cancelExpiredSwaps(now); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// UpcomingAlerts deadlines of active swaps falling in (now, now+window]
func (m *TimeoutMonitor) UpcomingAlerts(now, window int64) ([]*types.TimeoutAlert, error) {
	if window <= 0 {
		return nil, nil
	}
	var alerts []*types.TimeoutAlert

	byUser, err := m.reg.FindByUserDeadline(now+1, now+window+1)
	if err != nil {
		return nil, err
	}
	for _, rec := range byUser {
		alerts = append(alerts, &types.TimeoutAlert{
			OrderID:       rec.OrderID,
			Kind:          types.AlertUserDeadlineApproaching,
			Deadline:      rec.UserDeadline,
			TimeRemaining: rec.UserDeadline - now,
		})
	}

	byCancel, err := m.reg.FindByCancelAfter(now+1, now+window+1)
	if err != nil {
		return nil, err
	}
	for _, rec := range byCancel {
		alerts = append(alerts, &types.TimeoutAlert{
			OrderID:       rec.OrderID,
			Kind:          types.AlertCancelDeadlineApproaching,
			Deadline:      rec.CancelAfter,
			TimeRemaining: rec.CancelAfter - now,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Deadline < alerts[j].Deadline
	})
	return alerts, nil
}

func (m *TimeoutMonitor) hasSecret(rec *types.SwapRecord) bool {
	if rec.HasSecret() {
		return true
	}
	_, held := m.holder.HeldSecret(rec.OrderID)
	return held
}

func (m *TimeoutMonitor) checkPassedDeadlines(now int64) error {
	passed, err := registry.FindPastUserDeadline(m.reg, now)
	if err != nil {
		return err
	}
	for _, rec := range passed {
		m.bus.PublishTimeoutAlert(&types.TimeoutAlert{
			OrderID:       rec.OrderID,
			Kind:          types.AlertDeadlinePassed,
			Deadline:      rec.UserDeadline,
			TimeRemaining: rec.UserDeadline - now,
		})
		if !m.hasSecret(rec) {
			continue
		}
		logWorkerWarn(timeoutJob, "user deadline passed with secret held", "orderID", rec.OrderID, "status", rec.Status)
		m.bus.PublishSecretRevealRequired(&events.SecretRevealRequired{
			OrderID: rec.OrderID,
			Urgency: types.UrgencyHigh,
			Reason:  types.ReasonUserDeadlinePassed,
		})
	}
	return nil
}

// cancelTarget terminal status of a swap whose cancel deadline passed.
// Swaps that never had funds locked or a secret shared simply expire.
func cancelTarget(rec *types.SwapRecord) (types.SwapStatus, types.Resolution) {
	if rec.Status == types.StatusSecretShared || rec.SrcEscrow != "" || rec.DstEscrow != "" {
		return types.StatusCancelled, types.ResolutionPublicCancel
	}
	return types.StatusExpired, types.ResolutionExpiredUnfunded
}

func (m *TimeoutMonitor) cancelExpiredSwaps(now int64) error {
	expired, err := registry.FindPastCancelDeadline(m.reg, now)
	if err != nil {
		return err
	}
	var errs []error
	for _, rec := range expired {
		to, resolution := cancelTarget(rec)
		if err = types.CheckTransition(rec.Status, to); err != nil {
			continue
		}
		err = registry.UpdateStatus(m.reg, rec.OrderID, rec.Status, to, resolution, now)
		if err != nil {
			if registry.IsStatusMismatch(err) {
				logWorker(timeoutJob, "swap changed before cancel, skip", "orderID", rec.OrderID)
				continue
			}
			errs = append(errs, fmt.Errorf("cancel %v: %w", rec.OrderID, err))
			continue
		}
		m.holder.Forget(rec.OrderID)

		snapshot := rec.Clone()
		snapshot.Status = to
		snapshot.Resolution = resolution
		snapshot.UpdatedAt = now
		m.bus.PublishPublicCancelRequired(&events.PublicCancelRequired{Record: snapshot})
		logWorkerWarn(timeoutJob, "cancel deadline passed", "orderID", rec.OrderID, "from", rec.Status, "to", to, "resolution", resolution)
	}
	return errors.Join(errs...)
}
