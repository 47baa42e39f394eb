package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/types"
)

const alertJob = "alert"

// SendEmailFunc sends one email to the operators
type SendEmailFunc func(subject, content string) error

// AlertMailer mails deadline_passed alerts, at most once per order in minInterval seconds
type AlertMailer struct {
	identifier  string
	send        SendEmailFunc
	minInterval int64
	now         func() int64

	mu       sync.Mutex
	lastSent map[string]int64
}

// NewAlertMailer new alert mailer
func NewAlertMailer(identifier string, send SendEmailFunc, minInterval int64) *AlertMailer {
	return &AlertMailer{
		identifier:  identifier,
		send:        send,
		minInterval: minInterval,
		now:         common.Now,
		lastSent:    make(map[string]int64),
	}
}

// SetClock replace the clock (unix seconds)
func (a *AlertMailer) SetClock(now func() int64) {
	a.now = now
}

// HandleAlert mail alert if it is due, returns whether an email was sent
func (a *AlertMailer) HandleAlert(alert *types.TimeoutAlert) (bool, error) {
	if alert.Kind != types.AlertDeadlinePassed {
		return false, nil
	}
	now := a.now()
	a.mu.Lock()
	prev := a.lastSent[alert.OrderID]
	if prev != 0 && prev+a.minInterval > now {
		a.mu.Unlock()
		return false, nil // too frequently
	}
	a.lastSent[alert.OrderID] = now
	a.prune(now)
	a.mu.Unlock()

	subject := fmt.Sprintf("[%v] user deadline passed for order %v", a.identifier, alert.OrderID)
	content := fmt.Sprintf("order: %v\nuser deadline: %v\npassed for: %v\n",
		alert.OrderID,
		time.Unix(alert.Deadline, 0).UTC().Format(time.RFC3339),
		time.Duration(-alert.TimeRemaining)*time.Second,
	)
	err := a.send(subject, content)
	if err != nil {
		a.mu.Lock()
		delete(a.lastSent, alert.OrderID)
		a.mu.Unlock()
		logWorkerError(alertJob, "send alert email failed", err, "orderID", alert.OrderID)
		return false, err
	}
	logWorker(alertJob, "send alert email success", "orderID", alert.OrderID)
	return true, nil
}

func (a *AlertMailer) prune(now int64) {
	for orderID, sent := range a.lastSent {
		if sent+a.minInterval <= now {
			delete(a.lastSent, orderID)
		}
	}
}

// Loop consume TimeoutAlert events from bus
func (a *AlertMailer) Loop(bus *events.Bus) func(ctx context.Context) {
	ch := bus.Subscribe(0, events.TopicTimeoutAlert)
	return func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if alert, ok := ev.Payload.(*types.TimeoutAlert); ok {
					_, _ = a.HandleAlert(alert)
				}
			}
		}
	}
}
