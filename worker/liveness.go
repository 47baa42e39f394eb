package worker

import (
	"context"

	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/liveness"
)

const livenessJob = "liveness"

// LivenessJob periodic scan of the liveness enforcer
func LivenessJob(enforcer *liveness.Enforcer) JobFunc {
	return func(ctx context.Context) error {
		return enforcer.Scan()
	}
}

// RevealRequiredLoop force reveal on high urgency requests from the timeout monitor
func RevealRequiredLoop(bus *events.Bus, enforcer *liveness.Enforcer) func(ctx context.Context) {
	ch := bus.Subscribe(0, events.TopicSecretRevealRequired)
	return func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				req, ok := ev.Payload.(*events.SecretRevealRequired)
				if !ok {
					continue
				}
				if err := enforcer.HandleRevealRequired(req); err != nil {
					logWorkerError(livenessJob, "handle reveal request failed", err, "orderID", req.OrderID, "reason", req.Reason)
				}
			}
		}
	}
}
