// Package worker includes the periodic jobs of the relayer.
//
// The jobs run concurrently under one Scheduler, each on its own interval:
//	timeout
//		alert on approaching and passed deadlines, expire or cancel swaps past cancelAfter.
//	liveness
//		force reveal held secrets whose grace period lapsed or whose user deadline passed.
//	chainmonitor/<chain>
//		scan finalized blocks of one chain and feed escrow events into the registry and mediator.
//	orchestrator
//		drive resolver side escrows, only when the resolver is enabled.
// Event listeners (reveal requests, alert emails, grace timers) run beside the jobs
// and stop together with the scheduler.
package worker
