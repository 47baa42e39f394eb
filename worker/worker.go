package worker

import (
	"context"
	"time"

	"github.com/anyswap/CrossChain-HTLC/disclosure"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/liveness"
	"github.com/anyswap/CrossChain-HTLC/mediator"
	"github.com/anyswap/CrossChain-HTLC/orchestrator"
	"github.com/anyswap/CrossChain-HTLC/params"
)

// Components relayer services driven by the jobs
type Components struct {
	Bus          *events.Bus
	Mediator     *mediator.Mediator
	Enforcer     *liveness.Enforcer
	Timeout      *TimeoutMonitor
	ChainMonitor *ChainMonitor
	Feed         *disclosure.Feed           // optional
	Mailer       *AlertMailer               // optional
	Orchestrator *orchestrator.Orchestrator // optional
}

// StartWork register all jobs and start the scheduler
func StartWork(ctx context.Context, c *Components, config *params.SwapConfig) (*Scheduler, error) {
	logWorker("worker", "start relayer worker")
	s := NewScheduler()

	pollInterval := config.PollDuration()
	if err := s.AddJob(timeoutJob, config.TimeoutTickDuration(), c.Timeout.Job); err != nil {
		return nil, err
	}
	if err := s.AddJob(livenessJob, pollInterval, LivenessJob(c.Enforcer)); err != nil {
		return nil, err
	}
	for _, chain := range c.ChainMonitor.Chains() {
		if err := s.AddJob(chainMonitorJob+"/"+chain, pollInterval, c.ChainMonitor.Job(chain)); err != nil {
			return nil, err
		}
	}
	if c.Orchestrator != nil {
		if err := s.AddJob("orchestrator", pollInterval, c.Orchestrator.Job); err != nil {
			return nil, err
		}
	}

	if err := s.AddLoop("gracetimers", c.Mediator.Run); err != nil {
		return nil, err
	}
	if err := s.AddLoop("revealrequired", RevealRequiredLoop(c.Bus, c.Enforcer)); err != nil {
		return nil, err
	}
	if c.Feed != nil {
		if err := s.AddLoop(feedJob, FeedLoop(c.Bus, c.Feed)); err != nil {
			return nil, err
		}
	}
	if c.Mailer != nil {
		if err := s.AddLoop(alertJob, c.Mailer.Loop(c.Bus)); err != nil {
			return nil, err
		}
	}

	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// WaitStopped block until ctx is done then stop the scheduler within timeout
func WaitStopped(ctx context.Context, s *Scheduler, timeout time.Duration) {
	<-ctx.Done()
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logWorkerWarn("worker", "jobs did not stop in time", "timeout", timeout.String())
	}
}
