package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/anyswap/CrossChain-HTLC/common"
)

// scheduler errors
var (
	ErrDuplicateJob     = errors.New("duplicate job name")
	ErrSchedulerStarted = errors.New("scheduler already started")
)

// JobFunc one run of a periodic job
type JobFunc func(ctx context.Context) error

// JobStats run statistics of a job
type JobStats struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      uint64        `json:"runs"`
	Failures  uint64        `json:"failures"`
	Panics    uint64        `json:"panics"`
	LastRun   int64         `json:"lastRun"`
	LastError string        `json:"lastError,omitempty"`
}

type job struct {
	name     string
	interval time.Duration
	run      JobFunc
}

// Scheduler runs named jobs on independent intervals. A failing or
// panicking run is logged and the job keeps its schedule.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*job
	loops   map[string]func(ctx context.Context)
	stats   map[string]*JobStats
	started bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler new scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		loops: make(map[string]func(ctx context.Context)),
		stats: make(map[string]*JobStats),
	}
}

func (s *Scheduler) checkName(name string) error {
	if s.started {
		return ErrSchedulerStarted
	}
	if _, exist := s.stats[name]; exist {
		return fmt.Errorf("%w: %v", ErrDuplicateJob, name)
	}
	if _, exist := s.loops[name]; exist {
		return fmt.Errorf("%w: %v", ErrDuplicateJob, name)
	}
	return nil
}

// AddJob register periodic job, the first run starts immediately
func (s *Scheduler) AddJob(name string, interval time.Duration, run JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkName(name); err != nil {
		return err
	}
	s.jobs = append(s.jobs, &job{name: name, interval: interval, run: run})
	s.stats[name] = &JobStats{Name: name, Interval: interval}
	return nil
}

// AddLoop register long running function that returns when ctx is done
func (s *Scheduler) AddLoop(name string, loop func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkName(name); err != nil {
		return err
	}
	s.loops[name] = loop
	return nil
}

// Start run all jobs and loops until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrSchedulerStarted
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, j)
		logWorker("scheduler", "start job", "job", j.name, "interval", j.interval.String())
	}
	for name, loop := range s.loops {
		s.wg.Add(1)
		go s.runLoop(ctx, name, loop)
		logWorker("scheduler", "start loop", "loop", name)
	}
	return nil
}

// Stop cancel all jobs and wait for the running ones to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	logWorker("scheduler", "all jobs stopped")
}

// Stats statistics of all jobs
func (s *Scheduler) Stats() []JobStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]JobStats, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, *s.stats[j.name])
	}
	return result
}

// JobStatsOf statistics of one job
func (s *Scheduler) JobStatsOf(name string) (JobStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, exist := s.stats[name]
	if !exist {
		return JobStats{}, false
	}
	return *stats, true
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	defer s.wg.Done()
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logWorker("scheduler", "job stopped", "job", j.name)
			return
		case <-timer.C:
			s.runOnce(ctx, j)
			timer.Reset(j.interval)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j *job) {
	var err error
	panicked := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				err = fmt.Errorf("panic: %v", r)
				logWorkerError(j.name, "job panic", err, "stack", string(debug.Stack()))
			}
		}()
		err = j.run(ctx)
	}()

	s.mu.Lock()
	stats := s.stats[j.name]
	stats.Runs++
	stats.LastRun = common.Now()
	stats.LastError = ""
	if panicked {
		stats.Panics++
	}
	if err != nil {
		stats.Failures++
		stats.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil && !panicked {
		logWorkerError(j.name, "job run failed", err)
	}
}

func (s *Scheduler) runLoop(ctx context.Context, name string, loop func(ctx context.Context)) {
	defer s.wg.Done()
	for {
		stopped := func() (stopped bool) {
			defer func() {
				if r := recover(); r != nil {
					logWorkerError(name, "loop panic", fmt.Errorf("panic: %v", r), "stack", string(debug.Stack()))
				}
			}()
			loop(ctx)
			return true
		}()
		if stopped || ctx.Err() != nil {
			logWorker("scheduler", "loop stopped", "loop", name)
			return
		}
		// restart a panicked loop after a short rest
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
