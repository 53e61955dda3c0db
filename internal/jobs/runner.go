// Package jobs owns the background schedule: the nightly aggregation and the
// weekly retention sweep, plus their operator-triggered counterparts. Each
// job is single-flight — a tick or manual trigger that lands while the
// previous run is still going is skipped, never queued.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Well-known job ids.
const (
	JobAggregation = "aggregation"
	JobRetention   = "retention"
)

// ErrJobBusy is returned when a manual trigger lands while the same job is
// already running.
var ErrJobBusy = errors.New("job already running")

// ErrUnknownJob is returned for triggers against an unregistered job id.
var ErrUnknownJob = errors.New("unknown job")

const defaultRunTimeout = 30 * time.Minute

// Func is one runnable job body.
type Func func(ctx context.Context) error

type job struct {
	fn Func
	mu sync.Mutex // held for the duration of a run
}

// Runner schedules registered jobs with cron expressions. This process is
// the only scheduler: single-flight is per-process, which holds as long as
// one instance runs the jobs.
type Runner struct {
	cron       *cron.Cron
	runTimeout time.Duration

	mu   sync.Mutex
	jobs map[string]*job
}

// NewRunner creates a stopped runner using standard 5-field cron
// expressions in UTC.
func NewRunner() *Runner {
	return &Runner{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		runTimeout: defaultRunTimeout,
		jobs:       make(map[string]*job),
	}
}

// Register schedules fn under id. Registering an id twice is a logged
// no-op, which makes wiring idempotent across restart paths.
func (r *Runner) Register(id, spec string, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[id]; exists {
		slog.Info("[Jobs] Already registered, skipping", "job", id)
		return nil
	}

	j := &job{fn: fn}
	if _, err := r.cron.AddFunc(spec, func() { r.runScheduled(id, j) }); err != nil {
		return err
	}
	r.jobs[id] = j

	slog.Info("[Jobs] Registered", "job", id, "spec", spec)
	return nil
}

// Trigger runs a registered job immediately, respecting single-flight
// against scheduled runs. Used by the operator endpoints.
func (r *Runner) Trigger(ctx context.Context, id string) error {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}

	if !j.mu.TryLock() {
		return ErrJobBusy
	}
	defer j.mu.Unlock()

	return j.fn(ctx)
}

// Acquire takes the single-flight lock for id without running anything,
// letting callers run the job body with custom parameters. The returned
// release must be called exactly once.
func (r *Runner) Acquire(id string) (release func(), err error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrUnknownJob
	}

	if !j.mu.TryLock() {
		return nil, ErrJobBusy
	}
	return j.mu.Unlock, nil
}

// Start begins the schedule.
func (r *Runner) Start() {
	r.cron.Start()
	slog.Info("[Jobs] Scheduler started", "jobs", len(r.jobs))
}

// Stop halts the schedule and waits for any running job to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	slog.Info("[Jobs] Scheduler stopped")
}

func (r *Runner) runScheduled(id string, j *job) {
	if !j.mu.TryLock() {
		slog.Info("[Jobs] Skipping tick, previous run still in progress", "job", id)
		return
	}
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.runTimeout)
	defer cancel()

	started := time.Now()
	if err := j.fn(ctx); err != nil {
		slog.Error("[Jobs] Run failed", "job", id, "error", err, "elapsed", time.Since(started))
		return
	}
	slog.Info("[Jobs] Run complete", "job", id, "elapsed", time.Since(started))
}
