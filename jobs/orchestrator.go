package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/storage"
)

// Handler executes one claimed job. A nil return marks the job done; an
// error re-queues it with backoff until attempts run out.
type Handler func(ctx context.Context, job *core.Job) error

// TerminalHook is invoked after a job reaches the failed state with no
// attempts left, including jobs failed by stale reclaim. Hooks let owners
// of the job's subject react, e.g. flipping a document to failed.
type TerminalHook func(ctx context.Context, job *core.Job)

const (
	// DefaultMaxAttempts bounds how many times a job runs.
	DefaultMaxAttempts = 3
	// DefaultRetryBase is the base backoff delay after a failed attempt.
	DefaultRetryBase = 10 * time.Second
	// DefaultStaleAfter is how long a job may stay running before a
	// reclaim treats its worker as lost.
	DefaultStaleAfter = 10 * time.Minute
)

// Orchestrator drives the durable job state machine: enqueue, claim, run,
// retry with backoff, terminal failure, and stale reclaim.
type Orchestrator struct {
	repo        storage.JobRepository
	clock       Clock
	maxAttempts int
	retryBase   time.Duration
	staleAfter  time.Duration
	logger      *slog.Logger

	mu           sync.RWMutex
	handlers     map[core.JobType]Handler
	terminalHook TerminalHook
	running      bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock injects a Clock, used by tests to control time.
func WithClock(clock Clock) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMaxAttempts sets the attempt budget given to enqueued jobs.
func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithRetryBase sets the base backoff delay.
func WithRetryBase(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.retryBase = d
		}
	}
}

// WithStaleAfter sets how long a running job may go unheard from before it
// is reclaimed.
func WithStaleAfter(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.staleAfter = d
		}
	}
}

// WithTerminalHook sets the hook invoked on terminal job failure.
func WithTerminalHook(hook TerminalHook) Option {
	return func(o *Orchestrator) {
		o.terminalHook = hook
	}
}

// NewOrchestrator creates an orchestrator over the given job repository.
func NewOrchestrator(repo storage.JobRepository, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		repo:        repo,
		clock:       SystemClock(),
		maxAttempts: DefaultMaxAttempts,
		retryBase:   DefaultRetryBase,
		staleAfter:  DefaultStaleAfter,
		handlers:    make(map[core.JobType]Handler),
		logger:      slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RegisterHandler binds a handler to a job type, replacing any previous
// binding.
func (o *Orchestrator) RegisterHandler(jobType core.JobType, handler Handler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers[jobType] = handler
}

// Enqueue validates the payload and persists a new queued job that is due
// immediately.
func (o *Orchestrator) Enqueue(ctx context.Context, tenantId string, jobType core.JobType, payload core.JobPayload) (*core.Job, error) {
	if err := core.ValidatePayload(jobType, payload); err != nil {
		return nil, err
	}

	now := o.clock.Now()
	job := &core.Job{
		Id:          core.NewID(),
		TenantId:    tenantId,
		Type:        jobType,
		Payload:     payload,
		Status:      core.JobStatusQueued,
		MaxAttempts: o.maxAttempts,
		NextRunAt:   now,
		CreatedAt:   now,
	}
	if err := o.repo.AddJob(ctx, job); err != nil {
		return nil, err
	}

	o.logger.Info("job enqueued", "jobId", job.Id, "type", job.Type, "tenant", tenantId)
	return job, nil
}

// RunDueJobs claims and runs every currently-due job once, returning how
// many jobs it processed. Handler failures are absorbed into the job state
// machine; only storage failures surface as errors.
func (o *Orchestrator) RunDueJobs(ctx context.Context) (int, error) {
	processed := 0
	for {
		job, err := o.repo.ClaimNextDue(ctx, o.clock.Now())
		if errors.Is(err, storage.ErrNotFound) {
			return processed, nil
		}
		if err != nil {
			return processed, err
		}

		if err := o.runClaimed(ctx, job); err != nil {
			return processed, err
		}
		processed++
	}
}

// runClaimed executes one claimed job and persists the resulting state
// transition.
func (o *Orchestrator) runClaimed(ctx context.Context, job *core.Job) error {
	o.mu.RLock()
	handler, ok := o.handlers[job.Type]
	o.mu.RUnlock()

	var runErr error
	if !ok {
		// Retrying cannot conjure a handler; burn the remaining budget.
		job.Attempts = job.MaxAttempts
		runErr = fmt.Errorf("%w: %s", ErrNoHandler, job.Type)
	} else {
		runErr = handler(ctx, job)
	}

	now := o.clock.Now()
	if runErr == nil {
		job.Status = core.JobStatusDone
		job.Error = ""
		job.FinishedAt = now
		if err := o.repo.UpdateJob(ctx, job); err != nil {
			return err
		}
		o.logger.Info("job done", "jobId", job.Id, "type", job.Type, "attempts", job.Attempts)
		return nil
	}

	job.Error = runErr.Error()
	if errors.Is(runErr, core.ErrExtraction) || errors.Is(runErr, core.ErrConsistency) {
		// Deterministic failures: the same bytes will fail the same way on
		// every attempt, so retrying only re-parses and re-embeds for nothing.
		job.Attempts = job.MaxAttempts
	}
	if job.CanRetry() {
		job.Status = core.JobStatusQueued
		job.NextRunAt = now.Add(RetryDelay(o.retryBase, job.Attempts))
		job.StartedAt = time.Time{}
		if err := o.repo.UpdateJob(ctx, job); err != nil {
			return err
		}
		o.logger.Warn("job failed, re-queued",
			"jobId", job.Id, "attempts", job.Attempts, "maxAttempts", job.MaxAttempts,
			"nextRunAt", job.NextRunAt, "err", runErr)
		return nil
	}

	job.Status = core.JobStatusFailed
	job.FinishedAt = now
	if err := o.repo.UpdateJob(ctx, job); err != nil {
		return err
	}
	o.logger.Error("job failed terminally", "jobId", job.Id, "attempts", job.Attempts, "err", runErr)
	o.notifyTerminal(ctx, job)
	return nil
}

// ReclaimStale re-queues jobs whose workers went silent, failing those that
// are out of attempts.
func (o *Orchestrator) ReclaimStale(ctx context.Context) error {
	now := o.clock.Now()
	touched, err := o.repo.ReclaimStale(ctx, now.Add(-o.staleAfter), now)
	if err != nil {
		return err
	}

	for _, job := range touched {
		if job.Status == core.JobStatusFailed {
			o.logger.Error("stale job failed terminally", "jobId", job.Id, "attempts", job.Attempts)
			o.notifyTerminal(ctx, job)
		} else {
			o.logger.Warn("stale job reclaimed", "jobId", job.Id, "attempts", job.Attempts)
		}
	}
	return nil
}

// Start polls for due jobs on the given interval until the context is
// cancelled. Each tick reclaims stale work first, then drains the due
// queue. Start blocks; run it in a goroutine alongside other pollers.
func (o *Orchestrator) Start(ctx context.Context, interval time.Duration) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := o.ReclaimStale(ctx); err != nil {
				o.logger.Error("stale reclaim failed", "err", err)
			}
			if _, err := o.RunDueJobs(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				o.logger.Error("run due jobs failed", "err", err)
			}
		}
	}
}

func (o *Orchestrator) notifyTerminal(ctx context.Context, job *core.Job) {
	o.mu.RLock()
	hook := o.terminalHook
	o.mu.RUnlock()
	if hook != nil {
		hook(ctx, job)
	}
}
