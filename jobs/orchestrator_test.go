package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/storage"
	"github.com/knowstack/knowstack/storage/badger"
)

// fakeClock is a manually-advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestOrchestrator(t *testing.T, opts ...Option) (*Orchestrator, *badger.Repositories, *fakeClock) {
	t.Helper()

	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	clock := newFakeClock()
	opts = append([]Option{WithClock(clock), WithRetryBase(10 * time.Second)}, opts...)
	return NewOrchestrator(repos.Jobs, opts...), repos, clock
}

func TestRetryDelayGrowsExponentially(t *testing.T) {
	base := 10 * time.Second

	for attempt, expected := range map[int]time.Duration{
		1: 10 * time.Second,
		2: 20 * time.Second,
		3: 40 * time.Second,
	} {
		delay := RetryDelay(base, attempt)
		// ±10% jitter around the exponential midpoint.
		assert.InDelta(t, float64(expected), float64(delay), 0.1*float64(expected)+1,
			"attempt %d", attempt)
	}
}

func TestEnqueueValidatesPayload(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := o.Enqueue(ctx, "acme", core.JobTypeProcessDocument, core.JobPayload{})
	assert.ErrorIs(t, err, core.ErrInvalidPayload)

	_, err = o.Enqueue(ctx, "acme", core.JobType("mystery"), core.JobPayload{DocumentId: "d1"})
	assert.ErrorIs(t, err, core.ErrUnknownJobType)

	job, err := o.Enqueue(ctx, "acme", core.JobTypeProcessDocument, core.JobPayload{DocumentId: "d1"})
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusQueued, job.Status)
	assert.Equal(t, DefaultMaxAttempts, job.MaxAttempts)
}

func TestRunDueJobsSuccess(t *testing.T) {
	o, repos, _ := newTestOrchestrator(t)
	ctx := context.Background()

	var handled []string
	o.RegisterHandler(core.JobTypeProcessDocument, func(ctx context.Context, job *core.Job) error {
		handled = append(handled, job.Payload.DocumentId)
		return nil
	})

	job, err := o.Enqueue(ctx, "acme", core.JobTypeProcessDocument, core.JobPayload{DocumentId: "d1"})
	require.NoError(t, err)

	processed, err := o.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"d1"}, handled)

	stored, err := repos.Jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusDone, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.False(t, stored.FinishedAt.IsZero())
}

func TestRunDueJobsRetriesWithBackoff(t *testing.T) {
	o, repos, clock := newTestOrchestrator(t)
	ctx := context.Background()

	attempts := 0
	o.RegisterHandler(core.JobTypeProcessDocument, func(ctx context.Context, job *core.Job) error {
		attempts++
		if attempts < 2 {
			return errors.New("provider blip")
		}
		return nil
	})

	job, err := o.Enqueue(ctx, "acme", core.JobTypeProcessDocument, core.JobPayload{DocumentId: "d1"})
	require.NoError(t, err)

	// First run fails and re-queues with backoff.
	processed, err := o.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	stored, err := repos.Jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusQueued, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Contains(t, stored.Error, "provider blip")
	assert.True(t, stored.NextRunAt.After(clock.Now()))

	// Nothing due until the backoff elapses.
	processed, err = o.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)

	// Max jitter on a 10s base is 11s.
	clock.Advance(12 * time.Second)

	processed, err = o.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	stored, err = repos.Jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusDone, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
}

func TestRunDueJobsTerminalFailure(t *testing.T) {
	var failedJobs []*core.Job
	o, repos, clock := newTestOrchestrator(t,
		WithMaxAttempts(2),
		WithTerminalHook(func(ctx context.Context, job *core.Job) {
			failedJobs = append(failedJobs, job)
		}))
	ctx := context.Background()

	o.RegisterHandler(core.JobTypeProcessDocument, func(ctx context.Context, job *core.Job) error {
		return errors.New("permanent damage")
	})

	job, err := o.Enqueue(ctx, "acme", core.JobTypeProcessDocument, core.JobPayload{DocumentId: "d1"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := o.RunDueJobs(ctx)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	stored, err := repos.Jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
	assert.Contains(t, stored.Error, "permanent damage")

	require.Len(t, failedJobs, 1)
	assert.Equal(t, job.Id, failedJobs[0].Id)

	// A terminal job never runs again.
	clock.Advance(time.Hour)
	processed, err := o.RunDueJobs(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestRunDueJobsNoHandler(t *testing.T) {
	var failedJobs []*core.Job
	o, repos, _ := newTestOrchestrator(t,
		WithTerminalHook(func(ctx context.Context, job *core.Job) {
			failedJobs = append(failedJobs, job)
		}))
	ctx := context.Background()

	job, err := o.Enqueue(ctx, "acme", core.JobTypeProcessDocument, core.JobPayload{DocumentId: "d1"})
	require.NoError(t, err)

	_, err = o.RunDueJobs(ctx)
	require.NoError(t, err)

	stored, err := repos.Jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, stored.Status)
	require.Len(t, failedJobs, 1)
}

func TestReclaimStaleFlowsThroughHook(t *testing.T) {
	var failedJobs []*core.Job
	o, repos, clock := newTestOrchestrator(t,
		WithMaxAttempts(1),
		WithStaleAfter(10*time.Minute),
		WithTerminalHook(func(ctx context.Context, job *core.Job) {
			failedJobs = append(failedJobs, job)
		}))
	ctx := context.Background()

	job, err := o.Enqueue(ctx, "acme", core.JobTypeProcessDocument, core.JobPayload{DocumentId: "d1"})
	require.NoError(t, err)

	// Claim directly, simulating a worker that crashed mid-run.
	_, err = repos.Jobs.ClaimNextDue(ctx, clock.Now())
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	require.NoError(t, o.ReclaimStale(ctx))

	stored, err := repos.Jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusFailed, stored.Status)
	require.Len(t, failedJobs, 1)
	assert.Equal(t, job.Id, failedJobs[0].Id)
}

func TestAttemptsNeverExceedMax(t *testing.T) {
	o, repos, clock := newTestOrchestrator(t, WithMaxAttempts(3))
	ctx := context.Background()

	o.RegisterHandler(core.JobTypeProcessDocument, func(ctx context.Context, job *core.Job) error {
		return errors.New("always fails")
	})

	job, err := o.Enqueue(ctx, "acme", core.JobTypeProcessDocument, core.JobPayload{DocumentId: "d1"})
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		_, err := o.RunDueJobs(ctx)
		require.NoError(t, err)
		clock.Advance(2 * time.Minute)
	}

	stored, err := repos.Jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Attempts)
	assert.Equal(t, core.JobStatusFailed, stored.Status)
}

func TestDeterministicFailuresAreNotRetried(t *testing.T) {
	for name, cause := range map[string]error{
		"extraction":  core.ErrExtraction,
		"consistency": core.ErrConsistency,
	} {
		t.Run(name, func(t *testing.T) {
			var hooked []*core.Job
			o, repos, _ := newTestOrchestrator(t,
				WithTerminalHook(func(ctx context.Context, job *core.Job) {
					hooked = append(hooked, job)
				}))
			ctx := context.Background()

			calls := 0
			o.RegisterHandler(core.JobTypeProcessDocument, func(ctx context.Context, job *core.Job) error {
				calls++
				return fmt.Errorf("parse PDF: %w", cause)
			})

			job, err := o.Enqueue(ctx, "acme", core.JobTypeProcessDocument, core.JobPayload{DocumentId: "d1"})
			require.NoError(t, err)

			processed, err := o.RunDueJobs(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, processed)
			assert.Equal(t, 1, calls)

			stored, err := repos.Jobs.GetJob(ctx, job.Id)
			require.NoError(t, err)
			assert.Equal(t, core.JobStatusFailed, stored.Status)
			assert.Equal(t, stored.MaxAttempts, stored.Attempts)
			assert.Contains(t, stored.Error, "parse PDF")
			assert.Len(t, hooked, 1)
		})
	}
}

func TestRunDueJobsEmptyQueue(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	processed, err := o.RunDueJobs(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}
