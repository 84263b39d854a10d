package badger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/storage"
)

func testJob(tenantId string, nextRunAt time.Time) *core.Job {
	return &core.Job{
		Id:          core.NewID(),
		TenantId:    tenantId,
		Type:        core.JobTypeProcessDocument,
		Payload:     core.JobPayload{DocumentId: core.NewID()},
		Status:      core.JobStatusQueued,
		MaxAttempts: 3,
		NextRunAt:   nextRunAt,
	}
}

func TestJobAddAndGet(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	job := testJob("acme", time.Now().UTC())

	if err := repos.Jobs.AddJob(ctx, job); err != nil {
		t.Fatalf("Failed to add job: %v", err)
	}

	retrieved, err := repos.Jobs.GetJob(ctx, job.Id)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if retrieved.Status != core.JobStatusQueued {
		t.Fatalf("Expected queued, got %s", retrieved.Status)
	}
	if retrieved.Payload.DocumentId != job.Payload.DocumentId {
		t.Fatal("Payload mismatch after round trip")
	}
}

func TestJobClaimNextDue(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	older := testJob("acme", now.Add(-2*time.Minute))
	newer := testJob("acme", now.Add(-1*time.Minute))
	future := testJob("acme", now.Add(10*time.Minute))

	for _, job := range []*core.Job{newer, future, older} {
		if err := repos.Jobs.AddJob(ctx, job); err != nil {
			t.Fatalf("Failed to add job: %v", err)
		}
	}

	claimed, err := repos.Jobs.ClaimNextDue(ctx, now)
	if err != nil {
		t.Fatalf("Failed to claim job: %v", err)
	}
	if claimed.Id != older.Id {
		t.Fatalf("Expected oldest due job %s, got %s", older.Id, claimed.Id)
	}
	if claimed.Status != core.JobStatusRunning {
		t.Fatalf("Expected running, got %s", claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("Expected attempts=1 after claim, got %d", claimed.Attempts)
	}
	if !claimed.StartedAt.Equal(now) {
		t.Fatal("Expected StartedAt set to claim time")
	}

	second, err := repos.Jobs.ClaimNextDue(ctx, now)
	if err != nil {
		t.Fatalf("Failed to claim second job: %v", err)
	}
	if second.Id != newer.Id {
		t.Fatalf("Expected %s, got %s", newer.Id, second.Id)
	}

	// The future job must not be claimable yet.
	if _, err := repos.Jobs.ClaimNextDue(ctx, now); err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound with only future work, got %v", err)
	}

	// But it becomes eligible once the clock passes its due time.
	if _, err := repos.Jobs.ClaimNextDue(ctx, now.Add(11*time.Minute)); err != nil {
		t.Fatalf("Failed to claim future job after due time: %v", err)
	}
}

func TestJobConcurrentClaimSingleWinner(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	job := testJob("acme", now.Add(-time.Minute))
	if err := repos.Jobs.AddJob(ctx, job); err != nil {
		t.Fatalf("Failed to add job: %v", err)
	}

	const claimers = 100
	var wg sync.WaitGroup
	results := make(chan *core.Job, claimers)
	errs := make(chan error, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := repos.Jobs.ClaimNextDue(ctx, now)
			if err != nil {
				errs <- err
				return
			}
			results <- claimed
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	if len(results) != 1 {
		t.Fatalf("Expected exactly 1 winner, got %d", len(results))
	}
	for err := range errs {
		if err != storage.ErrNotFound {
			t.Fatalf("Losers must see ErrNotFound, got %v", err)
		}
	}

	winner := <-results
	if winner.Attempts != 1 {
		t.Fatalf("Expected single attempt increment, got %d", winner.Attempts)
	}

	stored, err := repos.Jobs.GetJob(ctx, job.Id)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}
	if stored.Status != core.JobStatusRunning || stored.Attempts != 1 {
		t.Fatalf("Stored job inconsistent: status=%s attempts=%d", stored.Status, stored.Attempts)
	}
}

func TestJobUpdateMaintainsQueueIndex(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	job := testJob("acme", now.Add(-time.Minute))
	if err := repos.Jobs.AddJob(ctx, job); err != nil {
		t.Fatalf("Failed to add job: %v", err)
	}

	claimed, err := repos.Jobs.ClaimNextDue(ctx, now)
	if err != nil {
		t.Fatalf("Failed to claim job: %v", err)
	}

	// Simulate a failed attempt that is re-queued with backoff.
	claimed.Status = core.JobStatusQueued
	claimed.NextRunAt = now.Add(10 * time.Second)
	claimed.Error = "embedding: provider unavailable"
	if err := repos.Jobs.UpdateJob(ctx, claimed); err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}

	// Not due yet.
	if _, err := repos.Jobs.ClaimNextDue(ctx, now); err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound before backoff elapses, got %v", err)
	}

	reclaimed, err := repos.Jobs.ClaimNextDue(ctx, now.Add(11*time.Second))
	if err != nil {
		t.Fatalf("Failed to claim after backoff: %v", err)
	}
	if reclaimed.Attempts != 2 {
		t.Fatalf("Expected attempts=2 on second claim, got %d", reclaimed.Attempts)
	}

	// Terminal transition clears the running index.
	reclaimed.Status = core.JobStatusDone
	reclaimed.FinishedAt = now.Add(12 * time.Second)
	if err := repos.Jobs.UpdateJob(ctx, reclaimed); err != nil {
		t.Fatalf("Failed to finish job: %v", err)
	}
	if _, err := repos.Jobs.ClaimNextDue(ctx, now.Add(time.Hour)); err != storage.ErrNotFound {
		t.Fatalf("Expected empty queue after completion, got %v", err)
	}
}

func TestJobReclaimStale(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	start := time.Now().UTC().Add(-time.Hour)

	job := testJob("acme", start)
	if err := repos.Jobs.AddJob(ctx, job); err != nil {
		t.Fatalf("Failed to add job: %v", err)
	}

	// Claim and never finish, as a crashed worker would.
	if _, err := repos.Jobs.ClaimNextDue(ctx, start); err != nil {
		t.Fatalf("Failed to claim job: %v", err)
	}

	now := start.Add(30 * time.Minute)
	cutoff := now.Add(-5 * time.Minute)

	touched, err := repos.Jobs.ReclaimStale(ctx, cutoff, now)
	if err != nil {
		t.Fatalf("Failed to reclaim: %v", err)
	}
	if len(touched) != 1 {
		t.Fatalf("Expected 1 reclaimed job, got %d", len(touched))
	}
	if touched[0].Status != core.JobStatusQueued {
		t.Fatalf("Expected re-queued, got %s", touched[0].Status)
	}
	if touched[0].Attempts != 1 {
		t.Fatalf("Reclaim must not change attempts, got %d", touched[0].Attempts)
	}

	// The reclaimed job is immediately claimable again.
	claimed, err := repos.Jobs.ClaimNextDue(ctx, now)
	if err != nil {
		t.Fatalf("Failed to claim reclaimed job: %v", err)
	}
	if claimed.Attempts != 2 {
		t.Fatalf("Expected attempts=2, got %d", claimed.Attempts)
	}

	// A recently started job must not be reclaimed.
	if touched, err := repos.Jobs.ReclaimStale(ctx, now.Add(-5*time.Minute), now); err != nil {
		t.Fatalf("Failed second reclaim: %v", err)
	} else if len(touched) != 0 {
		t.Fatalf("Expected no stale jobs, got %d", len(touched))
	}
}

func TestJobReclaimStaleExhaustedFails(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	start := time.Now().UTC().Add(-time.Hour)

	job := testJob("acme", start)
	job.MaxAttempts = 1
	if err := repos.Jobs.AddJob(ctx, job); err != nil {
		t.Fatalf("Failed to add job: %v", err)
	}
	if _, err := repos.Jobs.ClaimNextDue(ctx, start); err != nil {
		t.Fatalf("Failed to claim job: %v", err)
	}

	now := start.Add(time.Hour)
	touched, err := repos.Jobs.ReclaimStale(ctx, now.Add(-time.Minute), now)
	if err != nil {
		t.Fatalf("Failed to reclaim: %v", err)
	}
	if len(touched) != 1 {
		t.Fatalf("Expected 1 touched job, got %d", len(touched))
	}
	if touched[0].Status != core.JobStatusFailed {
		t.Fatalf("Expected failed for exhausted job, got %s", touched[0].Status)
	}
	if touched[0].FinishedAt.IsZero() {
		t.Fatal("Expected FinishedAt set on terminal failure")
	}
}

func TestJobListByTenant(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		job := testJob("acme", now)
		job.CreatedAt = now.Add(time.Duration(i) * time.Second)
		if err := repos.Jobs.AddJob(ctx, job); err != nil {
			t.Fatalf("Failed to add job: %v", err)
		}
	}
	other := testJob("globex", now)
	if err := repos.Jobs.AddJob(ctx, other); err != nil {
		t.Fatalf("Failed to add job: %v", err)
	}

	jobs, err := repos.Jobs.ListJobs(ctx, "acme", 0)
	if err != nil {
		t.Fatalf("Failed to list jobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("Expected 3 jobs, got %d", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].CreatedAt.After(jobs[i-1].CreatedAt) {
			t.Fatal("Expected newest-first ordering")
		}
	}
}
