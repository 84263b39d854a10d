package badger

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
//
// Atomic claiming rides on badger's transaction conflict detection: every
// claimer reads the job record inside a read-write transaction, so when two
// claimers race for the same job exactly one commit succeeds and the other
// gets badger.ErrConflict and rescans.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) *JobRepository {
	return &JobRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *JobRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *JobRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddJob stores a new queued job and indexes it as due.
func (r *JobRepository) AddJob(ctx context.Context, job *core.Job) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		if job.CreatedAt.IsZero() {
			job.CreatedAt = now
		}
		if job.NextRunAt.IsZero() {
			job.NextRunAt = job.CreatedAt
		}
		job.Status = core.JobStatusQueued

		if err := tx.Set(jobKey(job.Id), storage.MarshalJob(job)); err != nil {
			return err
		}
		if err := tx.Set(jobQueueKey(job.NextRunAt, job.Id), []byte(job.Id)); err != nil {
			return err
		}
		if err := tx.Set(jobTenantKey(job.TenantId, job.CreatedAt, job.Id), []byte(job.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UpdateJob replaces an existing job record and maintains the due and
// running indexes to match the new status.
func (r *JobRepository) UpdateJob(ctx context.Context, job *core.Job) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := r.readJob(tx, jobKey(job.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		if err := r.dropStatusIndex(tx, old); err != nil {
			return err
		}
		if err := r.addStatusIndex(tx, job); err != nil {
			return err
		}
		if err := tx.Set(jobKey(job.Id), storage.MarshalJob(job)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetJob retrieves a job by id.
func (r *JobRepository) GetJob(ctx context.Context, jobId string) (*core.Job, error) {
	var result *core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readJob(tx, jobKey(jobId))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListJobs returns the tenant's jobs, newest first.
func (r *JobRepository) ListJobs(ctx context.Context, tenantId string, limit int) ([]*core.Job, error) {
	var results []*core.Job
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := jobTenantPrefixKey(tenantId)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)

		for iter.Seek(seek); iter.Valid(); iter.Next() {
			var jobId string
			if err := iter.Item().Value(func(val []byte) error {
				jobId = string(val)
				return nil
			}); err != nil {
				return err
			}

			job, err := r.readJob(tx, jobKey(jobId))
			if err != nil {
				return err
			}
			if job == nil {
				continue
			}
			results = append(results, job)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)
	return results, err
}

// ClaimNextDue atomically claims the oldest due queued job. When two
// claimers race, the loser's commit fails with badger.ErrConflict and it
// rescans for the next eligible job. Returns storage.ErrNotFound when the
// queue holds nothing due.
func (r *JobRepository) ClaimNextDue(ctx context.Context, now time.Time) (*core.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		claimed, err := r.tryClaim(now)
		if err == badger.ErrConflict {
			// Lost the race for one job; another may still be due.
			continue
		}
		if err != nil {
			return nil, err
		}
		return claimed, nil
	}
}

// tryClaim scans the due index once and attempts to claim the first
// eligible job.
func (r *JobRepository) tryClaim(now time.Time) (*core.Job, error) {
	var claimed *core.Job

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(jobQueuePrefix)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)

		var dueKey []byte
		var jobId string
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if queueKeyDueAt(key).After(now) {
				break
			}

			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				iter.Close()
				return err
			}

			// tx.Get is a tracked read, which is what makes the claim
			// conflict-checked: a concurrent commit to this job key fails
			// our commit below.
			job, err := r.readJob(tx, jobKey(id))
			if err != nil {
				iter.Close()
				return err
			}
			if job == nil || job.Status != core.JobStatusQueued || job.NextRunAt.After(now) {
				// Stale index entry; skip it here, UpdateJob cleans up.
				continue
			}

			dueKey = iter.Item().KeyCopy(nil)
			jobId = id
			claimed = job
			break
		}
		iter.Close()

		if claimed == nil {
			return storage.ErrNotFound
		}

		claimed.Status = core.JobStatusRunning
		claimed.Attempts++
		claimed.StartedAt = now

		if err := tx.Delete(dueKey); err != nil {
			return err
		}
		if err := tx.Set(jobRunningKey(claimed.StartedAt, jobId), []byte(jobId)); err != nil {
			return err
		}
		if err := tx.Set(jobKey(jobId), storage.MarshalJob(claimed)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ReclaimStale re-queues running jobs whose StartedAt is before the cutoff.
// Jobs that are out of attempts go to failed instead. The claim-time
// attempt of the crashed run stays counted, so Attempts never exceeds
// MaxAttempts across reclaims.
func (r *JobRepository) ReclaimStale(ctx context.Context, cutoff, now time.Time) ([]*core.Job, error) {
	var touched []*core.Job

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(jobRunningPrefix)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)

		var staleKeys [][]byte
		var staleIds []string
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if !queueKeyDueAt(key).Before(cutoff) {
				break
			}
			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				iter.Close()
				return err
			}
			staleKeys = append(staleKeys, iter.Item().KeyCopy(nil))
			staleIds = append(staleIds, id)
		}
		iter.Close()

		for i, id := range staleIds {
			if err := tx.Delete(staleKeys[i]); err != nil {
				return err
			}

			job, err := r.readJob(tx, jobKey(id))
			if err != nil {
				return err
			}
			if job == nil || job.Status != core.JobStatusRunning {
				continue
			}

			if job.CanRetry() {
				job.Status = core.JobStatusQueued
				job.NextRunAt = now
				job.StartedAt = time.Time{}
				if err := tx.Set(jobQueueKey(job.NextRunAt, job.Id), []byte(job.Id)); err != nil {
					return err
				}
			} else {
				job.Status = core.JobStatusFailed
				job.Error = "worker lost: claim expired without completion"
				job.FinishedAt = now
			}

			if err := tx.Set(jobKey(job.Id), storage.MarshalJob(job)); err != nil {
				return err
			}
			touched = append(touched, job)
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return touched, nil
}

// dropStatusIndex removes the index entry the job's current status implies.
func (r *JobRepository) dropStatusIndex(tx *badger.Txn, job *core.Job) error {
	switch job.Status {
	case core.JobStatusQueued:
		return tx.Delete(jobQueueKey(job.NextRunAt, job.Id))
	case core.JobStatusRunning:
		return tx.Delete(jobRunningKey(job.StartedAt, job.Id))
	}
	return nil
}

// addStatusIndex writes the index entry the job's new status implies.
func (r *JobRepository) addStatusIndex(tx *badger.Txn, job *core.Job) error {
	switch job.Status {
	case core.JobStatusQueued:
		return tx.Set(jobQueueKey(job.NextRunAt, job.Id), []byte(job.Id))
	case core.JobStatusRunning:
		return tx.Set(jobRunningKey(job.StartedAt, job.Id), []byte(job.Id))
	}
	return nil
}

func (r *JobRepository) readJob(tx *badger.Txn, key []byte) (*core.Job, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var job *core.Job
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}

// queueKeyDueAt extracts the timestamp embedded in a jobq/jobr key.
func queueKeyDueAt(key []byte) time.Time {
	// Layout: prefix (5 bytes, "jobq:" or "jobr:") + 8-byte timestamp.
	if len(key) < 13 {
		return time.Time{}
	}
	micros := binary.BigEndian.Uint64(key[5:13])
	return time.UnixMicro(int64(micros)).UTC()
}
