package storage

import (
	"context"
	"time"

	"github.com/knowstack/knowstack/core"
)

// Repository provides common operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing document records.
// Every read is scoped to a tenant; cross-tenant access is structurally
// impossible through this interface.
type DocumentRepository interface {
	Repository

	// AddDocument stores a new document record.
	// Returns ErrDuplicateKey if the tenant already owns a document with
	// the same content hash.
	AddDocument(ctx context.Context, doc *core.Document) error

	// UpdateDocument replaces an existing document record.
	// Returns ErrNotFound if the document doesn't exist for the tenant.
	UpdateDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by tenant and id.
	// Returns ErrNotFound if it doesn't exist.
	GetDocument(ctx context.Context, tenantId, documentId string) (*core.Document, error)

	// FindDocumentByHash resolves a content hash to the tenant's existing
	// document, used for upload dedupe.
	// Returns ErrNotFound if no document with that hash exists.
	FindDocumentByHash(ctx context.Context, tenantId, contentHash string) (*core.Document, error)

	// ListDocuments returns the tenant's documents ordered by creation
	// time descending. An empty status matches all statuses.
	ListDocuments(ctx context.Context, tenantId string, status core.DocumentStatus, limit int) ([]*core.Document, error)

	// SetDocumentStatus updates only the status and error fields.
	// Returns ErrNotFound if the document doesn't exist for the tenant.
	SetDocumentStatus(ctx context.Context, tenantId, documentId string, status core.DocumentStatus, errDetail string) error
}

// ChunkRepository provides operations for managing chunk records.
type ChunkRepository interface {
	Repository

	// ReplaceDocumentChunks atomically deletes the document's existing
	// chunk set and stores the new one. Chunk indices must be contiguous
	// starting at 0; partial replacement is never observable.
	ReplaceDocumentChunks(ctx context.Context, tenantId, documentId string, chunks []*core.Chunk) error

	// GetChunk retrieves a single chunk by id, scoped to the tenant.
	// Returns ErrNotFound if the chunk doesn't exist or belongs to a
	// different tenant.
	GetChunk(ctx context.Context, tenantId, chunkId string) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by id, scoped to the tenant.
	// Chunks that don't exist or belong to other tenants are silently
	// omitted (no error for missing chunks).
	GetChunks(ctx context.Context, tenantId string, chunkIds ...string) ([]*core.Chunk, error)

	// ListChunks returns the tenant's chunks ordered by document and
	// index. A non-empty documentId restricts the scan to one document.
	ListChunks(ctx context.Context, tenantId, documentId string, limit int) ([]*core.Chunk, error)

	// CountDocumentChunks returns the number of chunks stored for a
	// document.
	CountDocumentChunks(ctx context.Context, tenantId, documentId string) (int, error)
}

// JobRepository provides operations for the durable job queue.
type JobRepository interface {
	Repository

	// AddJob stores a new queued job. The job must pass core.ValidateJob.
	AddJob(ctx context.Context, job *core.Job) error

	// UpdateJob replaces an existing job record and maintains the due
	// and running indexes. Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.Job) error

	// GetJob retrieves a job by id.
	// Returns ErrNotFound if it doesn't exist.
	GetJob(ctx context.Context, jobId string) (*core.Job, error)

	// ListJobs returns the tenant's jobs ordered by creation time
	// descending.
	ListJobs(ctx context.Context, tenantId string, limit int) ([]*core.Job, error)

	// ClaimNextDue atomically claims the oldest queued job whose
	// NextRunAt is not after now: the job transitions to running, its
	// StartedAt is set to now and Attempts is incremented, all in one
	// conflict-checked transaction, so exactly one concurrent claimer
	// wins. Returns ErrNotFound when no job is eligible.
	ClaimNextDue(ctx context.Context, now time.Time) (*core.Job, error)

	// ReclaimStale re-queues running jobs whose StartedAt is before the
	// cutoff, making crashed work eligible again at now. Jobs that are
	// out of attempts transition to failed instead. Returns every job
	// the call touched.
	ReclaimStale(ctx context.Context, cutoff, now time.Time) ([]*core.Job, error)
}

// MessageRepository provides operations for conversation messages and the
// citations they own.
type MessageRepository interface {
	Repository

	// SaveMessageWithCitations persists a message and its citations in a
	// single transaction. If anything fails, no message and no citation
	// rows are committed.
	SaveMessageWithCitations(ctx context.Context, msg *core.Message, citations []*core.Citation) error

	// GetMessage retrieves a message by tenant and id.
	// Returns ErrNotFound if it doesn't exist.
	GetMessage(ctx context.Context, tenantId, messageId string) (*core.Message, error)

	// ListConversationMessages returns a conversation's messages ordered
	// oldest first. A limit of 0 means no limit; a positive limit keeps
	// the newest messages.
	ListConversationMessages(ctx context.Context, tenantId, conversationId string, limit int) ([]*core.Message, error)

	// GetCitations returns the citations owned by a message, in the
	// order they were persisted.
	GetCitations(ctx context.Context, messageId string) ([]*core.Citation, error)
}
