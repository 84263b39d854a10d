package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// NewID generates a random unique identifier for domain entities.
// Identifiers double as vector-index point ids, which require UUID form.
func NewID() string {
	return uuid.NewString()
}

// HashContent computes a deterministic content hash for dedupe checks.
// Identical bytes always produce identical hashes, so re-uploading a file
// a tenant already owns resolves to the existing document.
func HashContent(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentStatus tracks a document through the processing pipeline.
type DocumentStatus string

const (
	DocumentStatusQueued     DocumentStatus = "queued"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is a tenant-owned file record. Its status is mutated only by the
// job orchestrator; the pipeline never deletes documents.
type Document struct {
	Id          string
	TenantId    string
	Filename    string
	ContentType string
	ContentHash string // blake2b-256 hex of the raw bytes, unique per tenant
	SizeBytes   int64
	PageCount   int
	Status      DocumentStatus
	StorageKey  string // blob store location of the raw bytes
	Error       string // human-readable summary when Status is failed
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is a contiguous slice of a document's extracted text, the unit of
// embedding and citation. Chunk ids double as vector-index point ids.
// Indices within a document are contiguous starting at 0 and are only ever
// replaced as a full set.
type Chunk struct {
	Id         string
	DocumentId string
	TenantId   string
	Index      int
	Page       int
	Section    string // nearest preceding heading, empty when none detected
	Content    string
	CreatedAt  time.Time
}

// JobStatus tracks a job through the orchestrator state machine.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// JobType identifies the payload variant carried by a job.
type JobType string

const (
	// JobTypeProcessDocument runs the extract → chunk → embed → index
	// pipeline for a single document.
	JobTypeProcessDocument JobType = "document_process"
)

// JobPayload is the tagged-union payload of a Job, keyed by the job's Type.
// Only the fields of the matching variant are populated; payloads are
// validated at enqueue time.
type JobPayload struct {
	DocumentId string // JobTypeProcessDocument
}

// Job is a unit of asynchronous work driven by the orchestrator.
//
// Invariants: Attempts never exceeds MaxAttempts; a failed job with
// Attempts == MaxAttempts is terminal and never re-enters the queue;
// NextRunAt is in the future while the job awaits retry.
type Job struct {
	Id          string
	TenantId    string
	Type        JobType
	Payload     JobPayload
	Status      JobStatus
	Error       string
	Attempts    int
	MaxAttempts int
	NextRunAt   time.Time
	CreatedAt   time.Time
	StartedAt   time.Time // zero until first claimed
	FinishedAt  time.Time // zero until done or terminally failed
}

// Terminal reports whether the job can never run again.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}

// CanRetry reports whether another attempt is allowed after a failure.
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is one turn of a tenant's conversation. Assistant messages own the
// citations produced for them.
type Message struct {
	Id             string
	TenantId       string
	ConversationId string
	Role           MessageRole
	Content        string
	CreatedAt      time.Time
}

// Citation attributes part of an assistant message to a chunk's document,
// page and section. Citations are snapshots: the snippet text is kept even
// after the underlying chunk set is replaced by reprocessing.
type Citation struct {
	MessageId    string
	DocumentId   string
	DocumentName string
	Page         int
	Section      string
	Snippet      string
}

// Signal names the retrieval pass that produced a match.
type Signal string

const (
	SignalKeyword Signal = "keyword"
	SignalVector  Signal = "vector"
)

// RetrievedChunk is a chunk selected by the hybrid retriever, annotated with
// its fused score and the signals that matched it.
type RetrievedChunk struct {
	Chunk        *Chunk
	DocumentName string
	Score        float32
	KeywordScore float32
	VectorScore  float32
	Signals      []Signal
}

// MatchedBy reports whether the given signal contributed to this result.
func (r *RetrievedChunk) MatchedBy(signal Signal) bool {
	for _, s := range r.Signals {
		if s == signal {
			return true
		}
	}
	return false
}
