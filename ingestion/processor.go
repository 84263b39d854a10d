package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/knowstack/knowstack/ai"
	"github.com/knowstack/knowstack/blob"
	"github.com/knowstack/knowstack/chunker"
	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/extract"
	"github.com/knowstack/knowstack/storage"
	"github.com/knowstack/knowstack/vecindex"
)

// DefaultUpsertBatch is how many vectors are written to the index per
// pooled upsert call.
const DefaultUpsertBatch = 32

// Processor turns an uploaded document into indexed chunks. It is the
// handler behind document_process jobs: it loads the raw bytes from the
// blob store, extracts and chunks the text, embeds the chunks, and
// commits vectors and chunk records. Failures bubble up to the job
// state machine, which retries or fails the job.
type Processor struct {
	documents  storage.DocumentRepository
	chunks     storage.ChunkRepository
	blobs      blob.Store
	gateway    *ai.Gateway
	index      vecindex.Index
	splitter   *chunker.Chunker
	upsertPool *ants.Pool
	batchSize  int
	logger     *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor) error

// WithPoolSize sets the worker pool size for concurrent index writes.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Processor) error {
		if size < 1 {
			size = 1
		}

		if p.upsertPool != nil {
			p.upsertPool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		p.upsertPool = pool
		return nil
	}
}

// WithChunker replaces the default chunker.
func WithChunker(splitter *chunker.Chunker) Option {
	return func(p *Processor) error {
		if splitter != nil {
			p.splitter = splitter
		}
		return nil
	}
}

// WithUpsertBatch sets how many vectors go into each pooled index write.
func WithUpsertBatch(n int) Option {
	return func(p *Processor) error {
		if n > 0 {
			p.batchSize = n
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewProcessor creates a document processor.
func NewProcessor(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	blobs blob.Store,
	gateway *ai.Gateway,
	index vecindex.Index,
	opts ...Option,
) (*Processor, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	splitter, err := chunker.New()
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Processor{
		documents:  documents,
		chunks:     chunks,
		blobs:      blobs,
		gateway:    gateway,
		index:      index,
		splitter:   splitter,
		upsertPool: pool,
		batchSize:  DefaultUpsertBatch,
		logger:     slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Process runs the full pipeline for one document_process job. Each run
// starts from the stored bytes, so a retried job rebuilds the document's
// chunks and vectors from scratch.
func (p *Processor) Process(ctx context.Context, job *core.Job) error {
	tenantId := job.TenantId
	documentId := job.Payload.DocumentId

	doc, err := p.documents.GetDocument(ctx, tenantId, documentId)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", documentId, err)
	}

	if err := p.documents.SetDocumentStatus(ctx, tenantId, documentId, core.DocumentStatusProcessing, ""); err != nil {
		return err
	}

	data, err := p.blobs.Get(ctx, doc.StorageKey)
	if err != nil {
		return fmt.Errorf("reading stored bytes for %s: %w", documentId, err)
	}

	pages, err := extract.Extract(ctx, data, doc.ContentType)
	if err != nil {
		return err
	}

	pieces := p.splitter.Split(pages)
	if len(pieces) == 0 {
		return fmt.Errorf("%w: %s", ErrNoContent, doc.Filename)
	}

	now := time.Now().UTC()
	chunks := make([]*core.Chunk, len(pieces))
	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &core.Chunk{
			Id:         core.NewID(),
			DocumentId: documentId,
			TenantId:   tenantId,
			Index:      i,
			Page:       piece.Page,
			Section:    piece.Section,
			Content:    piece.Content,
			CreatedAt:  now,
		}
		texts[i] = piece.Content
	}

	vectors, err := p.gateway.EmbedAll(ctx, texts)
	if err != nil {
		return err
	}

	// Chunk ids change on every run, so drop the previous generation of
	// vectors before writing the new one.
	if err := p.index.DeleteDocument(ctx, tenantId, documentId); err != nil {
		return err
	}

	entries := make([]vecindex.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = vecindex.Entry{
			ChunkId:    chunk.Id,
			TenantId:   tenantId,
			DocumentId: documentId,
			Vector:     vectors[i],
		}
	}
	if err := p.upsertEntries(ctx, entries); err != nil {
		return err
	}

	if err := p.chunks.ReplaceDocumentChunks(ctx, tenantId, documentId, chunks); err != nil {
		return err
	}

	doc.PageCount = len(pages)
	doc.Status = core.DocumentStatusReady
	doc.Error = ""
	if err := p.documents.UpdateDocument(ctx, doc); err != nil {
		return err
	}

	p.logger.Info("document processed",
		"tenant", tenantId, "documentId", documentId,
		"pages", len(pages), "chunks", len(chunks))
	return nil
}

// HandleTerminalFailure marks the document failed once its job is out of
// attempts. Wire it as the orchestrator's terminal hook.
func (p *Processor) HandleTerminalFailure(ctx context.Context, job *core.Job) {
	if job.Type != core.JobTypeProcessDocument {
		return
	}

	err := p.documents.SetDocumentStatus(ctx, job.TenantId, job.Payload.DocumentId,
		core.DocumentStatusFailed, job.Error)
	if err != nil {
		p.logger.Error("error marking document failed",
			"documentId", job.Payload.DocumentId, "err", err)
		return
	}

	p.logger.Warn("document failed",
		"tenant", job.TenantId, "documentId", job.Payload.DocumentId, "err", job.Error)
}

// upsertEntries writes the entries in batches through the worker pool and
// returns the first batch error, if any.
func (p *Processor) upsertEntries(ctx context.Context, entries []vecindex.Entry) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for start := 0; start < len(entries); start += p.batchSize {
		end := start + p.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		wg.Add(1)
		submitErr := p.upsertPool.Submit(func() {
			defer wg.Done()
			if err := p.index.Upsert(ctx, batch); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return submitErr
		}
	}

	wg.Wait()
	return firstErr
}

// Release releases the worker pool.
// The processor should not be used after calling Release.
func (p *Processor) Release() {
	if p.upsertPool != nil {
		p.upsertPool.Release()
	}
}
