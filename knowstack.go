// Copyright 2026 KnowStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package knowstack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/knowstack/knowstack/ai"
	"github.com/knowstack/knowstack/ai/openai"
	"github.com/knowstack/knowstack/blob"
	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/extract"
	"github.com/knowstack/knowstack/ingestion"
	"github.com/knowstack/knowstack/jobs"
	"github.com/knowstack/knowstack/search"
	"github.com/knowstack/knowstack/storage"
	"github.com/knowstack/knowstack/storage/badger"
	"github.com/knowstack/knowstack/vecindex"
	"github.com/knowstack/knowstack/vecindex/memory"
)

// DefaultMaxUploadBytes caps a single upload at 25 MiB.
const DefaultMaxUploadBytes = 25 << 20

// conversationContextTurns is how many recent messages feed the prompt.
const conversationContextTurns = 4

var allowedContentTypes = map[string]bool{
	extract.ContentTypePlain: true,
	extract.ContentTypePDF:   true,
	extract.ContentTypeDOCX:  true,
}

// Database wires the full pipeline together: repositories, blob store,
// embedding gateway, vector index, job orchestration and retrieval.
type Database struct {
	repos          *badger.Repositories
	blobs          blob.Store
	provider       ai.AIProvider
	gateway        *ai.Gateway
	index          vecindex.Index
	processor      *ingestion.Processor
	orchestrator   *jobs.Orchestrator
	retriever      *search.Retriever
	assembler      *search.Assembler
	maxUploadBytes int64
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig       *ai.Config
	provider       ai.AIProvider
	index          vecindex.Index
	blobs          blob.Store
	maxUploadBytes int64
	jobOptions     []jobs.Option
	searchOptions  []search.Option
	ingestOptions  []ingestion.Option
}

// WithAIConfig sets the embedding and generation provider configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithAIProvider overrides the AI provider entirely. Tests use this to run
// against the deterministic mock provider.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		if provider != nil {
			o.provider = provider
		}
	}
}

// WithVectorIndex overrides the vector index. The default is an in-process
// index; production deployments pass a qdrant-backed one.
func WithVectorIndex(index vecindex.Index) DatabaseOption {
	return func(o *databaseOptions) {
		if index != nil {
			o.index = index
		}
	}
}

// WithBlobStore overrides the raw upload store. The default stores blobs
// under the data directory.
func WithBlobStore(store blob.Store) DatabaseOption {
	return func(o *databaseOptions) {
		if store != nil {
			o.blobs = store
		}
	}
}

// WithMaxUploadBytes sets the upload size cap.
func WithMaxUploadBytes(n int64) DatabaseOption {
	return func(o *databaseOptions) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}

// WithJobOptions passes options through to the job orchestrator.
func WithJobOptions(opts ...jobs.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.jobOptions = append(o.jobOptions, opts...)
	}
}

// WithSearchOptions passes options through to the retriever.
func WithSearchOptions(opts ...search.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.searchOptions = append(o.searchOptions, opts...)
	}
}

// WithIngestionOptions passes options through to the document processor.
func WithIngestionOptions(opts ...ingestion.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.ingestOptions = append(o.ingestOptions, opts...)
	}
}

// NewDatabase opens (or creates) a knowledge base under dataDir.
func NewDatabase(dataDir string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig:       ai.DefaultConfig(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(options)
	}

	repos, err := badger.OpenRepositories(filepath.Join(dataDir, "db"))
	if err != nil {
		return nil, err
	}

	blobs := options.blobs
	if blobs == nil {
		blobs, err = blob.NewFilesystemStore(filepath.Join(dataDir, "blobs"))
		if err != nil {
			repos.Close()
			return nil, err
		}
	}

	index := options.index
	if index == nil {
		index = memory.New()
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			repos.Close()
			return nil, err
		}
	}

	return assemble(repos, blobs, index, provider, options)
}

// assemble builds the processing and retrieval components on top of the
// opened stores.
func assemble(repos *badger.Repositories, blobs blob.Store, index vecindex.Index, provider ai.AIProvider, options *databaseOptions) (*Database, error) {
	gateway := ai.NewGateway(provider.Embedder(), options.aiConfig)

	processor, err := ingestion.NewProcessor(repos.Documents, repos.Chunks, blobs, gateway, index, options.ingestOptions...)
	if err != nil {
		provider.Close()
		repos.Close()
		return nil, err
	}

	jobOptions := append([]jobs.Option{jobs.WithTerminalHook(processor.HandleTerminalFailure)}, options.jobOptions...)
	orchestrator := jobs.NewOrchestrator(repos.Jobs, jobOptions...)
	orchestrator.RegisterHandler(core.JobTypeProcessDocument, processor.Process)

	retriever, err := search.NewRetriever(repos.Chunks, repos.Documents, gateway, index, options.searchOptions...)
	if err != nil {
		processor.Release()
		provider.Close()
		repos.Close()
		return nil, err
	}

	return &Database{
		repos:          repos,
		blobs:          blobs,
		provider:       provider,
		gateway:        gateway,
		index:          index,
		processor:      processor,
		orchestrator:   orchestrator,
		retriever:      retriever,
		assembler:      search.NewAssembler(),
		maxUploadBytes: options.maxUploadBytes,
		logger:         slog.Default().With("component", "knowstack"),
	}, nil
}

// Close releases the worker pool, the AI provider and the storage backend.
func (db *Database) Close() error {
	db.processor.Release()
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	return db.repos.Close()
}

// UploadDocument stores the raw bytes and queues processing. Re-uploading
// bytes the tenant already owns returns the existing document without
// enqueueing a second job.
func (db *Database) UploadDocument(ctx context.Context, tenantId, filename, contentType string, data []byte) (*core.Document, error) {
	if tenantId == "" {
		return nil, core.ErrEmptyTenant
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: upload is empty", core.ErrEmptyContent)
	}
	if int64(len(data)) > db.maxUploadBytes {
		return nil, fmt.Errorf("%w: upload of %d bytes exceeds the %d byte limit",
			core.ErrCapacity, len(data), db.maxUploadBytes)
	}
	if !allowedContentTypes[contentType] {
		return nil, fmt.Errorf("%w: unsupported content type %q", core.ErrInvalidDocument, contentType)
	}

	hash := core.HashContent(data)
	existing, err := db.repos.Documents.FindDocumentByHash(ctx, tenantId, hash)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		db.logger.Info("duplicate upload", "tenant", tenantId, "documentId", existing.Id)
		return existing, nil
	}

	doc := &core.Document{
		Id:          core.NewID(),
		TenantId:    tenantId,
		Filename:    filename,
		ContentType: contentType,
		ContentHash: hash,
		SizeBytes:   int64(len(data)),
		Status:      core.DocumentStatusQueued,
	}

	key, err := db.blobs.Put(ctx, tenantId, doc.Id, filename, data)
	if err != nil {
		return nil, err
	}
	doc.StorageKey = key

	if err := db.repos.Documents.AddDocument(ctx, doc); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Lost a concurrent upload race; the winner's document is the
			// canonical one.
			db.blobs.Delete(ctx, key)
			return db.repos.Documents.FindDocumentByHash(ctx, tenantId, hash)
		}
		return nil, err
	}

	if _, err := db.orchestrator.Enqueue(ctx, tenantId, core.JobTypeProcessDocument, core.JobPayload{DocumentId: doc.Id}); err != nil {
		return nil, err
	}

	db.logger.Info("document uploaded",
		"tenant", tenantId, "documentId", doc.Id, "filename", filename, "bytes", len(data))
	return doc, nil
}

// ReprocessDocument re-queues an existing document for processing. Its
// chunk set and vectors are rebuilt; citations issued against the old
// chunks remain valid snapshots.
func (db *Database) ReprocessDocument(ctx context.Context, tenantId, documentId string) (*core.Job, error) {
	doc, err := db.repos.Documents.GetDocument(ctx, tenantId, documentId)
	if err != nil {
		return nil, err
	}

	if err := db.repos.Documents.SetDocumentStatus(ctx, tenantId, doc.Id, core.DocumentStatusQueued, ""); err != nil {
		return nil, err
	}

	return db.orchestrator.Enqueue(ctx, tenantId, core.JobTypeProcessDocument, core.JobPayload{DocumentId: doc.Id})
}

// RunDueJobs claims and runs every currently-due job once.
func (db *Database) RunDueJobs(ctx context.Context) (int, error) {
	return db.orchestrator.RunDueJobs(ctx)
}

// StartWorker polls for due jobs until the context is cancelled.
func (db *Database) StartWorker(ctx context.Context, interval time.Duration) error {
	return db.orchestrator.Start(ctx, interval)
}

// Retrieve runs hybrid retrieval over the tenant's chunks.
func (db *Database) Retrieve(ctx context.Context, tenantId, question, documentId string, k int) ([]*core.RetrievedChunk, error) {
	if tenantId == "" {
		return nil, core.ErrEmptyTenant
	}
	return db.retriever.Retrieve(ctx, tenantId, question, documentId, k)
}

// Answer is the result of Ask: the assistant's reply with the citations
// backing it, plus the conversation the exchange was persisted under.
type Answer struct {
	ConversationId string
	MessageId      string
	Text           string
	Citations      []*core.Citation
}

// Ask retrieves context for the question, generates a grounded answer and
// persists both sides of the exchange. A generation failure degrades to an
// extractive answer built from the retrieved snippets; both messages and
// the citations commit atomically.
func (db *Database) Ask(ctx context.Context, tenantId, conversationId, question, documentId string) (*Answer, error) {
	if tenantId == "" {
		return nil, core.ErrEmptyTenant
	}
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", core.ErrEmptyContent)
	}
	if conversationId == "" {
		conversationId = core.NewID()
	}

	conversation, err := db.conversationContext(ctx, tenantId, conversationId)
	if err != nil {
		return nil, err
	}

	userMsg := &core.Message{
		Id:             core.NewID(),
		TenantId:       tenantId,
		ConversationId: conversationId,
		Role:           core.MessageRoleUser,
		Content:        question,
	}
	if err := db.repos.Messages.SaveMessageWithCitations(ctx, userMsg, nil); err != nil {
		return nil, err
	}

	retrieved, err := db.retriever.Retrieve(ctx, tenantId, question, documentId, 5)
	if err != nil {
		return nil, err
	}

	assistantId := core.NewID()
	var text string
	var citations []*core.Citation

	if len(retrieved) == 0 {
		text = "I could not find enough processed content in your documents yet. " +
			"Please upload and process a document first.\n\nWhat would you like to do next?"
	} else {
		citations = db.assembler.Assemble(assistantId, retrieved)
		snippets := make([]string, len(citations))
		for i, citation := range citations {
			snippets[i] = citation.Snippet
		}
		text = db.generateAnswer(ctx, question, snippets, conversation)
	}

	assistantMsg := &core.Message{
		Id:             assistantId,
		TenantId:       tenantId,
		ConversationId: conversationId,
		Role:           core.MessageRoleAssistant,
		Content:        text,
	}
	if err := db.repos.Messages.SaveMessageWithCitations(ctx, assistantMsg, citations); err != nil {
		return nil, err
	}

	return &Answer{
		ConversationId: conversationId,
		MessageId:      assistantId,
		Text:           text,
		Citations:      citations,
	}, nil
}

// generateAnswer asks the provider and falls back to an extractive answer
// when generation fails, so Ask never surfaces a provider outage.
func (db *Database) generateAnswer(ctx context.Context, question string, snippets, conversation []string) string {
	answer, err := db.provider.Generator().GenerateAnswer(ctx, question, snippets, conversation)
	if err != nil {
		db.logger.Warn("answer generation degraded to extractive fallback", "err", err)
		return search.GenerateFallbackAnswer(question, snippets, conversation)
	}
	return search.EnsureConversationFinish(answer)
}

// conversationContext formats the newest messages of the conversation for
// prompt building, oldest first.
func (db *Database) conversationContext(ctx context.Context, tenantId, conversationId string) ([]string, error) {
	messages, err := db.repos.Messages.ListConversationMessages(ctx, tenantId, conversationId, conversationContextTurns)
	if err != nil {
		return nil, err
	}

	lines := make([]string, len(messages))
	for i, msg := range messages {
		lines[i] = string(msg.Role) + ": " + msg.Content
	}
	return lines, nil
}

// GetDocument returns a tenant's document by id.
func (db *Database) GetDocument(ctx context.Context, tenantId, documentId string) (*core.Document, error) {
	return db.repos.Documents.GetDocument(ctx, tenantId, documentId)
}

// ListDocuments returns the tenant's documents, newest first. An empty
// status matches all statuses.
func (db *Database) ListDocuments(ctx context.Context, tenantId string, status core.DocumentStatus, limit int) ([]*core.Document, error) {
	return db.repos.Documents.ListDocuments(ctx, tenantId, status, limit)
}

// GetJob returns a job by id.
func (db *Database) GetJob(ctx context.Context, jobId string) (*core.Job, error) {
	return db.repos.Jobs.GetJob(ctx, jobId)
}

// ListJobs returns the tenant's jobs, newest first.
func (db *Database) ListJobs(ctx context.Context, tenantId string, limit int) ([]*core.Job, error) {
	return db.repos.Jobs.ListJobs(ctx, tenantId, limit)
}

// GetCitations returns the citations backing a message.
func (db *Database) GetCitations(ctx context.Context, messageId string) ([]*core.Citation, error) {
	return db.repos.Messages.GetCitations(ctx, messageId)
}

// DocumentRepository exposes the underlying document repository.
func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.repos.Documents
}

// ChunkRepository exposes the underlying chunk repository.
func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.repos.Chunks
}

// JobRepository exposes the underlying job repository.
func (db *Database) JobRepository() storage.JobRepository {
	return db.repos.Jobs
}

// MessageRepository exposes the underlying message repository.
func (db *Database) MessageRepository() storage.MessageRepository {
	return db.repos.Messages
}
