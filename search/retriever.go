package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/knowstack/knowstack/ai"
	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/storage"
	"github.com/knowstack/knowstack/vecindex"
)

const (
	// DefaultKeywordWeight and DefaultVectorWeight set the fusion between
	// the two retrieval passes. Vector similarity carries more signal for
	// paraphrased questions, so it gets the larger share.
	DefaultKeywordWeight float32 = 0.4
	DefaultVectorWeight  float32 = 0.6

	// DefaultScanLimit caps how many chunks the keyword pass scores.
	DefaultScanLimit = 200

	// vectorCandidates is how many nearest neighbors are pulled from the
	// index before fusion.
	vectorCandidates = 20
)

// Retriever runs hybrid keyword + vector retrieval over a tenant's chunks.
type Retriever struct {
	chunks        storage.ChunkRepository
	documents     storage.DocumentRepository
	gateway       *ai.Gateway
	index         vecindex.Index
	keywordWeight float32
	vectorWeight  float32
	scanLimit     int
	logger        *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithWeights sets the fusion weights for the keyword and vector passes.
// Non-positive values keep the defaults.
func WithWeights(keyword, vector float32) Option {
	return func(r *Retriever) error {
		if keyword > 0 {
			r.keywordWeight = keyword
		}
		if vector > 0 {
			r.vectorWeight = vector
		}
		return nil
	}
}

// WithScanLimit caps the number of chunks the keyword pass scores.
func WithScanLimit(n int) Option {
	return func(r *Retriever) error {
		if n > 0 {
			r.scanLimit = n
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "retriever")
		return nil
	}
}

// NewRetriever creates a retriever.
func NewRetriever(
	chunks storage.ChunkRepository,
	documents storage.DocumentRepository,
	gateway *ai.Gateway,
	index vecindex.Index,
	opts ...Option,
) (*Retriever, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	r := &Retriever{
		chunks:        chunks,
		documents:     documents,
		gateway:       gateway,
		index:         index,
		keywordWeight: DefaultKeywordWeight,
		vectorWeight:  DefaultVectorWeight,
		scanLimit:     DefaultScanLimit,
		logger:        slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// candidate accumulates per-chunk signals before fusion.
type candidate struct {
	chunk        *core.Chunk
	keywordScore float32
	vectorScore  float32
	signals      []core.Signal
}

// Retrieve returns up to k chunks ranked by fused keyword and vector
// relevance. A non-empty documentId restricts retrieval to one document.
// When the vector pass fails, retrieval degrades to keyword-only. When
// nothing scores, the most recent ready document's chunks are returned
// instead; an empty result with a nil error means the tenant has no
// indexable content at all.
func (r *Retriever) Retrieve(ctx context.Context, tenantId, question, documentId string, k int) ([]*core.RetrievedChunk, error) {
	return r.RetrieveWithMonitor(ctx, tenantId, question, documentId, k, nil)
}

// RetrieveWithMonitor runs retrieval with monitoring. The monitor receives
// callbacks at each stage of the retrieval process; nil means no monitoring.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, tenantId, question, documentId string, k int, monitor RetrievalMonitor) ([]*core.RetrievedChunk, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if k <= 0 {
		k = 5
	}

	terms := queryTerms(question)
	monitor.Start(question, terms)
	candidates := make(map[string]*candidate)

	// Keyword pass.
	scanned, err := r.chunks.ListChunks(ctx, tenantId, documentId, r.scanLimit)
	if err != nil {
		return nil, err
	}
	for _, chunk := range scanned {
		score := keywordScore(chunk.Content, terms)
		if score == 0 {
			continue
		}
		candidates[chunk.Id] = &candidate{
			chunk:        chunk,
			keywordScore: score,
			signals:      []core.Signal{core.SignalKeyword},
		}
	}
	monitor.AfterKeywordPass(len(candidates))

	// Vector pass. Any failure here degrades retrieval instead of
	// failing it.
	r.vectorPass(ctx, tenantId, question, documentId, candidates, monitor)

	if len(candidates) == 0 {
		results, err := r.recentChunks(ctx, tenantId, documentId, k)
		if err != nil {
			return nil, err
		}
		monitor.FellBackToRecent(results)
		monitor.Finish(results)
		return results, nil
	}

	results := make([]*core.RetrievedChunk, 0, len(candidates))
	for _, c := range candidates {
		hasVector := false
		for _, s := range c.signals {
			if s == core.SignalVector {
				hasVector = true
			}
		}
		switch {
		case c.keywordScore > 0 && hasVector:
			monitor.HybridHit(c.chunk)
		case c.keywordScore > 0:
			monitor.KeywordHit(c.chunk)
		default:
			monitor.VectorHit(c.chunk)
		}
		results = append(results, &core.RetrievedChunk{
			Chunk:        c.chunk,
			Score:        r.keywordWeight*c.keywordScore + r.vectorWeight*c.vectorScore,
			KeywordScore: c.keywordScore,
			VectorScore:  c.vectorScore,
			Signals:      c.signals,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Chunk.CreatedAt.Equal(b.Chunk.CreatedAt) {
			return a.Chunk.CreatedAt.After(b.Chunk.CreatedAt)
		}
		if a.Chunk.Index != b.Chunk.Index {
			return a.Chunk.Index < b.Chunk.Index
		}
		return a.Chunk.Id < b.Chunk.Id
	})
	if len(results) > k {
		results = results[:k]
	}

	if err := r.attachDocumentNames(ctx, tenantId, results); err != nil {
		return nil, err
	}
	monitor.Finish(results)
	return results, nil
}

// vectorPass embeds the question, queries the index and merges matches
// into the candidate set. Failures are logged; the caller proceeds with
// whatever the keyword pass found.
func (r *Retriever) vectorPass(ctx context.Context, tenantId, question, documentId string, candidates map[string]*candidate, monitor RetrievalMonitor) {
	vector, err := r.gateway.EmbedQuery(ctx, question)
	if err != nil {
		r.logger.Warn("vector pass degraded: query embedding failed", "err", err)
		monitor.VectorPassDegraded("query embedding", err)
		return
	}

	matches, err := r.index.Query(ctx, vecindex.QueryRequest{
		TenantId:   tenantId,
		DocumentId: documentId,
		Vector:     vector,
		Limit:      vectorCandidates,
	})
	if err != nil {
		r.logger.Warn("vector pass degraded: index query failed", "err", err)
		monitor.VectorPassDegraded("index query", err)
		return
	}
	monitor.AfterVectorPass(matches)

	missing := make([]string, 0, len(matches))
	scores := make(map[string]float32, len(matches))
	for _, match := range matches {
		scores[match.ChunkId] = match.Score
		if _, ok := candidates[match.ChunkId]; !ok {
			missing = append(missing, match.ChunkId)
		}
	}

	// Matches already scored by the keyword pass just gain the vector
	// signal; the rest are loaded tenant-scoped, which silently drops
	// stale index entries.
	for id, c := range candidates {
		if score, ok := scores[id]; ok {
			c.vectorScore = score
			c.signals = append(c.signals, core.SignalVector)
		}
	}

	if len(missing) == 0 {
		return
	}
	chunks, err := r.chunks.GetChunks(ctx, tenantId, missing...)
	if err != nil {
		r.logger.Warn("vector pass degraded: chunk lookup failed", "err", err)
		monitor.VectorPassDegraded("chunk lookup", err)
		return
	}
	for _, chunk := range chunks {
		candidates[chunk.Id] = &candidate{
			chunk:       chunk,
			vectorScore: scores[chunk.Id],
			signals:     []core.Signal{core.SignalVector},
		}
	}
}

// recentChunks is the zero-score fallback: the first chunks of the most
// recently added ready documents, in reading order.
func (r *Retriever) recentChunks(ctx context.Context, tenantId, documentId string, k int) ([]*core.RetrievedChunk, error) {
	docs, err := r.documents.ListDocuments(ctx, tenantId, core.DocumentStatusReady, 0)
	if err != nil {
		return nil, err
	}

	results := make([]*core.RetrievedChunk, 0, k)
	for _, doc := range docs {
		if documentId != "" && doc.Id != documentId {
			continue
		}
		chunks, err := r.chunks.ListChunks(ctx, tenantId, doc.Id, k-len(results))
		if err != nil {
			return nil, err
		}
		for _, chunk := range chunks {
			results = append(results, &core.RetrievedChunk{
				Chunk:        chunk,
				DocumentName: doc.Filename,
			})
		}
		if len(results) >= k {
			break
		}
	}

	return results, nil
}

// attachDocumentNames resolves each result's document display name,
// caching lookups per document.
func (r *Retriever) attachDocumentNames(ctx context.Context, tenantId string, results []*core.RetrievedChunk) error {
	names := make(map[string]string)
	for _, result := range results {
		docId := result.Chunk.DocumentId
		name, ok := names[docId]
		if !ok {
			doc, err := r.documents.GetDocument(ctx, tenantId, docId)
			if err != nil {
				return err
			}
			name = doc.Filename
			names[docId] = name
		}
		result.DocumentName = name
	}
	return nil
}
