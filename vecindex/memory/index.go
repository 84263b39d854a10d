package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/knowstack/knowstack/vecindex"
)

// Index is an in-process brute-force cosine index. It exists for tests and
// small single-node setups; behavior matches the qdrant adapter's contract.
type Index struct {
	mu      sync.RWMutex
	entries map[string]vecindex.Entry

	// FailWith, when set, makes every call return that error. Tests use
	// it to simulate an unreachable index.
	FailWith error
}

var _ vecindex.Index = (*Index)(nil)

// New creates an empty in-memory index.
func New() *Index {
	return &Index{entries: make(map[string]vecindex.Entry)}
}

// Upsert stores the entries keyed by chunk id.
func (i *Index) Upsert(ctx context.Context, entries []vecindex.Entry) error {
	if i.FailWith != nil {
		return i.FailWith
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for _, entry := range entries {
		i.entries[entry.ChunkId] = entry
	}
	return nil
}

// Query scans every entry of the tenant and returns the top matches by
// cosine similarity.
func (i *Index) Query(ctx context.Context, req vecindex.QueryRequest) ([]vecindex.Match, error) {
	if i.FailWith != nil {
		return nil, i.FailWith
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	var matches []vecindex.Match
	for _, entry := range i.entries {
		if entry.TenantId != req.TenantId {
			continue
		}
		if req.DocumentId != "" && entry.DocumentId != req.DocumentId {
			continue
		}
		matches = append(matches, vecindex.Match{
			ChunkId:    entry.ChunkId,
			DocumentId: entry.DocumentId,
			Score:      cosine(req.Vector, entry.Vector),
		})
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		return matches[a].ChunkId < matches[b].ChunkId
	})
	if req.Limit > 0 && len(matches) > req.Limit {
		matches = matches[:req.Limit]
	}
	return matches, nil
}

// DeleteDocument removes every entry of a tenant's document.
func (i *Index) DeleteDocument(ctx context.Context, tenantId, documentId string) error {
	if i.FailWith != nil {
		return i.FailWith
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for id, entry := range i.entries {
		if entry.TenantId == tenantId && entry.DocumentId == documentId {
			delete(i.entries, id)
		}
	}
	return nil
}

// Ready reports the injected failure, if any.
func (i *Index) Ready(ctx context.Context) error {
	return i.FailWith
}

// Len returns the number of stored entries.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for idx := range a {
		dot += float64(a[idx]) * float64(b[idx])
		normA += float64(a[idx]) * float64(a[idx])
		normB += float64(b[idx]) * float64(b[idx])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
