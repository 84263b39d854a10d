package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/knowstack/knowstack/vecindex"
)

const (
	payloadTenantId   = "tenant_id"
	payloadDocumentId = "document_id"
)

// Index implements vecindex.Index on a Qdrant collection with cosine
// distance. Chunk ids are used as point ids, so upserts are idempotent.
type Index struct {
	client     *qdrant.Client
	collection string
	vectorSize uint64
	logger     *slog.Logger
}

var _ vecindex.Index = (*Index)(nil)

// Config holds connection and collection settings for the Qdrant adapter.
type Config struct {
	// Host of the Qdrant gRPC endpoint. Default: "localhost"
	Host string

	// Port of the Qdrant gRPC endpoint. Default: 6334
	Port int

	// Collection name. Default: "knowstack_chunks"
	Collection string

	// VectorSize must match the embedding model's output dimension.
	VectorSize uint64
}

// New connects to Qdrant and ensures the collection exists with a cosine
// vector config of the given size.
func New(ctx context.Context, config Config) (*Index, error) {
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 6334
	}
	if config.Collection == "" {
		config.Collection = "knowstack_chunks"
	}
	if config.VectorSize == 0 {
		return nil, fmt.Errorf("vector size must be set")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: config.Host,
		Port: config.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vecindex.ErrUnavailable, err)
	}

	index := &Index{
		client:     client,
		collection: config.Collection,
		vectorSize: config.VectorSize,
		logger:     slog.Default().With("component", "qdrant-index"),
	}
	if err := index.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return index, nil
}

// ensureCollection creates the collection if it doesn't exist yet.
func (i *Index) ensureCollection(ctx context.Context) error {
	collections, err := i.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", vecindex.ErrUnavailable, err)
	}
	for _, name := range collections {
		if name == i.collection {
			return nil
		}
	}

	err = i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: i.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     i.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", i.collection, err)
	}
	i.logger.Info("created vector collection", "collection", i.collection, "vectorSize", i.vectorSize)
	return nil
}

// Upsert writes the entries as points keyed by chunk id.
func (i *Index) Upsert(ctx context.Context, entries []vecindex.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for idx, entry := range entries {
		if uint64(len(entry.Vector)) != i.vectorSize {
			return fmt.Errorf("%w: entry %s has dimension %d, collection expects %d",
				vecindex.ErrDimensionMismatch, entry.ChunkId, len(entry.Vector), i.vectorSize)
		}
		points[idx] = &qdrant.PointStruct{
			Id:      qdrant.NewID(entry.ChunkId),
			Vectors: qdrant.NewVectors(entry.Vector...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				payloadTenantId:   entry.TenantId,
				payloadDocumentId: entry.DocumentId,
			}),
		}
	}

	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Points:         points,
	})
	if err != nil {
		i.logger.Error("upsert failed", "points", len(points), "err", err)
		return fmt.Errorf("%w: %v", vecindex.ErrUnavailable, err)
	}
	return nil
}

// Query runs a tenant-filtered nearest-neighbor search.
func (i *Index) Query(ctx context.Context, req vecindex.QueryRequest) ([]vecindex.Match, error) {
	limit := uint64(req.Limit)

	must := []*qdrant.Condition{
		qdrant.NewMatch(payloadTenantId, req.TenantId),
	}
	if req.DocumentId != "" {
		must = append(must, qdrant.NewMatch(payloadDocumentId, req.DocumentId))
	}

	hits, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(req.Vector...),
		Limit:          &limit,
		Filter:         &qdrant.Filter{Must: must},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		i.logger.Error("query failed", "err", err)
		return nil, fmt.Errorf("%w: %v", vecindex.ErrUnavailable, err)
	}

	matches := make([]vecindex.Match, 0, len(hits))
	for _, hit := range hits {
		payload := hit.GetPayload()
		if payload == nil {
			continue
		}
		match := vecindex.Match{
			ChunkId: hit.GetId().GetUuid(),
			Score:   hit.GetScore(),
		}
		if val, ok := payload[payloadDocumentId]; ok {
			match.DocumentId = val.GetStringValue()
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// DeleteDocument removes every point of a tenant's document.
func (i *Index) DeleteDocument(ctx context.Context, tenantId, documentId string) error {
	_, err := i.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: i.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch(payloadTenantId, tenantId),
						qdrant.NewMatch(payloadDocumentId, documentId),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", vecindex.ErrUnavailable, err)
	}
	return nil
}

// Ready reports whether Qdrant is reachable and the collection exists.
func (i *Index) Ready(ctx context.Context) error {
	collections, err := i.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", vecindex.ErrUnavailable, err)
	}
	for _, name := range collections {
		if name == i.collection {
			return nil
		}
	}
	return fmt.Errorf("%w: collection %s missing", vecindex.ErrUnavailable, i.collection)
}

// Close releases the client connection.
func (i *Index) Close() error {
	return i.client.Close()
}
