package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *ChunkRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// ReplaceDocumentChunks atomically swaps the document's chunk set.
// The old chunks and their id references are deleted and the new set is
// written in a single transaction, so readers never observe a partial
// replacement.
func (r *ChunkRepository) ReplaceDocumentChunks(ctx context.Context, tenantId, documentId string, chunks []*core.Chunk) error {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
		if chunk.TenantId != tenantId || chunk.DocumentId != documentId {
			return core.ErrInvalidChunk
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		// Collect old chunk ids first; deleting during iteration is
		// undefined behavior in badger.
		prefix := chunkDocumentPrefix(tenantId, documentId)
		var oldKeys [][]byte
		var oldIds []string

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			oldKeys = append(oldKeys, iter.Item().KeyCopy(nil))
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				chunk, unmarshalErr = storage.UnmarshalChunk(val)
				return unmarshalErr
			}); err != nil {
				iter.Close()
				return err
			}
			oldIds = append(oldIds, chunk.Id)
		}
		iter.Close()

		for i, key := range oldKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
			if err := tx.Delete(chunkRefKey(oldIds[i])); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		for _, chunk := range chunks {
			if chunk.CreatedAt.IsZero() {
				chunk.CreatedAt = now
			}
			key := chunkKey(tenantId, documentId, chunk.Index)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			if err := tx.Set(chunkRefKey(chunk.Id), key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunk retrieves a single chunk by id, scoped to the tenant.
func (r *ChunkRepository) GetChunk(ctx context.Context, tenantId, chunkId string) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readChunkById(tx, tenantId, chunkId)
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

// GetChunks retrieves multiple chunks by id. Missing chunks and chunks
// owned by other tenants are silently omitted.
func (r *ChunkRepository) GetChunks(ctx context.Context, tenantId string, chunkIds ...string) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunkId := range chunkIds {
			chunk, err := r.readChunkById(tx, tenantId, chunkId)
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// ListChunks returns the tenant's chunks ordered by document and index.
func (r *ChunkRepository) ListChunks(ctx context.Context, tenantId, documentId string, limit int) ([]*core.Chunk, error) {
	prefix := []byte(chunkPrefix + tenantId + ":")
	if documentId != "" {
		prefix = chunkDocumentPrefix(tenantId, documentId)
	}

	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				chunk, unmarshalErr = storage.UnmarshalChunk(val)
				return unmarshalErr
			}); err != nil {
				return err
			}
			results = append(results, chunk)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)
	return results, err
}

// CountDocumentChunks returns the number of chunks stored for a document.
func (r *ChunkRepository) CountDocumentChunks(ctx context.Context, tenantId, documentId string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := chunkDocumentPrefix(tenantId, documentId)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readChunkById resolves a chunk id through the reference index and verifies
// tenant ownership on the loaded record. A chunk belonging to a different
// tenant reads as absent, never as someone else's data.
func (r *ChunkRepository) readChunkById(tx *badger.Txn, tenantId, chunkId string) (*core.Chunk, error) {
	item, err := tx.Get(chunkRefKey(chunkId))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var primaryKey []byte
	if err := item.Value(func(val []byte) error {
		primaryKey = append([]byte{}, val...)
		return nil
	}); err != nil {
		return nil, err
	}

	item, err = tx.Get(primaryKey)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	if err := item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	}); err != nil {
		return nil, err
	}

	if chunk.TenantId != tenantId {
		return nil, nil
	}
	return chunk, nil
}
