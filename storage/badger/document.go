package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocument stores a new document record.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		// Dedupe on the tenant's content hash before writing anything.
		hashKey := documentHashKey(doc.TenantId, doc.ContentHash)
		if _, err := tx.Get(hashKey); err == nil {
			return storage.ErrDuplicateKey
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		now := time.Now().UTC()
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now

		if err := tx.Set(documentKey(doc.TenantId, doc.Id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		if err := tx.Set(hashKey, []byte(doc.Id)); err != nil {
			return err
		}
		timeKey := documentTimeKey(doc.TenantId, doc.CreatedAt, doc.Id)
		if err := tx.Set(timeKey, []byte(doc.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UpdateDocument replaces an existing document record.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := documentKey(doc.TenantId, doc.Id)
		old, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		doc.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}

		// Maintain the hash index if the content changed (reprocess with
		// modified bytes).
		if old.ContentHash != doc.ContentHash {
			if err := tx.Delete(documentHashKey(old.TenantId, old.ContentHash)); err != nil {
				return err
			}
			if err := tx.Set(documentHashKey(doc.TenantId, doc.ContentHash), []byte(doc.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a document by tenant and id.
func (r *DocumentRepository) GetDocument(ctx context.Context, tenantId, documentId string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readDocument(tx, documentKey(tenantId, documentId))
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

// FindDocumentByHash resolves a content hash to the tenant's document.
func (r *DocumentRepository) FindDocumentByHash(ctx context.Context, tenantId, contentHash string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(documentHashKey(tenantId, contentHash))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var documentId string
		if err := item.Value(func(val []byte) error {
			documentId = string(val)
			return nil
		}); err != nil {
			return err
		}

		result, err = r.readDocument(tx, documentKey(tenantId, documentId))
		if err != nil {
			return err
		}
		if result == nil {
			// Dangling index entry; treat as absent.
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListDocuments returns the tenant's documents, newest first.
func (r *DocumentRepository) ListDocuments(ctx context.Context, tenantId string, status core.DocumentStatus, limit int) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := documentTimeTenantPrefix(tenantId)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration needs a seek point past every key under the
		// prefix; 0xFF sorts after any timestamp byte.
		seek := append(append([]byte{}, prefix...), 0xFF)

		for iter.Seek(seek); iter.Valid(); iter.Next() {
			var documentId string
			if err := iter.Item().Value(func(val []byte) error {
				documentId = string(val)
				return nil
			}); err != nil {
				return err
			}

			doc, err := r.readDocument(tx, documentKey(tenantId, documentId))
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}
			if status != "" && doc.Status != status {
				continue
			}
			results = append(results, doc)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)
	return results, err
}

// SetDocumentStatus updates only the status and error fields.
func (r *DocumentRepository) SetDocumentStatus(ctx context.Context, tenantId, documentId string, status core.DocumentStatus, errDetail string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := documentKey(tenantId, documentId)
		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		doc.Status = status
		doc.Error = errDetail
		doc.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readDocument reads and unmarshals a document, returning nil when the key
// doesn't exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}
