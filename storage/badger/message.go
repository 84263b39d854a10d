package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/storage"
)

// MessageRepository implements storage.MessageRepository for BadgerDB.
type MessageRepository struct {
	backend *Backend
}

var _ storage.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(backend *Backend) *MessageRepository {
	return &MessageRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *MessageRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *MessageRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SaveMessageWithCitations persists a message and its citations in one
// transaction. Citation order is preserved by a sequence suffix on the key.
func (r *MessageRepository) SaveMessageWithCitations(ctx context.Context, msg *core.Message, citations []*core.Citation) error {
	if err := core.ValidateMessage(msg); err != nil {
		return err
	}
	for _, citation := range citations {
		if citation.MessageId != msg.Id {
			return core.ErrInvalidMessage
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}

		if err := tx.Set(messageKey(msg.TenantId, msg.Id), storage.MarshalMessage(msg)); err != nil {
			return err
		}
		if err := tx.Set(conversationKey(msg.TenantId, msg.ConversationId, msg.CreatedAt, msg.Id), []byte(msg.Id)); err != nil {
			return err
		}
		for seq, citation := range citations {
			if err := tx.Set(citationKey(msg.Id, seq), storage.MarshalCitation(citation)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetMessage retrieves a message by tenant and id.
func (r *MessageRepository) GetMessage(ctx context.Context, tenantId, messageId string) (*core.Message, error) {
	var result *core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(messageKey(tenantId, messageId))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalMessage(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// ListConversationMessages returns a conversation's messages oldest first.
// A positive limit keeps the newest messages, still in chronological order.
func (r *MessageRepository) ListConversationMessages(ctx context.Context, tenantId, conversationId string, limit int) ([]*core.Message, error) {
	var results []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := conversationPrefixKey(tenantId, conversationId)

		// Walk the time index newest-first so the limit trims the oldest
		// entries, then load and reverse.
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		iter := tx.NewIterator(opts)

		seek := append(append([]byte{}, prefix...), 0xFF)
		var ids []string
		for iter.Seek(seek); iter.Valid(); iter.Next() {
			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				iter.Close()
				return err
			}
			ids = append(ids, id)
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
		iter.Close()

		for i := len(ids) - 1; i >= 0; i-- {
			item, err := tx.Get(messageKey(tenantId, ids[i]))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}
			if err := item.Value(func(val []byte) error {
				msg, unmarshalErr := storage.UnmarshalMessage(val)
				if unmarshalErr != nil {
					return unmarshalErr
				}
				results = append(results, msg)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}, false)
	return results, err
}

// GetCitations returns the citations owned by a message in persisted order.
func (r *MessageRepository) GetCitations(ctx context.Context, messageId string) ([]*core.Citation, error) {
	var results []*core.Citation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := citationMessagePrefix(messageId)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			var citation *core.Citation
			if err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				citation, unmarshalErr = storage.UnmarshalCitation(val)
				return unmarshalErr
			}); err != nil {
				return err
			}
			results = append(results, citation)
		}
		return nil
	}, false)
	return results, err
}
