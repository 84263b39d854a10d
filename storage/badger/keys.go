package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key layout. Every tenant-scoped key carries the tenant id right after
// the prefix, so prefix iteration never crosses a tenant boundary.
//
//	doc:{tenant}:{docID}                      document record
//	dochash:{tenant}:{hash}                   content hash -> docID
//	doctime:{tenant}:{createdAt}:{docID}      creation-time index
//	chu:{tenant}:{docID}:{index}              chunk record
//	churef:{chunkID}                          chunk id -> primary key
//	job:{jobID}                               job record
//	jobq:{nextRunAt}:{jobID}                  queued jobs ordered by due time
//	jobr:{startedAt}:{jobID}                  running jobs ordered by start time
//	jobt:{tenant}:{createdAt}:{jobID}         per-tenant job index
//	msg:{tenant}:{msgID}                      message record
//	msgc:{tenant}:{convID}:{createdAt}:{msgID} per-conversation time index
//	cit:{msgID}:{seq}                         citations ordered per message
//
// Timestamps are encoded as big-endian uint64 UnixMicro so byte order
// matches chronological order.

const (
	documentPrefix     = "doc:"
	documentHashPrefix = "dochash:"
	documentTimePrefix = "doctime:"
	chunkPrefix        = "chu:"
	chunkRefPrefix     = "churef:"
	jobPrefix          = "job:"
	jobQueuePrefix     = "jobq:"
	jobRunningPrefix   = "jobr:"
	jobTenantPrefix    = "jobt:"
	messagePrefix      = "msg:"
	conversationPrefix = "msgc:"
	citationPrefix     = "cit:"
)

func encodeTime(t time.Time) []byte {
	bs := make([]byte, 8)
	binary.BigEndian.PutUint64(bs, uint64(t.UnixMicro()))
	return bs
}

func documentKey(tenantId, documentId string) []byte {
	return []byte(documentPrefix + tenantId + ":" + documentId)
}

func documentTenantPrefix(tenantId string) []byte {
	return []byte(documentPrefix + tenantId + ":")
}

func documentHashKey(tenantId, hash string) []byte {
	return []byte(documentHashPrefix + tenantId + ":" + hash)
}

func documentTimeKey(tenantId string, createdAt time.Time, documentId string) []byte {
	key := []byte(documentTimePrefix + tenantId + ":")
	key = append(key, encodeTime(createdAt)...)
	return append(key, []byte(":"+documentId)...)
}

func documentTimeTenantPrefix(tenantId string) []byte {
	return []byte(documentTimePrefix + tenantId + ":")
}

func chunkKey(tenantId, documentId string, index int) []byte {
	key := []byte(fmt.Sprintf("%s%s:%s:", chunkPrefix, tenantId, documentId))
	idx := make([]byte, 4)
	binary.BigEndian.PutUint32(idx, uint32(index))
	return append(key, idx...)
}

func chunkDocumentPrefix(tenantId, documentId string) []byte {
	return []byte(chunkPrefix + tenantId + ":" + documentId + ":")
}

func chunkRefKey(chunkId string) []byte {
	return []byte(chunkRefPrefix + chunkId)
}

func jobKey(jobId string) []byte {
	return []byte(jobPrefix + jobId)
}

func jobQueueKey(nextRunAt time.Time, jobId string) []byte {
	key := []byte(jobQueuePrefix)
	key = append(key, encodeTime(nextRunAt)...)
	return append(key, []byte(":"+jobId)...)
}

func jobRunningKey(startedAt time.Time, jobId string) []byte {
	key := []byte(jobRunningPrefix)
	key = append(key, encodeTime(startedAt)...)
	return append(key, []byte(":"+jobId)...)
}

func jobTenantKey(tenantId string, createdAt time.Time, jobId string) []byte {
	key := []byte(jobTenantPrefix + tenantId + ":")
	key = append(key, encodeTime(createdAt)...)
	return append(key, []byte(":"+jobId)...)
}

func jobTenantPrefixKey(tenantId string) []byte {
	return []byte(jobTenantPrefix + tenantId + ":")
}

func messageKey(tenantId, messageId string) []byte {
	return []byte(messagePrefix + tenantId + ":" + messageId)
}

func conversationKey(tenantId, conversationId string, createdAt time.Time, messageId string) []byte {
	key := []byte(conversationPrefix + tenantId + ":" + conversationId + ":")
	key = append(key, encodeTime(createdAt)...)
	return append(key, []byte(":"+messageId)...)
}

func conversationPrefixKey(tenantId, conversationId string) []byte {
	return []byte(conversationPrefix + tenantId + ":" + conversationId + ":")
}

func citationKey(messageId string, seq int) []byte {
	key := []byte(citationPrefix + messageId + ":")
	idx := make([]byte, 4)
	binary.BigEndian.PutUint32(idx, uint32(seq))
	return append(key, idx...)
}

func citationMessagePrefix(messageId string) []byte {
	return []byte(citationPrefix + messageId + ":")
}
