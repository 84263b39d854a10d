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


package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for persisted rows. Written by hand in the shape musgen
// would produce, so the storage layer depends on stable, reviewable codecs
// rather than a generation step. Field order is part of the on-disk format;
// append new fields, never reorder.

// timeMUS serializes a time.Time as Unix microseconds. The zero time maps
// to 0 in both directions.
type timeMUS struct{}

// TimeMUS is the serializer for timestamps.
var TimeMUS = timeMUS{}

func (s timeMUS) Marshal(v time.Time, bs []byte) int {
	var micros int64
	if !v.IsZero() {
		micros = v.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func (s timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func (s timeMUS) Size(v time.Time) int {
	var micros int64
	if !v.IsZero() {
		micros = v.UnixMicro()
	}
	return varint.Int64.Size(micros)
}

func (s timeMUS) Skip(bs []byte) (int, error) {
	return varint.Int64.Skip(bs)
}

// documentMUS serializes Document rows.
type documentMUS struct{}

// DocumentMUS is the serializer for Document rows.
var DocumentMUS = documentMUS{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = ord.String.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.TenantId, bs[n:])
	n += ord.String.Marshal(v.Filename, bs[n:])
	n += ord.String.Marshal(v.ContentType, bs[n:])
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	n += varint.Int64.Marshal(v.SizeBytes, bs[n:])
	n += varint.Int.Marshal(v.PageCount, bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += ord.String.Marshal(v.StorageKey, bs[n:])
	n += ord.String.Marshal(v.Error, bs[n:])
	n += TimeMUS.Marshal(v.CreatedAt, bs[n:])
	n += TimeMUS.Marshal(v.UpdatedAt, bs[n:])
	return n
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var n1 int
	var str string
	if v.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.TenantId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Filename, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ContentType, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.SizeBytes, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.PageCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if str, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Status = DocumentStatus(str)
	n += n1
	if v.StorageKey, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Error, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.UpdatedAt, n1, err = TimeMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = ord.String.Size(v.Id)
	size += ord.String.Size(v.TenantId)
	size += ord.String.Size(v.Filename)
	size += ord.String.Size(v.ContentType)
	size += ord.String.Size(v.ContentHash)
	size += varint.Int64.Size(v.SizeBytes)
	size += varint.Int.Size(v.PageCount)
	size += ord.String.Size(string(v.Status))
	size += ord.String.Size(v.StorageKey)
	size += ord.String.Size(v.Error)
	size += TimeMUS.Size(v.CreatedAt)
	size += TimeMUS.Size(v.UpdatedAt)
	return size
}

// chunkMUS serializes Chunk rows.
type chunkMUS struct{}

// ChunkMUS is the serializer for Chunk rows.
var ChunkMUS = chunkMUS{}

func (s chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = ord.String.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.DocumentId, bs[n:])
	n += ord.String.Marshal(v.TenantId, bs[n:])
	n += varint.Int.Marshal(v.Index, bs[n:])
	n += varint.Int.Marshal(v.Page, bs[n:])
	n += ord.String.Marshal(v.Section, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += TimeMUS.Marshal(v.CreatedAt, bs[n:])
	return n
}

func (s chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	var n1 int
	if v.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.DocumentId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.TenantId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Index, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Page, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Section, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (s chunkMUS) Size(v Chunk) (size int) {
	size = ord.String.Size(v.Id)
	size += ord.String.Size(v.DocumentId)
	size += ord.String.Size(v.TenantId)
	size += varint.Int.Size(v.Index)
	size += varint.Int.Size(v.Page)
	size += ord.String.Size(v.Section)
	size += ord.String.Size(v.Content)
	size += TimeMUS.Size(v.CreatedAt)
	return size
}

// jobMUS serializes Job rows.
type jobMUS struct{}

// JobMUS is the serializer for Job rows.
var JobMUS = jobMUS{}

func (s jobMUS) Marshal(v Job, bs []byte) (n int) {
	n = ord.String.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.TenantId, bs[n:])
	n += ord.String.Marshal(string(v.Type), bs[n:])
	n += ord.String.Marshal(v.Payload.DocumentId, bs[n:])
	n += ord.String.Marshal(string(v.Status), bs[n:])
	n += ord.String.Marshal(v.Error, bs[n:])
	n += varint.Int.Marshal(v.Attempts, bs[n:])
	n += varint.Int.Marshal(v.MaxAttempts, bs[n:])
	n += TimeMUS.Marshal(v.NextRunAt, bs[n:])
	n += TimeMUS.Marshal(v.CreatedAt, bs[n:])
	n += TimeMUS.Marshal(v.StartedAt, bs[n:])
	n += TimeMUS.Marshal(v.FinishedAt, bs[n:])
	return n
}

func (s jobMUS) Unmarshal(bs []byte) (v Job, n int, err error) {
	var n1 int
	var str string
	if v.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.TenantId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if str, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Type = JobType(str)
	n += n1
	if v.Payload.DocumentId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if str, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Status = JobStatus(str)
	n += n1
	if v.Error, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Attempts, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.MaxAttempts, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.NextRunAt, n1, err = TimeMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.StartedAt, n1, err = TimeMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.FinishedAt, n1, err = TimeMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (s jobMUS) Size(v Job) (size int) {
	size = ord.String.Size(v.Id)
	size += ord.String.Size(v.TenantId)
	size += ord.String.Size(string(v.Type))
	size += ord.String.Size(v.Payload.DocumentId)
	size += ord.String.Size(string(v.Status))
	size += ord.String.Size(v.Error)
	size += varint.Int.Size(v.Attempts)
	size += varint.Int.Size(v.MaxAttempts)
	size += TimeMUS.Size(v.NextRunAt)
	size += TimeMUS.Size(v.CreatedAt)
	size += TimeMUS.Size(v.StartedAt)
	size += TimeMUS.Size(v.FinishedAt)
	return size
}

// messageMUS serializes Message rows.
type messageMUS struct{}

// MessageMUS is the serializer for Message rows.
var MessageMUS = messageMUS{}

func (s messageMUS) Marshal(v Message, bs []byte) (n int) {
	n = ord.String.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.TenantId, bs[n:])
	n += ord.String.Marshal(v.ConversationId, bs[n:])
	n += ord.String.Marshal(string(v.Role), bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += TimeMUS.Marshal(v.CreatedAt, bs[n:])
	return n
}

func (s messageMUS) Unmarshal(bs []byte) (v Message, n int, err error) {
	var n1 int
	var str string
	if v.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.TenantId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.ConversationId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if str, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	v.Role = MessageRole(str)
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (s messageMUS) Size(v Message) (size int) {
	size = ord.String.Size(v.Id)
	size += ord.String.Size(v.TenantId)
	size += ord.String.Size(v.ConversationId)
	size += ord.String.Size(string(v.Role))
	size += ord.String.Size(v.Content)
	size += TimeMUS.Size(v.CreatedAt)
	return size
}

// citationMUS serializes Citation rows.
type citationMUS struct{}

// CitationMUS is the serializer for Citation rows.
var CitationMUS = citationMUS{}

func (s citationMUS) Marshal(v Citation, bs []byte) (n int) {
	n = ord.String.Marshal(v.MessageId, bs)
	n += ord.String.Marshal(v.DocumentId, bs[n:])
	n += ord.String.Marshal(v.DocumentName, bs[n:])
	n += varint.Int.Marshal(v.Page, bs[n:])
	n += ord.String.Marshal(v.Section, bs[n:])
	n += ord.String.Marshal(v.Snippet, bs[n:])
	return n
}

func (s citationMUS) Unmarshal(bs []byte) (v Citation, n int, err error) {
	var n1 int
	if v.MessageId, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.DocumentId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.DocumentName, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Page, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Section, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if v.Snippet, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (s citationMUS) Size(v Citation) (size int) {
	size = ord.String.Size(v.MessageId)
	size += ord.String.Size(v.DocumentId)
	size += ord.String.Size(v.DocumentName)
	size += varint.Int.Size(v.Page)
	size += ord.String.Size(v.Section)
	size += ord.String.Size(v.Snippet)
	return size
}
