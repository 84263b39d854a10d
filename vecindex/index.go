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


// Package vecindex defines the vector index abstraction used by the
// ingestion pipeline and the hybrid retriever. The production adapter
// lives in vecindex/qdrant; vecindex/memory provides a brute-force
// in-process index for tests.
package vecindex

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned when the index cannot be reached. The
	// retriever treats it as a signal to degrade to keyword-only search.
	ErrUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch is returned when an entry's vector dimension
	// doesn't match the collection.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Entry is one chunk's vector with the payload needed to filter and
// attribute matches. The chunk id doubles as the point id, which makes
// Upsert idempotent per chunk.
type Entry struct {
	ChunkId    string
	TenantId   string
	DocumentId string
	Vector     []float32
}

// QueryRequest is a tenant-scoped nearest-neighbor query. DocumentId is
// optional; when set, only that document's chunks are searched.
type QueryRequest struct {
	TenantId   string
	DocumentId string
	Vector     []float32
	Limit      int
}

// Match is one query hit. Score is cosine similarity, higher is closer.
type Match struct {
	ChunkId    string
	DocumentId string
	Score      float32
}

// Index stores and queries chunk vectors. Implementations must be
// thread-safe.
type Index interface {
	// Upsert writes the entries, replacing any prior vector stored under
	// the same chunk id.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns up to Limit matches for the request, most similar
	// first, never crossing the tenant boundary.
	Query(ctx context.Context, req QueryRequest) ([]Match, error)

	// DeleteDocument removes every vector belonging to the document.
	DeleteDocument(ctx context.Context, tenantId, documentId string) error

	// Ready reports whether the index is reachable and the collection
	// exists.
	Ready(ctx context.Context) error
}
