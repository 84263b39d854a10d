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


// Package blob stores the raw uploaded bytes of documents. The pipeline
// re-reads them on every processing attempt, so a document can be
// reprocessed long after upload.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no blob exists under a key.
var ErrNotFound = errors.New("blob not found")

// Store persists raw document bytes under opaque keys. Keys are scoped per
// tenant by construction; callers never compose keys themselves.
type Store interface {
	// Put stores the content and returns the key it can be read back
	// with. The filename is sanitized and kept in the key so operators
	// can recognize files on disk.
	Put(ctx context.Context, tenantId, documentId, filename string, content []byte) (string, error)

	// Get reads the content stored under a key.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the content stored under a key. Deleting a missing
	// key is not an error.
	Delete(ctx context.Context, key string) error
}
