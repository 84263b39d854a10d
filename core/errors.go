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

import "errors"

// Pipeline error taxonomy. Callers classify failures by errors.Is against
// these sentinels; detail is carried by wrapping.
var (
	// ErrExtraction indicates an unreadable or unsupported file.
	// Terminal: extraction failures are never retried.
	ErrExtraction = errors.New("extraction failed")

	// ErrTransientProvider indicates a timeout or rate limit from an
	// external provider (embedding, generation, vector index).
	// Retried with backoff up to a bound.
	ErrTransientProvider = errors.New("transient provider error")

	// ErrCapacity indicates an upload or batch exceeding configured
	// limits. Rejected immediately, never retried.
	ErrCapacity = errors.New("capacity exceeded")

	// ErrConsistency indicates a chunk/vector count mismatch after
	// embedding. Terminal: the document must be fully reprocessed.
	ErrConsistency = errors.New("consistency violation")
)

// Domain validation errors.
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidJob indicates a Job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrEmptyTenant indicates a missing tenant identifier.
	ErrEmptyTenant = errors.New("tenant id cannot be empty")

	// ErrEmptyContent indicates an empty content field.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrUnknownJobType indicates a job type without a payload schema.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrInvalidPayload indicates a job payload missing required fields
	// for its type.
	ErrInvalidPayload = errors.New("invalid job payload")
)
