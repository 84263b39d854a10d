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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - TenantId must not be empty
//   - Filename must not be empty
//   - ContentHash must not be empty
//   - SizeBytes must be positive
//
// NOT validated (populated by the pipeline):
//   - PageCount (0 until extraction runs)
//   - Error (set only on failure)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.TenantId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTenant)
	}
	if doc.Filename == "" {
		return fmt.Errorf("%w: filename cannot be empty", ErrInvalidDocument)
	}
	if doc.ContentHash == "" {
		return fmt.Errorf("%w: content hash cannot be empty", ErrInvalidDocument)
	}
	if doc.SizeBytes <= 0 {
		return fmt.Errorf("%w: size must be positive", ErrInvalidDocument)
	}
	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - TenantId and DocumentId must not be empty
//   - Content must not be empty
//   - Index must not be negative
//   - Page must be at least 1
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.TenantId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyTenant)
	}
	if chunk.DocumentId == "" {
		return fmt.Errorf("%w: document id cannot be empty", ErrInvalidChunk)
	}
	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	if chunk.Index < 0 {
		return fmt.Errorf("%w: index cannot be negative", ErrInvalidChunk)
	}
	if chunk.Page < 1 {
		return fmt.Errorf("%w: page must be at least 1", ErrInvalidChunk)
	}
	return nil
}

// ValidateJob validates a Job, including its payload against the schema for
// the job's type. Enqueue paths must call this so that malformed payloads
// are rejected before they are persisted.
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}
	if job.TenantId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyTenant)
	}
	if job.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidJob)
	}
	if job.Attempts < 0 || job.Attempts > job.MaxAttempts {
		return fmt.Errorf("%w: attempts out of range", ErrInvalidJob)
	}
	return ValidatePayload(job.Type, job.Payload)
}

// ValidatePayload checks a payload against the schema of its job type.
func ValidatePayload(jobType JobType, payload JobPayload) error {
	switch jobType {
	case JobTypeProcessDocument:
		if payload.DocumentId == "" {
			return fmt.Errorf("%w: %s requires document id", ErrInvalidPayload, jobType)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, jobType)
	}
}

// ValidateMessage validates a Message according to domain rules.
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}
	if msg.TenantId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyTenant)
	}
	if msg.ConversationId == "" {
		return fmt.Errorf("%w: conversation id is required", ErrInvalidMessage)
	}
	if msg.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyContent)
	}
	if msg.Role != MessageRoleUser && msg.Role != MessageRoleAssistant {
		return fmt.Errorf("%w: invalid role %q", ErrInvalidMessage, msg.Role)
	}
	return nil
}
