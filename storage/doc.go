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


// Package storage defines the repository interfaces the pipeline consumes
// and the binary serialization used by their implementations.
//
// The relational store is the single source of truth for Document, Chunk,
// Job, Message and Citation rows. The pipeline only ever talks to the
// narrow interfaces in this package; the concrete backend lives in
// storage/badger and can be swapped without touching the core.
//
// # Tenant isolation
//
// Every read operation takes an explicit tenant identifier and every key in
// the backend embeds it, so a query can structurally never observe another
// tenant's rows. There is no ambient "current tenant" anywhere in the
// module.
//
// # Atomicity requirements
//
// Three operations carry special transactional contracts that the job
// orchestrator and the citation assembler rely on:
//
//   - JobRepository.ClaimNextDue: exactly one concurrent claimer wins.
//   - ChunkRepository.ReplaceDocumentChunks: a document's chunk set is
//     swapped wholesale, never partially.
//   - MessageRepository.SaveMessageWithCitations: a message and its
//     citations commit together or not at all.
package storage
