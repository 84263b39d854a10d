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

// Package ingestion turns uploaded documents into searchable chunks.
//
// The Processor type implements the document_process job handler:
//   - Loading the stored bytes from the blob store
//   - Extracting page text and chunking it
//   - Embedding chunks and writing vectors to the index
//   - Committing the chunk set and flipping the document to ready
//
// Index writes run concurrently through a worker pool. A processing
// failure leaves the document's previous chunk set intact; the job state
// machine decides whether the run is retried or failed.
package ingestion
