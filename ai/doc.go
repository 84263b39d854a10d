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


// Package ai provides abstractions for the AI services used in KnowStack.
//
// Two interfaces cover everything the pipeline and the retriever need:
//
//   - Embedder: generates vector embeddings from text
//   - Generator: produces grounded answers from retrieved context
//
// AIProvider aggregates both for convenient initialization. Production
// implementations live in ai/openai (any OpenAI-compatible API); ai/mock
// provides deterministic test doubles.
//
// The Gateway type sits between the ingestion pipeline and the raw
// Embedder: it batches inputs, retries transient failures with exponential
// backoff, L2-normalizes the output, and guarantees exactly one vector per
// input text or a single failed call. Pipelines should embed through the
// Gateway, not the Embedder.
//
// Constructors in the implementation packages return interface types to
// keep callers decoupled; mock constructors return concrete types so tests
// can inject behavior and assert call counts.
package ai
