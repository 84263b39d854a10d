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

// Package search provides hybrid retrieval and answer grounding.
//
// The Retriever type fuses two ranking passes over a tenant's chunks:
//   - Keyword matching with stop-word-filtered query terms
//   - Vector similarity against the embedding index
//
// Fused scores combine both passes with configurable weights. A vector
// index outage degrades retrieval to keyword-only rather than failing it.
//
// The Assembler type turns retrieved chunks into citations with cleaned,
// length-bounded snippets, and GenerateFallbackAnswer builds an extractive
// answer when no language model is reachable.
package search
