// Package mock provides test double implementations of the AI service
// interfaces.
//
// MockEmbedder returns deterministic vectors derived from a text hash, so
// retrieval tests are reproducible without an embedding service.
// MockGenerator returns a canned answer. Both support behavior injection
// through function fields and expose call counts for assertions.
package mock
