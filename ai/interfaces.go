package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in
	// a batch. The returned slice contains embeddings in the same order
	// as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces grounded answers from a question and retrieved
// context. Implementations must be thread-safe for concurrent use.
type Generator interface {
	// GenerateAnswer answers the question using only the provided context
	// snippets. Recent conversation lines may be passed for continuity;
	// they never override the document context.
	// Returns an error when the provider is unreachable or returns no
	// usable text; callers are expected to degrade to an extractive
	// answer.
	GenerateAnswer(ctx context.Context, question string, contextSnippets, conversation []string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the answer generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	Close() error
}
