package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/knowstack/knowstack/core"
)

// Gateway wraps an Embedder with batching, retries and output validation.
// The indexing pipeline goes through the gateway rather than the raw
// embedder so that provider hiccups surface as either a successful full
// result or a single failed call, never a partial one.
type Gateway struct {
	embedder       Embedder
	batchSize      int
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewGateway creates a Gateway using the config's batch and retry settings.
func NewGateway(embedder Embedder, config *Config) *Gateway {
	if config == nil {
		config = DefaultConfig()
	}
	return &Gateway{
		embedder:       embedder,
		batchSize:      config.BatchSize,
		maxRetries:     config.MaxRetries,
		retryBaseDelay: config.RetryBaseDelay,
		logger:         slog.Default().With("component", "embedding-gateway"),
	}
}

// EmbedAll embeds every text, splitting the input into batches of at most
// the configured size. Batches run sequentially; each gets its own retry
// budget. Returns exactly one L2-normalized vector per input text, or an
// error wrapping core.ErrConsistency if the provider returned a mismatched
// count, or core.ErrTransientProvider if attempts were exhausted.
func (g *Gateway) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var embeddings [][]float32
		err := RetryWithBackoff(ctx, func() error {
			var err error
			embeddings, err = g.embedder.EmbedTexts(ctx, batch)
			return err
		}, g.maxRetries, g.retryBaseDelay)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			g.logger.Error("embedding batch failed", "batchStart", start, "batchSize", len(batch), "err", err)
			return nil, fmt.Errorf("%w: embedding batch failed after %d attempts: %v",
				core.ErrTransientProvider, g.maxRetries, err)
		}

		if len(embeddings) != len(batch) {
			g.logger.Error("embedding count mismatch", "expected", len(batch), "got", len(embeddings))
			return nil, fmt.Errorf("%w: embedding count mismatch: expected %d, got %d",
				core.ErrConsistency, len(batch), len(embeddings))
		}

		for _, embedding := range embeddings {
			vectors = append(vectors, NormalizeVector(embedding))
		}
	}

	return vectors, nil
}

// EmbedQuery embeds a single query text with the same retry policy as
// EmbedAll and returns the normalized vector.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vector, err = g.embedder.EmbedText(ctx, text)
		return err
	}, g.maxRetries, g.retryBaseDelay)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: embedder returned empty vector", core.ErrConsistency)
	}
	return NormalizeVector(vector), nil
}
