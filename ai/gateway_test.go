package ai_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowstack/knowstack/ai"
	"github.com/knowstack/knowstack/ai/mock"
	"github.com/knowstack/knowstack/core"
)

func gatewayConfig(batchSize int) *ai.Config {
	return ai.NewConfig(
		ai.WithBatchSize(batchSize),
		ai.WithRetry(3, time.Millisecond),
	)
}

func TestGatewayEmbedAllBatches(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	var batchSizes []int
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		batchSizes = append(batchSizes, len(texts))
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{3, 4}
		}
		return vectors, nil
	}

	gateway := ai.NewGateway(embedder, gatewayConfig(4))

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	vectors, err := gateway.EmbedAll(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 10)
	assert.Equal(t, []int{4, 4, 2}, batchSizes)

	// Vectors come back L2-normalized.
	for _, v := range vectors {
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	}
}

func TestGatewayRetriesTransientFailures(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	failures := 2
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("provider unavailable")
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0}
		}
		return vectors, nil
	}

	gateway := ai.NewGateway(embedder, gatewayConfig(64))

	vectors, err := gateway.EmbedAll(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Zero(t, failures)
}

func TestGatewayExhaustedRetries(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("provider down")
	}

	gateway := ai.NewGateway(embedder, gatewayConfig(64))

	_, err := gateway.EmbedAll(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, core.ErrTransientProvider)
}

func TestGatewayCountMismatchIsConsistencyError(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		// One vector short.
		vectors := make([][]float32, len(texts)-1)
		for i := range vectors {
			vectors[i] = []float32{1, 0}
		}
		return vectors, nil
	}

	gateway := ai.NewGateway(embedder, gatewayConfig(64))

	_, err := gateway.EmbedAll(context.Background(), []string{"a", "b", "c"})
	assert.ErrorIs(t, err, core.ErrConsistency)
}

func TestGatewayEmptyInput(t *testing.T) {
	gateway := ai.NewGateway(mock.NewMockEmbedder(), gatewayConfig(64))

	_, err := gateway.EmbedAll(context.Background(), nil)
	assert.ErrorIs(t, err, ai.ErrEmptyInput)
}

func TestGatewayEmbedQuery(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	gateway := ai.NewGateway(embedder, gatewayConfig(64))

	first, err := gateway.EmbedQuery(context.Background(), "what is the revenue?")
	require.NoError(t, err)
	second, err := gateway.EmbedQuery(context.Background(), "what is the revenue?")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
