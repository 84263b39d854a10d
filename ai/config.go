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


package ai

import (
	"strings"
	"time"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible
	// server.
	EmbeddingHost string

	// GeneratorHost is the base URL for the answer generation service API.
	GeneratorHost string

	// Token authenticates against the services. Local OpenAI-compatible
	// servers usually accept any non-empty value.
	Token string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-small", "embeddinggemma"
	EmbeddingModel string

	// GeneratorModel is the model identifier to use for answers.
	// Example: "gpt-4o-mini", "qwen2.5:3b"
	GeneratorModel string

	// Temperature for answer generation. Kept low so answers stay close
	// to the retrieved context.
	Temperature float64

	// BatchSize is the maximum number of texts sent to the embedder in
	// one call. Default: 64
	BatchSize int

	// MaxRetries is how many attempts each embedding batch gets.
	// Default: 3
	MaxRetries int

	// RetryBaseDelay is the base delay for exponential backoff between
	// embedding attempts. Default: 1s
	RetryBaseDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithGeneratorHost sets the answer generation service host URL.
func WithGeneratorHost(host string) ConfigOption {
	return func(c *Config) {
		c.GeneratorHost = host
	}
}

// WithHost sets both hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.GeneratorHost = host
	}
}

// WithToken sets the API token.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithGeneratorModel sets the generator model identifier.
func WithGeneratorModel(model string) ConfigOption {
	return func(c *Config) {
		c.GeneratorModel = model
	}
}

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) ConfigOption {
	return func(c *Config) {
		if n > 0 {
			c.BatchSize = n
		}
	}
}

// WithRetry sets the retry policy for embedding batches.
func WithRetry(maxRetries int, baseDelay time.Duration) ConfigOption {
	return func(c *Config) {
		if maxRetries > 0 {
			c.MaxRetries = maxRetries
		}
		if baseDelay > 0 {
			c.RetryBaseDelay = baseDelay
		}
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:  defaultHost,
		GeneratorHost:  defaultHost,
		Token:          "none",
		EmbeddingModel: "text-embedding-3-small",
		GeneratorModel: "gpt-4o-mini",
		Temperature:    0.15,
		BatchSize:      64,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// Validate checks the configuration and normalizes the host URLs.
func (c *Config) Validate() error {
	c.EmbeddingHost = strings.TrimRight(strings.TrimSpace(c.EmbeddingHost), "/")
	c.GeneratorHost = strings.TrimRight(strings.TrimSpace(c.GeneratorHost), "/")

	if c.EmbeddingHost == "" || c.GeneratorHost == "" {
		return ErrEmptyHost
	}
	if c.EmbeddingModel == "" || c.GeneratorModel == "" {
		return ErrEmptyModel
	}
	if c.Token == "" {
		c.Token = "none"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = time.Second
	}
	return nil
}
