package mock

import (
	"context"
	"fmt"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateAnswerFunc is called by GenerateAnswer if set.
	// If nil, a deterministic canned answer is returned.
	GenerateAnswerFunc func(ctx context.Context, question string, contextSnippets, conversation []string) (string, error)

	callCount int
}

// NewMockGenerator creates a mock generator with default canned behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// GenerateAnswer returns a deterministic answer echoing the question and
// the number of context snippets.
func (m *MockGenerator) GenerateAnswer(ctx context.Context, question string, contextSnippets, conversation []string) (string, error) {
	m.callCount++

	if m.GenerateAnswerFunc != nil {
		return m.GenerateAnswerFunc(ctx, question, contextSnippets, conversation)
	}
	return fmt.Sprintf("Answer to %q grounded in %d snippets.", question, len(contextSnippets)), nil
}

// CallCount returns the number of times GenerateAnswer was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.GenerateAnswerFunc = nil
}
