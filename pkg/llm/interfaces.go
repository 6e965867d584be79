// Package llm provides the reasoning and embedding backends for the query
// pipeline: an OpenAI-compatible client, an Anthropic client, structured
// error classification, and a circuit breaker shared by callers.
package llm

import (
	"context"
)

// LLMClient is the reasoning capability consumed by the pipeline stages.
// Implementations must honor ctx cancellation and return *Error values from
// ClassifyError on failure so callers can decide retryability.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse generates a chat completion. Temperature selects the
	// reasoning mode: 0 for deterministic stages, higher for narrative text.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64, thinking bool) (*GenerateResponseResult, error)

	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)

	// CreateEmbeddings generates embeddings for multiple inputs.
	CreateEmbeddings(ctx context.Context, inputs []string, model string) ([][]float32, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// GenerateResponseResult carries the completion text and usage stats.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
