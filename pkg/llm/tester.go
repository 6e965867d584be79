package llm

import (
	"context"
	"fmt"
	"time"
)

// VerifyResult reports the outcome of a startup connectivity check.
type VerifyResult struct {
	Success            bool      `json:"success"`
	Message            string    `json:"message"`
	LLMSuccess         bool      `json:"llm_success"`
	LLMMessage         string    `json:"llm_message,omitempty"`
	LLMErrorType       ErrorType `json:"llm_error_type,omitempty"`
	LLMResponseTimeMs  int64     `json:"llm_response_time_ms,omitempty"`
	EmbeddingSuccess   bool      `json:"embedding_success"`
	EmbeddingMessage   string    `json:"embedding_message,omitempty"`
	EmbeddingErrorType ErrorType `json:"embedding_error_type,omitempty"`
}

// ConnectionTester verifies reasoning and embedding backends with a minimal
// round trip. Run at startup so misconfiguration surfaces before the first
// question, not during it.
type ConnectionTester interface {
	Verify(ctx context.Context, reasoning LLMClient, embedding LLMClient, embeddingModel string) *VerifyResult
}

type connectionTester struct {
	timeout time.Duration
}

// NewConnectionTester creates a tester with a 30s per-probe timeout.
func NewConnectionTester() ConnectionTester {
	return &connectionTester{timeout: 30 * time.Second}
}

func (t *connectionTester) Verify(ctx context.Context, reasoning LLMClient, embedding LLMClient, embeddingModel string) *VerifyResult {
	result := &VerifyResult{}

	if reasoning != nil {
		probeCtx, cancel := context.WithTimeout(ctx, t.timeout)
		start := time.Now()
		resp, err := reasoning.GenerateResponse(probeCtx, "Say 'ok' and nothing else.", "", 0, false)
		cancel()
		elapsed := time.Since(start).Milliseconds()
		result.LLMResponseTimeMs = elapsed

		switch {
		case err != nil:
			classified := ClassifyError(err)
			result.LLMMessage = fmt.Sprintf("LLM: %s", classified.Message)
			result.LLMErrorType = classified.Type
		case resp.Content == "":
			result.LLMMessage = "LLM returned no response"
			result.LLMErrorType = ErrorTypeUnknown
		default:
			result.LLMSuccess = true
			result.LLMMessage = fmt.Sprintf("LLM connection successful (model: %s, %dms)", reasoning.GetModel(), elapsed)
		}
	}

	if embedding != nil && embeddingModel != "" {
		probeCtx, cancel := context.WithTimeout(ctx, t.timeout)
		vec, err := embedding.CreateEmbedding(probeCtx, "test", embeddingModel)
		cancel()

		switch {
		case err != nil:
			classified := ClassifyError(err)
			result.EmbeddingMessage = fmt.Sprintf("Embedding: %s", classified.Message)
			result.EmbeddingErrorType = classified.Type
		case len(vec) == 0:
			result.EmbeddingMessage = "Embedding returned no vectors"
			result.EmbeddingErrorType = ErrorTypeUnknown
		default:
			result.EmbeddingSuccess = true
			result.EmbeddingMessage = fmt.Sprintf("Embedding successful (model: %s, %d dims)", embeddingModel, len(vec))
		}
	}

	if result.LLMSuccess {
		result.Success = true
		switch {
		case result.EmbeddingSuccess:
			result.Message = "LLM and embedding connections successful"
		case embeddingModel == "":
			result.Message = "LLM connection successful (embedding not configured)"
		default:
			result.Message = "LLM connection successful, embedding failed"
		}
	} else {
		result.Message = result.LLMMessage
	}

	return result
}

// Ensure connectionTester implements ConnectionTester at compile time.
var _ ConnectionTester = (*connectionTester)(nil)
