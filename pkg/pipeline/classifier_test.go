package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/llm"
	"github.com/datasage-io/datasage-engine/pkg/models"
)

func newTestBreaker() *llm.CircuitBreaker {
	return llm.NewCircuitBreaker(llm.CircuitBreakerConfig{Threshold: 3, ResetAfter: time.Minute})
}

func openBreaker() *llm.CircuitBreaker {
	cb := llm.NewCircuitBreaker(llm.CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute})
	cb.RecordFailure()
	return cb
}

func intentJSON(category string, confidence float64, reason string) string {
	return fmt.Sprintf(`{"category": %q, "confidence": %v, "reason": %q}`, category, confidence, reason)
}

func TestIntentClassifier_Classify(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		responseErr    error
		wantCategory   models.IntentCategory
		wantConfidence float64
	}{
		{
			name:           "confident aggregation",
			response:       intentJSON("aggregation", 0.92, "asks for a total"),
			wantCategory:   models.IntentAggregation,
			wantConfidence: 0.92,
		},
		{
			name:           "confident join",
			response:       intentJSON("multi_table_join", 0.85, "spans two entities"),
			wantCategory:   models.IntentMultiTableJoin,
			wantConfidence: 0.85,
		},
		{
			name:           "low confidence forces ambiguous",
			response:       intentJSON("simple_retrieval", 0.4, "vague subject"),
			wantCategory:   models.IntentAmbiguous,
			wantConfidence: 0.4,
		},
		{
			name:           "backend failure degrades to ambiguous",
			responseErr:    fmt.Errorf("invalid request"),
			wantCategory:   models.IntentAmbiguous,
			wantConfidence: 0,
		},
		{
			name:           "unparseable response degrades to ambiguous",
			response:       "I think this is probably an aggregation?",
			wantCategory:   models.IntentAmbiguous,
			wantConfidence: 0,
		},
		{
			name:           "unknown category degrades to ambiguous",
			response:       intentJSON("prediction", 0.9, "forecast request"),
			wantCategory:   models.IntentAmbiguous,
			wantConfidence: 0,
		},
		{
			name:           "confidence clamped to one",
			response:       intentJSON("filtered_retrieval", 1.7, ""),
			wantCategory:   models.IntentFilteredRetrieval,
			wantConfidence: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockLLMClient()
			mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64, thinking bool) (*llm.GenerateResponseResult, error) {
				if tt.responseErr != nil {
					return nil, tt.responseErr
				}
				return &llm.GenerateResponseResult{Content: tt.response}, nil
			}

			c := NewIntentClassifier(mock, newTestBreaker(), 0.7, zap.NewNop())
			result := c.Classify(context.Background(), "how many orders last month")

			assert.Equal(t, tt.wantCategory, result.Category)
			assert.InDelta(t, tt.wantConfidence, result.Confidence, 0.001)
		})
	}
}

func TestIntentClassifier_AmbiguousConfidenceCapped(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64, thinking bool) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: intentJSON("ambiguous", 0.95, "no entity named")}, nil
	}

	c := NewIntentClassifier(mock, newTestBreaker(), 0.7, zap.NewNop())
	result := c.Classify(context.Background(), "show me the data")

	assert.Equal(t, models.IntentAmbiguous, result.Category)
	assert.Less(t, result.Confidence, 0.7, "ambiguous must never carry actionable confidence")
}

// A backend that stalls without erroring must not hang the question: the
// per-call deadline cuts it off and the classifier degrades to ambiguous.
func TestIntentClassifier_StalledBackendDegradesToAmbiguous(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64, thinking bool) (*llm.GenerateResponseResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	c := NewIntentClassifier(llm.WithCallTimeout(mock, 20*time.Millisecond), newTestBreaker(), 0.7, zap.NewNop())

	start := time.Now()
	result := c.Classify(context.Background(), "how many orders last month")

	assert.Equal(t, models.IntentAmbiguous, result.Category)
	assert.Zero(t, result.Confidence)
	assert.Less(t, time.Since(start), 5*time.Second, "stalled backend must not block the question")
}

func TestIntentClassifier_OpenCircuitSkipsBackend(t *testing.T) {
	mock := llm.NewMockLLMClient()

	c := NewIntentClassifier(mock, openBreaker(), 0.7, zap.NewNop())
	result := c.Classify(context.Background(), "top customers by revenue")

	assert.Equal(t, models.IntentAmbiguous, result.Category)
	assert.Zero(t, result.Confidence)
	assert.Zero(t, mock.GenerateResponseCalls, "open circuit must not reach the backend")
}
