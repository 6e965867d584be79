// Package pipeline implements the seven-stage query pipeline: intent
// classification, schema retrieval, retrieval evaluation, SQL generation,
// validation with bounded repair, bounded execution, and insight narration.
// Stages are independent services wired together by the orchestrator; each
// catches its own failure modes and returns a typed outcome.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/llm"
	"github.com/datasage-io/datasage-engine/pkg/models"
	"github.com/datasage-io/datasage-engine/pkg/prompts"
	"github.com/datasage-io/datasage-engine/pkg/retry"
)

// IntentClassifier maps free text to one intent category with confidence.
type IntentClassifier interface {
	// Classify never returns an error: backend failures degrade to the
	// ambiguous category with zero confidence.
	Classify(ctx context.Context, question string) models.IntentResult
}

type intentClassifier struct {
	client         llm.LLMClient
	circuitBreaker *llm.CircuitBreaker
	threshold      float64
	logger         *zap.Logger
}

// NewIntentClassifier creates the classifier. threshold is the clarification
// threshold: any result below it is forced to ambiguous.
func NewIntentClassifier(client llm.LLMClient, cb *llm.CircuitBreaker, threshold float64, logger *zap.Logger) IntentClassifier {
	return &intentClassifier{
		client:         client,
		circuitBreaker: cb,
		threshold:      threshold,
		logger:         logger.Named("intent-classifier"),
	}
}

var _ IntentClassifier = (*intentClassifier)(nil)

type intentResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (c *intentClassifier) Classify(ctx context.Context, question string) models.IntentResult {
	start := time.Now()

	degrade := func(reason string) models.IntentResult {
		return models.IntentResult{
			Category:   models.IntentAmbiguous,
			Confidence: 0,
			Reason:     reason,
			ElapsedMs:  time.Since(start).Milliseconds(),
		}
	}

	if allowed, err := c.circuitBreaker.Allow(); !allowed {
		c.logger.Warn("Circuit breaker prevented classification", zap.Error(err))
		return degrade("reasoning backend unavailable")
	}

	prompt := prompts.BuildIntentPrompt(question)
	system := prompts.IntentSystemMessage()

	var result *llm.GenerateResponseResult
	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		var callErr error
		result, callErr = c.client.GenerateResponse(ctx, prompt, system, 0, false)
		return callErr
	})
	if err != nil {
		c.circuitBreaker.RecordFailure()
		c.logger.Warn("Classification backend call failed, degrading to ambiguous",
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
		return degrade("could not classify the question")
	}
	c.circuitBreaker.RecordSuccess()

	parsed, err := llm.ParseJSONResponse[intentResponse](result.Content)
	if err != nil {
		c.logger.Warn("Unparseable classification response, degrading to ambiguous",
			zap.Error(err))
		return degrade("could not classify the question")
	}

	category, known := models.ParseIntentCategory(parsed.Category)
	if !known {
		// An open category is never silently accepted.
		c.logger.Warn("Backend returned unknown intent category",
			zap.String("category", parsed.Category))
		return degrade("unrecognized question shape")
	}

	confidence := clamp01(parsed.Confidence)

	// Low confidence means clarification, whatever the proposed category.
	if confidence < c.threshold && category != models.IntentAmbiguous {
		c.logger.Info("Confidence below clarification threshold, forcing ambiguous",
			zap.String("proposed", string(category)),
			zap.Float64("confidence", confidence))
		category = models.IntentAmbiguous
	}

	// The classifier never emits high confidence for ambiguous.
	if category == models.IntentAmbiguous && confidence >= c.threshold {
		confidence = c.threshold / 2
	}

	elapsed := time.Since(start)
	c.logger.Info("Question classified",
		zap.String("category", string(category)),
		zap.Float64("confidence", confidence),
		zap.Duration("elapsed", elapsed))

	return models.IntentResult{
		Category:   category,
		Confidence: confidence,
		Reason:     parsed.Reason,
		ElapsedMs:  elapsed.Milliseconds(),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
