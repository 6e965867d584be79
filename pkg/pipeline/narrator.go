package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/llm"
	"github.com/datasage-io/datasage-engine/pkg/models"
	"github.com/datasage-io/datasage-engine/pkg/prompts"
	"github.com/datasage-io/datasage-engine/pkg/retry"
)

// InsightNarrator turns tabular results into a grounded natural-language
// summary.
type InsightNarrator interface {
	// Narrate never returns an error: backend failure degrades to a minimal
	// factual restatement of row count and column names.
	Narrate(ctx context.Context, question, sqlQuery string, result models.ExecutionResult) models.InsightNarrative
}

type insightNarrator struct {
	client         llm.LLMClient
	circuitBreaker *llm.CircuitBreaker
	temperature    float64
	previewRows    int
	logger         *zap.Logger
}

// NewInsightNarrator creates the narrator. temperature is the mildly
// creative reasoning mode; previewRows caps how many rows the prompt embeds.
func NewInsightNarrator(client llm.LLMClient, cb *llm.CircuitBreaker, temperature float64, previewRows int, logger *zap.Logger) InsightNarrator {
	if previewRows <= 0 {
		previewRows = 10
	}
	return &insightNarrator{
		client:         client,
		circuitBreaker: cb,
		temperature:    temperature,
		previewRows:    previewRows,
		logger:         logger.Named("insight-narrator"),
	}
}

var _ InsightNarrator = (*insightNarrator)(nil)

func (n *insightNarrator) Narrate(ctx context.Context, question, sqlQuery string, result models.ExecutionResult) models.InsightNarrative {
	start := time.Now()

	degrade := func() models.InsightNarrative {
		return models.InsightNarrative{
			Text:      factualFallback(result),
			Degraded:  true,
			ElapsedMs: time.Since(start).Milliseconds(),
		}
	}

	if result.RowCount == 0 {
		return models.InsightNarrative{
			Text:      "The query ran successfully but returned no rows.",
			ElapsedMs: time.Since(start).Milliseconds(),
		}
	}

	if allowed, err := n.circuitBreaker.Allow(); !allowed {
		n.logger.Warn("Circuit breaker prevented narration", zap.Error(err))
		return degrade()
	}

	preview := result.Rows
	if len(preview) > n.previewRows {
		preview = preview[:n.previewRows]
	}

	prompt := prompts.BuildNarrativePrompt(question, sqlQuery, result.Columns, preview, result.RowCount, result.Truncated)
	system := prompts.NarrativeSystemMessage()

	var llmResult *llm.GenerateResponseResult
	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		var callErr error
		llmResult, callErr = n.client.GenerateResponse(ctx, prompt, system, n.temperature, false)
		return callErr
	})
	if err != nil {
		n.circuitBreaker.RecordFailure()
		n.logger.Warn("Narration backend call failed, degrading to factual summary",
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
		return degrade()
	}
	n.circuitBreaker.RecordSuccess()

	text := strings.TrimSpace(llm.StripThinking(llmResult.Content))
	if text == "" {
		return degrade()
	}

	// The truncation disclosure is a contract, not a style choice: enforce
	// it even when the backend forgot.
	if result.Truncated && !mentionsTruncation(text) {
		text += fmt.Sprintf(" Note: the result was capped at %d rows; the full result set is larger.", result.RowCount)
	}

	elapsed := time.Since(start)
	n.logger.Info("Narrative generated",
		zap.Int("length", len(text)),
		zap.Duration("elapsed", elapsed))

	return models.InsightNarrative{
		Text:      text,
		ElapsedMs: elapsed.Milliseconds(),
	}
}

// factualFallback restates what is certain from the result alone.
func factualFallback(result models.ExecutionResult) string {
	text := fmt.Sprintf("The query returned %d row(s) with columns: %s.",
		result.RowCount, strings.Join(result.Columns, ", "))
	if result.Truncated {
		text += fmt.Sprintf(" The result was capped at %d rows; the full result set is larger.", result.RowCount)
	}
	return text
}

// mentionsTruncation reports whether the narrative already discloses the row
// cap. Only cap-specific wording counts; incidental words like "first" or
// "larger" in an ordinary summary do not satisfy the disclosure.
func mentionsTruncation(text string) bool {
	lower := strings.ToLower(text)
	markers := []string{
		"truncat",
		"capped",
		"row limit",
		"limited to",
		"rows shown",
		"rows displayed",
		"not all rows",
		"more rows",
		"additional rows",
		"partial result",
		"subset of",
	}
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
