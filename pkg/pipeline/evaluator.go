package pipeline

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/llm"
	"github.com/datasage-io/datasage-engine/pkg/models"
	"github.com/datasage-io/datasage-engine/pkg/prompts"
	"github.com/datasage-io/datasage-engine/pkg/retry"
)

// RetrievalEvaluator narrows the candidate set to the tables strictly
// necessary for the question.
type RetrievalEvaluator interface {
	// Evaluate partitions candidates into essential and discarded. It never
	// introduces a table outside the candidate set, and it never returns an
	// error: an unparseable backend response fails open to all candidates
	// with low confidence.
	Evaluate(ctx context.Context, question string, candidates []models.RetrievedCandidate) models.EvaluationResult
}

type retrievalEvaluator struct {
	client         llm.LLMClient
	circuitBreaker *llm.CircuitBreaker
	threshold      float64
	logger         *zap.Logger
}

// NewRetrievalEvaluator creates the evaluator. threshold is the relevance
// cut line: candidates at or above it are essential.
func NewRetrievalEvaluator(client llm.LLMClient, cb *llm.CircuitBreaker, threshold float64, logger *zap.Logger) RetrievalEvaluator {
	return &retrievalEvaluator{
		client:         client,
		circuitBreaker: cb,
		threshold:      threshold,
		logger:         logger.Named("retrieval-evaluator"),
	}
}

var _ RetrievalEvaluator = (*retrievalEvaluator)(nil)

type evaluationResponse struct {
	Tables []struct {
		ID        string  `json:"id"`
		Relevance float64 `json:"relevance"`
		Reason    string  `json:"reason"`
	} `json:"tables"`
	Confidence float64 `json:"confidence"`
	Missing    string  `json:"missing"`
}

func (e *retrievalEvaluator) Evaluate(ctx context.Context, question string, candidates []models.RetrievedCandidate) models.EvaluationResult {
	start := time.Now()

	if len(candidates) == 0 {
		return models.EvaluationResult{ElapsedMs: time.Since(start).Milliseconds()}
	}

	// A set this small is not worth a backend round trip.
	if len(candidates) <= 2 {
		essential := make([]models.TableDescriptor, len(candidates))
		for i, c := range candidates {
			essential[i] = c.Descriptor
		}
		return e.finish(question, models.EvaluationResult{
			Essential:  essential,
			Confidence: 0.75,
			ElapsedMs:  time.Since(start).Milliseconds(),
		})
	}

	failOpen := func() models.EvaluationResult {
		essential := make([]models.TableDescriptor, len(candidates))
		for i, c := range candidates {
			essential[i] = c.Descriptor
		}
		return e.finish(question, models.EvaluationResult{
			Essential:    essential,
			Confidence:   0.3,
			UsedFallback: true,
			ElapsedMs:    time.Since(start).Milliseconds(),
		})
	}

	if allowed, err := e.circuitBreaker.Allow(); !allowed {
		e.logger.Warn("Circuit breaker prevented evaluation, failing open", zap.Error(err))
		return failOpen()
	}

	prompt := prompts.BuildEvaluationPrompt(question, candidates)
	system := prompts.EvaluationSystemMessage()

	var result *llm.GenerateResponseResult
	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		var callErr error
		result, callErr = e.client.GenerateResponse(ctx, prompt, system, 0, false)
		return callErr
	})
	if err != nil {
		e.circuitBreaker.RecordFailure()
		e.logger.Warn("Evaluation backend call failed, failing open",
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
		return failOpen()
	}
	e.circuitBreaker.RecordSuccess()

	parsed, err := llm.ParseJSONResponse[evaluationResponse](result.Content)
	if err != nil {
		e.logger.Warn("Unparseable evaluation response, failing open", zap.Error(err))
		return failOpen()
	}

	byID := make(map[string]models.TableDescriptor, len(candidates))
	for _, c := range candidates {
		byID[c.Descriptor.ID()] = c.Descriptor
	}

	scores := make(map[string]float64, len(parsed.Tables))
	for _, t := range parsed.Tables {
		if _, ok := byID[t.ID]; !ok {
			// Introducing tables is the retriever's job, not the evaluator's.
			e.logger.Warn("Evaluator response referenced a non-candidate table",
				zap.String("id", t.ID))
			continue
		}
		scores[t.ID] = t.Relevance
	}

	var essential []models.TableDescriptor
	var discarded []string
	for _, c := range candidates {
		id := c.Descriptor.ID()
		score, scored := scores[id]
		// Unscored candidates are kept: dropping a table the backend forgot
		// to mention would fail closed on structure.
		if !scored || score >= e.threshold {
			essential = append(essential, c.Descriptor)
		} else {
			discarded = append(discarded, id)
		}
	}

	if len(essential) == 0 {
		e.logger.Warn("Evaluator discarded every candidate, failing open")
		return failOpen()
	}

	return e.finish(question, models.EvaluationResult{
		Essential:        essential,
		Discarded:        discarded,
		Confidence:       clamp01(parsed.Confidence),
		MissingTableHint: parsed.Missing,
		ElapsedMs:        time.Since(start).Milliseconds(),
	})
}

// finish applies the missing-table heuristic and logs the outcome.
func (e *retrievalEvaluator) finish(question string, result models.EvaluationResult) models.EvaluationResult {
	if result.MissingTableHint == "" {
		result.MissingTableHint = missingTableHint(question, result.Essential)
	}

	e.logger.Info("Candidates evaluated",
		zap.Int("essential", len(result.Essential)),
		zap.Int("discarded", len(result.Discarded)),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("fallback", result.UsedFallback),
		zap.String("missing_hint", result.MissingTableHint))
	return result
}

var wordPattern = regexp.MustCompile(`[a-zA-Z_]{3,}`)

// missingTableHint compares singular/plural entity words from the question
// against the retained table names. A question word whose singular and
// plural forms match no retained table suggests the essential set may be
// incomplete. Observability signal only, never blocking.
func missingTableHint(question string, essential []models.TableDescriptor) string {
	if len(essential) == 0 {
		return ""
	}

	tableWords := make(map[string]bool)
	for _, d := range essential {
		for _, part := range strings.Split(strings.ToLower(d.Table), "_") {
			tableWords[part] = true
			tableWords[inflection.Singular(part)] = true
		}
		for _, col := range d.Columns {
			for _, part := range strings.Split(strings.ToLower(col.Name), "_") {
				tableWords[part] = true
			}
		}
	}

	for _, word := range wordPattern.FindAllString(strings.ToLower(question), -1) {
		singular := inflection.Singular(word)
		plural := inflection.Plural(word)
		// Only nouns that look like entities matter; a word whose plural
		// differs from itself is a reasonable proxy.
		if plural == word && singular != word {
			if !tableWords[word] && !tableWords[singular] {
				return "question mentions \"" + word + "\" but no retained table or column matches it"
			}
		}
	}

	return ""
}
