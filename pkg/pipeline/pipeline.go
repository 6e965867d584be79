package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/apperrors"
	"github.com/datasage-io/datasage-engine/pkg/models"
)

// Outcome names the terminal state of one question's pipeline run.
const (
	OutcomeAnswered            = "answered"
	OutcomeClarificationNeeded = "clarification_needed"
	OutcomeNoTablesFound       = "no_tables_found"
	OutcomeGenerationFailed    = "generation_failed"
	OutcomeValidationFailed    = "validation_failed"
	OutcomeSecurityRejected    = "security_rejected"
	OutcomeExecutionFailed     = "execution_failed"
)

// Pipeline is the orchestrator: it runs the seven stages strictly in order
// and routes the first terminal outcome straight to the caller. It owns the
// request context (timing, identifiers) but never mutates stage outputs, and
// it retries nothing; the validator's repair loop is the only loop.
type Pipeline struct {
	classifier IntentClassifier
	retriever  SchemaRetriever
	evaluator  RetrievalEvaluator
	generator  SQLGenerator
	validator  SQLValidator
	executor   QueryExecutor
	narrator   InsightNarrator
	topK       int
	logger     *zap.Logger
}

// New wires the stages into a pipeline.
func New(
	classifier IntentClassifier,
	retriever SchemaRetriever,
	evaluator RetrievalEvaluator,
	generator SQLGenerator,
	validator SQLValidator,
	executor QueryExecutor,
	narrator InsightNarrator,
	topK int,
	logger *zap.Logger,
) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	return &Pipeline{
		classifier: classifier,
		retriever:  retriever,
		evaluator:  evaluator,
		generator:  generator,
		validator:  validator,
		executor:   executor,
		narrator:   narrator,
		topK:       topK,
		logger:     logger.Named("pipeline"),
	}
}

// Answer processes one question end to end. Every terminal outcome reports
// what was understood so far, why the pipeline stopped, and a next action
// when the user can supply one. The only error return is an empty question.
func (p *Pipeline) Answer(ctx context.Context, questionText string) (*models.Answer, error) {
	if strings.TrimSpace(questionText) == "" {
		return nil, apperrors.ErrEmptyQuestion
	}

	question := models.NewUserQuestion(questionText)
	start := time.Now()
	logger := p.logger.With(zap.String("request_id", question.ID.String()))
	logger.Info("Question received", zap.Int("question_len", len(questionText)))

	meta := models.AnswerMetadata{RequestID: question.ID.String()}
	finish := func(answer *models.Answer) *models.Answer {
		answer.Metadata.Latencies.TotalMs = time.Since(start).Milliseconds()
		logger.Info("Pipeline finished",
			zap.String("outcome", answer.Metadata.Outcome),
			zap.Int64("total_ms", answer.Metadata.Latencies.TotalMs))
		return answer
	}

	// Stage 1: intent.
	intent := p.classifier.Classify(ctx, question.Text)
	meta.Intent = intent.Category
	meta.IntentConfidence = intent.Confidence
	meta.Latencies.ClassifyMs = intent.ElapsedMs

	if intent.Category == models.IntentAmbiguous {
		meta.Outcome = OutcomeClarificationNeeded
		return finish(&models.Answer{
			Narrative: clarificationNarrative(intent),
			Metadata:  meta,
		}), nil
	}

	// Stage 2: retrieval.
	retrieveStart := time.Now()
	candidates := p.retriever.Retrieve(ctx, question.Text, p.topK)
	meta.Latencies.RetrieveMs = time.Since(retrieveStart).Milliseconds()

	if len(candidates) == 0 {
		meta.Outcome = OutcomeNoTablesFound
		return finish(&models.Answer{
			Narrative: "I understood the question as " + describeIntent(intent.Category) +
				", but found no tables related to it. The available data may not cover this topic; try asking about a different entity.",
			Metadata: meta,
		}), nil
	}

	// Stage 3: evaluation.
	evaluation := p.evaluator.Evaluate(ctx, question.Text, candidates)
	meta.EssentialTables = evaluation.EssentialIDs()
	meta.Latencies.EvaluateMs = evaluation.ElapsedMs

	if len(evaluation.Essential) == 0 {
		meta.Outcome = OutcomeNoTablesFound
		return finish(&models.Answer{
			Narrative: "I found some topically similar tables, but none that can actually answer this question. Try naming the specific entity or metric you care about.",
			Metadata:  meta,
		}), nil
	}

	// Stage 4: generation.
	generated, err := p.generator.Generate(ctx, question.Text, evaluation.Essential)
	meta.Latencies.GenerateMs = generated.ElapsedMs
	meta.TargetDatabase = generated.TargetDatabase
	if err != nil {
		logger.Warn("Generation failed", zap.Error(err))
		meta.Outcome = OutcomeGenerationFailed
		return finish(&models.Answer{
			Narrative: fmt.Sprintf(
				"I understood the question as %s over %s, but could not produce a SQL statement for it. Rephrasing the question more concretely may help.",
				describeIntent(intent.Category), strings.Join(meta.EssentialTables, ", ")),
			Metadata: meta,
		}), nil
	}

	// Stage 5: validation with bounded repair.
	validation := p.validator.ValidateAndRepair(ctx, question.Text, generated.Statement, evaluation.Essential)
	meta.Latencies.ValidateMs = validation.ElapsedMs
	attemptedSQL := validation.Statement

	if !validation.IsValid {
		if validation.HasSecurityError() {
			meta.Outcome = OutcomeSecurityRejected
			logger.Error("Security rejection",
				zap.Strings("errors", errorMessages(validation.Errors)))
		} else {
			meta.Outcome = OutcomeValidationFailed
		}
		return finish(&models.Answer{
			Narrative: validationFailureNarrative(intent, meta.EssentialTables, validation),
			SQL:       &attemptedSQL,
			Metadata:  meta,
		}), nil
	}

	// Stage 6: execution.
	execution := p.executor.Execute(ctx, validation.Statement, generated.TargetDatabase)
	meta.Latencies.ExecuteMs = execution.ElapsedMs
	meta.RowCount = execution.RowCount
	meta.Truncated = execution.Truncated

	if !execution.Success {
		meta.Outcome = OutcomeExecutionFailed
		return finish(&models.Answer{
			Narrative: fmt.Sprintf(
				"The SQL was valid but execution against %s failed: %s. This may be transient; retrying or narrowing the question can help.",
				generated.TargetDatabase, execution.Error),
			SQL:      &attemptedSQL,
			Metadata: meta,
		}), nil
	}

	// Stage 7: narration.
	narrative := p.narrator.Narrate(ctx, question.Text, validation.Statement, execution)
	meta.Latencies.NarrateMs = narrative.ElapsedMs
	meta.Outcome = OutcomeAnswered

	return finish(&models.Answer{
		Narrative: narrative.Text,
		SQL:       &attemptedSQL,
		Rows:      execution.Rows,
		Columns:   execution.Columns,
		Metadata:  meta,
	}), nil
}

func clarificationNarrative(intent models.IntentResult) string {
	base := "I need more detail to answer this. Please specify the entity (e.g. customers, orders), the metric you want (count, total, average), or a time range."
	if intent.Reason != "" {
		return base + " (" + intent.Reason + ")"
	}
	return base
}

func validationFailureNarrative(intent models.IntentResult, tables []string, validation models.ValidationResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "I understood the question as %s over %s, but the generated SQL did not pass validation",
		describeIntent(intent.Category), strings.Join(tables, ", "))
	if validation.RepairAttempts > 0 {
		fmt.Fprintf(&sb, " after %d repair attempt(s)", validation.RepairAttempts)
	}
	sb.WriteString(".")

	if validation.HasSecurityError() {
		sb.WriteString(" The statement was rejected by security checks and was not executed.")
	} else {
		sb.WriteString(" Errors: ")
		sb.WriteString(strings.Join(errorMessages(validation.Errors), "; "))
		sb.WriteString(". Rephrasing the question may produce a correct statement.")
	}
	return sb.String()
}

func describeIntent(category models.IntentCategory) string {
	switch category {
	case models.IntentSimpleRetrieval:
		return "a simple retrieval"
	case models.IntentFilteredRetrieval:
		return "a filtered retrieval"
	case models.IntentAggregation:
		return "an aggregation"
	case models.IntentMultiTableJoin:
		return "a multi-table join"
	case models.IntentComplexAnalytics:
		return "a complex analytics question"
	default:
		return "an ambiguous question"
	}
}

func errorMessages(errs []models.ValidationError) []string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.String()
	}
	return msgs
}
