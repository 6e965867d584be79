package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/apperrors"
	"github.com/datasage-io/datasage-engine/pkg/models"
)

type classifierFunc func(ctx context.Context, question string) models.IntentResult

func (f classifierFunc) Classify(ctx context.Context, question string) models.IntentResult {
	return f(ctx, question)
}

type retrieverFunc func(ctx context.Context, question string, k int) []models.RetrievedCandidate

func (f retrieverFunc) Retrieve(ctx context.Context, question string, k int) []models.RetrievedCandidate {
	return f(ctx, question, k)
}

type evaluatorFunc func(ctx context.Context, question string, candidates []models.RetrievedCandidate) models.EvaluationResult

func (f evaluatorFunc) Evaluate(ctx context.Context, question string, candidates []models.RetrievedCandidate) models.EvaluationResult {
	return f(ctx, question, candidates)
}

type generatorFunc func(ctx context.Context, question string, essential []models.TableDescriptor) (models.GeneratedSQL, error)

func (f generatorFunc) Generate(ctx context.Context, question string, essential []models.TableDescriptor) (models.GeneratedSQL, error) {
	return f(ctx, question, essential)
}

type validatorFunc func(ctx context.Context, question, statement string, essential []models.TableDescriptor) models.ValidationResult

func (f validatorFunc) ValidateAndRepair(ctx context.Context, question, statement string, essential []models.TableDescriptor) models.ValidationResult {
	return f(ctx, question, statement, essential)
}

type executorFunc func(ctx context.Context, sqlQuery, targetDatabase string) models.ExecutionResult

func (f executorFunc) Execute(ctx context.Context, sqlQuery, targetDatabase string) models.ExecutionResult {
	return f(ctx, sqlQuery, targetDatabase)
}

type narratorFunc func(ctx context.Context, question, sqlQuery string, result models.ExecutionResult) models.InsightNarrative

func (f narratorFunc) Narrate(ctx context.Context, question, sqlQuery string, result models.ExecutionResult) models.InsightNarrative {
	return f(ctx, question, sqlQuery, result)
}

// fixture wires a pipeline whose unconfigured stages fail the test if reached.
type fixture struct {
	classifier IntentClassifier
	retriever  SchemaRetriever
	evaluator  RetrievalEvaluator
	generator  SQLGenerator
	validator  SQLValidator
	executor   QueryExecutor
	narrator   InsightNarrator
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		classifier: classifierFunc(func(ctx context.Context, q string) models.IntentResult {
			t.Fatal("classifier reached unexpectedly")
			return models.IntentResult{}
		}),
		retriever: retrieverFunc(func(ctx context.Context, q string, k int) []models.RetrievedCandidate {
			t.Fatal("retriever reached unexpectedly")
			return nil
		}),
		evaluator: evaluatorFunc(func(ctx context.Context, q string, c []models.RetrievedCandidate) models.EvaluationResult {
			t.Fatal("evaluator reached unexpectedly")
			return models.EvaluationResult{}
		}),
		generator: generatorFunc(func(ctx context.Context, q string, e []models.TableDescriptor) (models.GeneratedSQL, error) {
			t.Fatal("generator reached unexpectedly")
			return models.GeneratedSQL{}, nil
		}),
		validator: validatorFunc(func(ctx context.Context, q, s string, e []models.TableDescriptor) models.ValidationResult {
			t.Fatal("validator reached unexpectedly")
			return models.ValidationResult{}
		}),
		executor: executorFunc(func(ctx context.Context, s, db string) models.ExecutionResult {
			t.Fatal("executor reached unexpectedly")
			return models.ExecutionResult{}
		}),
		narrator: narratorFunc(func(ctx context.Context, q, s string, r models.ExecutionResult) models.InsightNarrative {
			t.Fatal("narrator reached unexpectedly")
			return models.InsightNarrative{}
		}),
	}
}

func (f *fixture) pipeline() *Pipeline {
	return New(f.classifier, f.retriever, f.evaluator, f.generator, f.validator, f.executor, f.narrator, 5, zap.NewNop())
}

func confidentIntent(category models.IntentCategory) classifierFunc {
	return func(ctx context.Context, q string) models.IntentResult {
		return models.IntentResult{Category: category, Confidence: 0.9}
	}
}

func TestPipeline_HappyPath(t *testing.T) {
	orders := descriptor("sales_db", "orders", "order_id", "created_at")

	f := newFixture(t)
	f.classifier = confidentIntent(models.IntentAggregation)
	f.retriever = retrieverFunc(func(ctx context.Context, q string, k int) []models.RetrievedCandidate {
		assert.Equal(t, 5, k)
		return []models.RetrievedCandidate{{Descriptor: orders, Similarity: 0.9}}
	})
	f.evaluator = evaluatorFunc(func(ctx context.Context, q string, c []models.RetrievedCandidate) models.EvaluationResult {
		return models.EvaluationResult{Essential: []models.TableDescriptor{orders}, Confidence: 0.9}
	})
	f.generator = generatorFunc(func(ctx context.Context, q string, e []models.TableDescriptor) (models.GeneratedSQL, error) {
		return models.GeneratedSQL{Statement: "SELECT COUNT(*) FROM orders", TargetDatabase: "sales_db"}, nil
	})
	f.validator = validatorFunc(func(ctx context.Context, q, s string, e []models.TableDescriptor) models.ValidationResult {
		return models.ValidationResult{IsValid: true, Statement: s}
	})
	f.executor = executorFunc(func(ctx context.Context, s, db string) models.ExecutionResult {
		assert.Equal(t, "sales_db", db)
		return models.ExecutionResult{
			Success:  true,
			Columns:  []string{"count"},
			Rows:     []models.Row{{"count": 1542}},
			RowCount: 1,
		}
	})
	f.narrator = narratorFunc(func(ctx context.Context, q, s string, r models.ExecutionResult) models.InsightNarrative {
		return models.InsightNarrative{Text: "There were 1542 orders last month."}
	})

	answer, err := f.pipeline().Answer(context.Background(), "How many orders did we get last month?")
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswered, answer.Metadata.Outcome)
	assert.Equal(t, "There were 1542 orders last month.", answer.Narrative)
	require.NotNil(t, answer.SQL)
	assert.Equal(t, "SELECT COUNT(*) FROM orders", *answer.SQL)
	assert.Equal(t, []models.Row{{"count": 1542}}, answer.Rows)
	assert.Equal(t, models.IntentAggregation, answer.Metadata.Intent)
	assert.Equal(t, []string{"sales_db.orders"}, answer.Metadata.EssentialTables)
	assert.Equal(t, "sales_db", answer.Metadata.TargetDatabase)
	assert.Equal(t, 1, answer.Metadata.RowCount)
	assert.NotEmpty(t, answer.Metadata.RequestID)
}

func TestPipeline_AmbiguousQuestionStopsEarly(t *testing.T) {
	f := newFixture(t)
	f.classifier = classifierFunc(func(ctx context.Context, q string) models.IntentResult {
		return models.IntentResult{Category: models.IntentAmbiguous, Confidence: 0.2, Reason: "no entity or metric named"}
	})

	answer, err := f.pipeline().Answer(context.Background(), "Show me the data")
	require.NoError(t, err)

	assert.Equal(t, OutcomeClarificationNeeded, answer.Metadata.Outcome)
	assert.Nil(t, answer.SQL)
	assert.Nil(t, answer.Rows)
	assert.Contains(t, answer.Narrative, "specify")
	assert.Contains(t, answer.Narrative, "no entity or metric named")
}

func TestPipeline_NoCandidatesFound(t *testing.T) {
	f := newFixture(t)
	f.classifier = confidentIntent(models.IntentSimpleRetrieval)
	f.retriever = retrieverFunc(func(ctx context.Context, q string, k int) []models.RetrievedCandidate {
		return nil
	})

	answer, err := f.pipeline().Answer(context.Background(), "List all spaceships")
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoTablesFound, answer.Metadata.Outcome)
	assert.Nil(t, answer.SQL)
	assert.Contains(t, answer.Narrative, "no tables")
}

func TestPipeline_EvaluatorNarrowsGeneratorInput(t *testing.T) {
	five := []models.RetrievedCandidate{
		{Descriptor: descriptor("sales_db", "orders")},
		{Descriptor: descriptor("sales_db", "customers")},
		{Descriptor: descriptor("sales_db", "payments")},
		{Descriptor: descriptor("products_db", "products")},
		{Descriptor: descriptor("analytics_db", "daily_metrics")},
	}
	essential := []models.TableDescriptor{
		five[0].Descriptor, five[1].Descriptor, five[2].Descriptor,
	}

	f := newFixture(t)
	f.classifier = confidentIntent(models.IntentMultiTableJoin)
	f.retriever = retrieverFunc(func(ctx context.Context, q string, k int) []models.RetrievedCandidate {
		return five
	})
	f.evaluator = evaluatorFunc(func(ctx context.Context, q string, c []models.RetrievedCandidate) models.EvaluationResult {
		require.Len(t, c, 5)
		return models.EvaluationResult{
			Essential: essential,
			Discarded: []string{"products_db.products", "analytics_db.daily_metrics"},
		}
	})
	f.generator = generatorFunc(func(ctx context.Context, q string, e []models.TableDescriptor) (models.GeneratedSQL, error) {
		assert.Len(t, e, 3, "only essential tables reach generation")
		return models.GeneratedSQL{Statement: "SELECT 1", TargetDatabase: "sales_db"}, nil
	})
	f.validator = validatorFunc(func(ctx context.Context, q, s string, e []models.TableDescriptor) models.ValidationResult {
		return models.ValidationResult{IsValid: true, Statement: s}
	})
	f.executor = executorFunc(func(ctx context.Context, s, db string) models.ExecutionResult {
		return models.ExecutionResult{Success: true, Columns: []string{"?column?"}, Rows: []models.Row{{"?column?": 1}}, RowCount: 1}
	})
	f.narrator = narratorFunc(func(ctx context.Context, q, s string, r models.ExecutionResult) models.InsightNarrative {
		return models.InsightNarrative{Text: "done"}
	})

	answer, err := f.pipeline().Answer(context.Background(), "payments per customer order")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, answer.Metadata.Outcome)
	assert.Len(t, answer.Metadata.EssentialTables, 3)
}

func TestPipeline_SecurityRejectionNeverExecutes(t *testing.T) {
	orders := descriptor("sales_db", "orders")

	f := newFixture(t)
	f.classifier = confidentIntent(models.IntentSimpleRetrieval)
	f.retriever = retrieverFunc(func(ctx context.Context, q string, k int) []models.RetrievedCandidate {
		return []models.RetrievedCandidate{{Descriptor: orders}}
	})
	f.evaluator = evaluatorFunc(func(ctx context.Context, q string, c []models.RetrievedCandidate) models.EvaluationResult {
		return models.EvaluationResult{Essential: []models.TableDescriptor{orders}}
	})
	f.generator = generatorFunc(func(ctx context.Context, q string, e []models.TableDescriptor) (models.GeneratedSQL, error) {
		return models.GeneratedSQL{Statement: "'; DROP TABLE customers; --", TargetDatabase: "sales_db"}, nil
	})
	f.validator = validatorFunc(func(ctx context.Context, q, s string, e []models.TableDescriptor) models.ValidationResult {
		return models.ValidationResult{
			IsValid:   false,
			Statement: s,
			Errors: []models.ValidationError{
				{Class: models.ValidationSecurity, Message: "multiple statements are not allowed"},
			},
		}
	})
	// executor and narrator stay fatal: a rejected statement must never run.

	answer, err := f.pipeline().Answer(context.Background(), "List customers'; DROP TABLE customers; --")
	require.NoError(t, err)

	assert.Equal(t, OutcomeSecurityRejected, answer.Metadata.Outcome)
	assert.Nil(t, answer.Rows)
	assert.Contains(t, answer.Narrative, "security")
}

func TestPipeline_ValidationFailureDistinctFromSecurity(t *testing.T) {
	orders := descriptor("sales_db", "orders")

	f := newFixture(t)
	f.classifier = confidentIntent(models.IntentSimpleRetrieval)
	f.retriever = retrieverFunc(func(ctx context.Context, q string, k int) []models.RetrievedCandidate {
		return []models.RetrievedCandidate{{Descriptor: orders}}
	})
	f.evaluator = evaluatorFunc(func(ctx context.Context, q string, c []models.RetrievedCandidate) models.EvaluationResult {
		return models.EvaluationResult{Essential: []models.TableDescriptor{orders}}
	})
	f.generator = generatorFunc(func(ctx context.Context, q string, e []models.TableDescriptor) (models.GeneratedSQL, error) {
		return models.GeneratedSQL{Statement: "SELECT * FROM ordrs", TargetDatabase: "sales_db"}, nil
	})
	f.validator = validatorFunc(func(ctx context.Context, q, s string, e []models.TableDescriptor) models.ValidationResult {
		return models.ValidationResult{
			IsValid:        false,
			Statement:      s,
			RepairAttempts: 2,
			Errors: []models.ValidationError{
				{Class: models.ValidationUnknownTable, Message: "unknown table ordrs"},
			},
		}
	})

	answer, err := f.pipeline().Answer(context.Background(), "list orders")
	require.NoError(t, err)

	assert.Equal(t, OutcomeValidationFailed, answer.Metadata.Outcome)
	assert.Contains(t, answer.Narrative, "2 repair attempt")
	assert.Contains(t, answer.Narrative, "unknown table ordrs")
}

func TestPipeline_GenerationFailure(t *testing.T) {
	orders := descriptor("sales_db", "orders")

	f := newFixture(t)
	f.classifier = confidentIntent(models.IntentAggregation)
	f.retriever = retrieverFunc(func(ctx context.Context, q string, k int) []models.RetrievedCandidate {
		return []models.RetrievedCandidate{{Descriptor: orders}}
	})
	f.evaluator = evaluatorFunc(func(ctx context.Context, q string, c []models.RetrievedCandidate) models.EvaluationResult {
		return models.EvaluationResult{Essential: []models.TableDescriptor{orders}}
	})
	f.generator = generatorFunc(func(ctx context.Context, q string, e []models.TableDescriptor) (models.GeneratedSQL, error) {
		return models.GeneratedSQL{}, fmt.Errorf("backend returned an empty statement")
	})

	answer, err := f.pipeline().Answer(context.Background(), "total revenue")
	require.NoError(t, err)

	assert.Equal(t, OutcomeGenerationFailed, answer.Metadata.Outcome)
	assert.Nil(t, answer.SQL)
}

func TestPipeline_ExecutionTimeout(t *testing.T) {
	metrics := descriptor("analytics_db", "daily_metrics")

	f := newFixture(t)
	f.classifier = confidentIntent(models.IntentComplexAnalytics)
	f.retriever = retrieverFunc(func(ctx context.Context, q string, k int) []models.RetrievedCandidate {
		return []models.RetrievedCandidate{{Descriptor: metrics}}
	})
	f.evaluator = evaluatorFunc(func(ctx context.Context, q string, c []models.RetrievedCandidate) models.EvaluationResult {
		return models.EvaluationResult{Essential: []models.TableDescriptor{metrics}}
	})
	f.generator = generatorFunc(func(ctx context.Context, q string, e []models.TableDescriptor) (models.GeneratedSQL, error) {
		return models.GeneratedSQL{Statement: "SELECT * FROM daily_metrics a CROSS JOIN daily_metrics b", TargetDatabase: "analytics_db"}, nil
	})
	f.validator = validatorFunc(func(ctx context.Context, q, s string, e []models.TableDescriptor) models.ValidationResult {
		return models.ValidationResult{IsValid: true, Statement: s}
	})
	f.executor = executorFunc(func(ctx context.Context, s, db string) models.ExecutionResult {
		return models.ExecutionResult{Success: false, Error: "query exceeded the statement timeout and was cancelled"}
	})

	answer, err := f.pipeline().Answer(context.Background(), "correlate every metric with every other metric")
	require.NoError(t, err)

	assert.Equal(t, OutcomeExecutionFailed, answer.Metadata.Outcome)
	assert.Contains(t, answer.Narrative, "statement timeout")
	require.NotNil(t, answer.SQL, "the attempted SQL stays visible for debugging")
}

func TestPipeline_EmptyQuestion(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline().Answer(context.Background(), "   ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyQuestion)
}
