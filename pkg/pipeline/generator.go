package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/llm"
	"github.com/datasage-io/datasage-engine/pkg/models"
	"github.com/datasage-io/datasage-engine/pkg/prompts"
	"github.com/datasage-io/datasage-engine/pkg/retry"
)

// SQLGenerator synthesizes one provisional SELECT statement from the
// essential tables. It performs no safety enforcement; that is strictly the
// validator's job.
type SQLGenerator interface {
	Generate(ctx context.Context, question string, essential []models.TableDescriptor) (models.GeneratedSQL, error)
}

type sqlGenerator struct {
	client         llm.LLMClient
	circuitBreaker *llm.CircuitBreaker
	dialect        string
	logger         *zap.Logger
}

// NewSQLGenerator creates the generator. dialect names the target SQL
// dialect in the prompt (e.g. "PostgreSQL").
func NewSQLGenerator(client llm.LLMClient, cb *llm.CircuitBreaker, dialect string, logger *zap.Logger) SQLGenerator {
	return &sqlGenerator{
		client:         client,
		circuitBreaker: cb,
		dialect:        dialect,
		logger:         logger.Named("sql-generator"),
	}
}

var _ SQLGenerator = (*sqlGenerator)(nil)

func (g *sqlGenerator) Generate(ctx context.Context, question string, essential []models.TableDescriptor) (models.GeneratedSQL, error) {
	start := time.Now()

	if len(essential) == 0 {
		return models.GeneratedSQL{}, fmt.Errorf("no essential tables to generate from")
	}

	target, scoped := resolveTargetDatabase(essential)
	if len(scoped) < len(essential) {
		// Cross-database joins are out of scope; generation is constrained
		// to the database holding most of the essential set.
		g.logger.Warn("Essential tables span databases, scoping to one",
			zap.String("target", target),
			zap.Int("kept", len(scoped)),
			zap.Int("dropped", len(essential)-len(scoped)))
	}

	if allowed, err := g.circuitBreaker.Allow(); !allowed {
		return models.GeneratedSQL{}, fmt.Errorf("reasoning backend unavailable: %w", err)
	}

	prompt := prompts.BuildGenerationPrompt(question, scoped)
	system := prompts.GenerationSystemMessage(g.dialect)

	var result *llm.GenerateResponseResult
	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		var callErr error
		// Temperature 0: repeated runs on identical input stay stable.
		result, callErr = g.client.GenerateResponse(ctx, prompt, system, 0, false)
		return callErr
	})
	if err != nil {
		g.circuitBreaker.RecordFailure()
		g.logger.Error("Generation backend call failed",
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
		return models.GeneratedSQL{}, fmt.Errorf("generate sql: %w", err)
	}
	g.circuitBreaker.RecordSuccess()

	statement := prompts.StripSQLResponse(llm.StripThinking(result.Content))
	if statement == "" {
		return models.GeneratedSQL{}, fmt.Errorf("backend returned an empty statement")
	}

	elapsed := time.Since(start)
	g.logger.Info("SQL generated",
		zap.String("target", target),
		zap.Int("statement_len", len(statement)),
		zap.Duration("elapsed", elapsed))

	return models.GeneratedSQL{
		Statement:      statement,
		TargetDatabase: target,
		ElapsedMs:      elapsed.Milliseconds(),
	}, nil
}

// resolveTargetDatabase picks the database holding the most essential tables
// (first occurrence wins ties) and returns that database's tables.
func resolveTargetDatabase(essential []models.TableDescriptor) (string, []models.TableDescriptor) {
	counts := make(map[string]int, len(essential))
	best := essential[0].Database
	for _, d := range essential {
		counts[d.Database]++
		if counts[d.Database] > counts[best] {
			best = d.Database
		}
	}

	scoped := make([]models.TableDescriptor, 0, len(essential))
	for _, d := range essential {
		if d.Database == best {
			scoped = append(scoped, d)
		}
	}
	return best, scoped
}
