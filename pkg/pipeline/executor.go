package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/adapters/datasource"
	"github.com/datasage-io/datasage-engine/pkg/logging"
	"github.com/datasage-io/datasage-engine/pkg/models"
)

// QueryExecutor runs a validator-approved statement against exactly one
// target database under the hard resource limits.
type QueryExecutor interface {
	// Execute returns a structured result in every case; database-level
	// failures populate Error instead of propagating.
	Execute(ctx context.Context, sqlQuery, targetDatabase string) models.ExecutionResult
}

type queryExecutor struct {
	manager *datasource.Manager
	maxRows int
	logger  *zap.Logger
}

// NewQueryExecutor creates the executor over the target manager.
func NewQueryExecutor(manager *datasource.Manager, maxRows int, logger *zap.Logger) QueryExecutor {
	return &queryExecutor{
		manager: manager,
		maxRows: maxRows,
		logger:  logger.Named("query-executor"),
	}
}

var _ QueryExecutor = (*queryExecutor)(nil)

func (e *queryExecutor) Execute(ctx context.Context, sqlQuery, targetDatabase string) models.ExecutionResult {
	start := time.Now()

	fail := func(msg string) models.ExecutionResult {
		return models.ExecutionResult{
			Success:   false,
			Error:     msg,
			ElapsedMs: time.Since(start).Milliseconds(),
		}
	}

	runner, err := e.manager.Runner(ctx, targetDatabase)
	if err != nil {
		e.logger.Error("Target database unavailable",
			zap.String("target", targetDatabase),
			zap.String("error", logging.SanitizeError(err)))
		return fail("target database unavailable: " + targetDatabase)
	}

	result, err := runner.RunQuery(ctx, sqlQuery, e.maxRows)
	if err != nil {
		sanitized := logging.SanitizeError(err)
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(sanitized) {
			e.logger.Warn("Statement cancelled at the database timeout",
				zap.String("target", targetDatabase),
				zap.String("statement", logging.SanitizeStatement(sqlQuery)))
			return fail("query exceeded the statement timeout and was cancelled")
		}
		e.logger.Error("Query execution failed",
			zap.String("target", targetDatabase),
			zap.String("statement", logging.SanitizeStatement(sqlQuery)),
			zap.String("error", sanitized))
		return fail("query execution failed: " + sanitized)
	}

	columns := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		columns[i] = c.Name
	}
	rows := make([]models.Row, len(result.Rows))
	for i, r := range result.Rows {
		rows[i] = models.Row(r)
	}

	elapsed := time.Since(start)
	e.logger.Info("Query executed",
		zap.String("target", targetDatabase),
		zap.Int("rows", result.RowCount),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", elapsed))

	return models.ExecutionResult{
		Success:   true,
		Columns:   columns,
		Rows:      rows,
		RowCount:  result.RowCount,
		Truncated: result.Truncated,
		ElapsedMs: elapsed.Milliseconds(),
	}
}

func isTimeout(errStr string) bool {
	lower := strings.ToLower(errStr)
	for _, marker := range []string{"statement timeout", "canceling statement", "context deadline exceeded", "query timeout"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
