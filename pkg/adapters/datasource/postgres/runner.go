// Package postgres implements the datasource.QueryRunner for PostgreSQL
// targets on top of pgx connection pools.
package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/adapters/datasource"
	"github.com/datasage-io/datasage-engine/pkg/logging"
)

// Runner executes bounded SELECT statements against one PostgreSQL database.
type Runner struct {
	pool   *pgxpool.Pool
	limits datasource.Limits
	logger *zap.Logger
}

// NewRunner opens a bounded pool for the target. The statement timeout is a
// session runtime parameter, so the server cancels runaway statements itself
// rather than relying on client-side cancellation alone.
func NewRunner(ctx context.Context, dsn string, limits datasource.Limits, pool datasource.PoolConfig, logger *zap.Logger) (*Runner, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if pool.MaxConns > 0 {
		cfg.MaxConns = pool.MaxConns
	}
	if pool.MinConns > 0 {
		cfg.MinConns = pool.MinConns
	}
	if limits.StatementTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(limits.StatementTimeout.Milliseconds(), 10)
	}

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &Runner{
		pool:   p,
		limits: limits,
		logger: logger.Named("postgres-runner"),
	}, nil
}

// RunQuery wraps the statement with a LIMIT of maxRows+1: receiving the
// extra row proves the underlying result was larger, which sets Truncated
// without ever fetching the full set.
func (r *Runner) RunQuery(ctx context.Context, sqlQuery string, maxRows int) (*datasource.QueryResult, error) {
	if maxRows <= 0 || maxRows > r.limits.MaxRows {
		maxRows = r.limits.MaxRows
	}

	if r.limits.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.limits.StatementTimeout)
		defer cancel()
	}

	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", sqlQuery, maxRows+1)

	rows, err := r.pool.Query(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("execute query: %s", logging.SanitizeError(err))
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = datasource.ColumnInfo{
			Name: string(fd.Name),
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if len(resultRows) == maxRows {
			truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %s", logging.SanitizeError(err))
	}

	return &datasource.QueryResult{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}

// Ping verifies the database is reachable.
func (r *Runner) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the pool.
func (r *Runner) Close() error {
	r.pool.Close()
	return nil
}

var _ datasource.QueryRunner = (*Runner)(nil)
