// Package mssql implements the datasource.QueryRunner for SQL Server
// targets via database/sql and the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // registers the sqlserver driver
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/adapters/datasource"
	"github.com/datasage-io/datasage-engine/pkg/logging"
)

// Runner executes bounded SELECT statements against one SQL Server database.
type Runner struct {
	db     *sql.DB
	limits datasource.Limits
	logger *zap.Logger
}

// NewRunner opens a bounded database/sql pool for the target. go-mssqldb
// propagates context cancellation to the server as an attention signal, so
// the context timeout cancels runaway statements server-side.
func NewRunner(ctx context.Context, dsn string, limits datasource.Limits, pool datasource.PoolConfig, logger *zap.Logger) (*Runner, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}

	if pool.MaxConns > 0 {
		db.SetMaxOpenConns(int(pool.MaxConns))
		db.SetMaxIdleConns(int(pool.MaxConns))
	}

	return &Runner{
		db:     db,
		limits: limits,
		logger: logger.Named("mssql-runner"),
	}, nil
}

// RunQuery executes the statement as-is and enforces the row cap while
// fetching: once maxRows rows are scanned and one more exists, iteration
// stops and the result is marked truncated. SQL Server offers no safe
// statement rewrite here: a derived table rejects an inner ORDER BY, and
// OFFSET/FETCH requires one. Closing the rows cancels the remainder
// server-side via the attention signal.
func (r *Runner) RunQuery(ctx context.Context, sqlQuery string, maxRows int) (*datasource.QueryResult, error) {
	if maxRows <= 0 || maxRows > r.limits.MaxRows {
		maxRows = r.limits.MaxRows
	}

	if r.limits.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.limits.StatementTimeout)
		defer cancel()
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("execute query: %s", logging.SanitizeError(err))
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("get column types: %w", err)
	}

	columns := make([]datasource.ColumnInfo, len(columnNames))
	for i, name := range columnNames {
		columns[i] = datasource.ColumnInfo{
			Name: name,
			Type: columnTypes[i].DatabaseTypeName(),
		}
	}

	resultRows := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if len(resultRows) == maxRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = normalizeValue(values[i])
		}
		resultRows = append(resultRows, rowMap)
	}

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

// normalizeValue converts driver byte slices to strings so rows serialize
// cleanly to JSON.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Ping verifies the database is reachable.
func (r *Runner) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the pool.
func (r *Runner) Close() error {
	return r.db.Close()
}

var _ datasource.QueryRunner = (*Runner)(nil)
