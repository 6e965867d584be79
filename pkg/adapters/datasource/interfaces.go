// Package datasource provides bounded query sessions against the target
// relational databases. One session provider exists per configured target;
// every session enforces the statement timeout and row cap at the database
// level, independently of upstream validation.
package datasource

import (
	"context"
	"time"
)

// Limits are the hard resource bounds every session enforces. A runaway
// statement is cancelled at the database, not truncated after completing.
type Limits struct {
	StatementTimeout time.Duration
	MaxRows          int
}

// ColumnInfo describes a result column with its database type name.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds a bounded result set. Truncated is set when the
// underlying result was larger than the row cap.
type QueryResult struct {
	Columns   []ColumnInfo     `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
}

// QueryRunner runs validator-approved SELECT statements against one target
// database from a bounded connection pool. Implementations perform no safety
// judgment beyond the resource limits.
type QueryRunner interface {
	// RunQuery executes the statement with the session timeout and row cap
	// applied. maxRows <= 0 falls back to the runner's configured limit.
	RunQuery(ctx context.Context, sqlQuery string, maxRows int) (*QueryResult, error)

	// Ping verifies the target is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}
