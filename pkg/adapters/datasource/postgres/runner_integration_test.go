package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/adapters/datasource"
	"github.com/datasage-io/datasage-engine/pkg/testhelpers"
)

func integrationRunner(t *testing.T, limits datasource.Limits) *Runner {
	t.Helper()
	db := testhelpers.GetTestDB(t)

	runner, err := NewRunner(context.Background(), db.ConnStr, limits,
		datasource.PoolConfig{MaxConns: 2, MinConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = runner.Close() })
	return runner
}

func TestRunner_RunQuery_Integration(t *testing.T) {
	runner := integrationRunner(t, datasource.Limits{
		StatementTimeout: 30 * time.Second,
		MaxRows:          10000,
	})

	result, err := runner.RunQuery(context.Background(),
		"SELECT name, country FROM customers ORDER BY customer_id", 0)
	require.NoError(t, err)

	require.Len(t, result.Columns, 2)
	assert.Equal(t, "name", result.Columns[0].Name)
	assert.Equal(t, "text", result.Columns[0].Type)
	assert.Equal(t, 4, result.RowCount)
	assert.False(t, result.Truncated)
	assert.Equal(t, "Acme Corp", result.Rows[0]["name"])
	assert.Nil(t, result.Rows[3]["country"], "NULL survives as nil")
}

func TestRunner_RowCap_Integration(t *testing.T) {
	runner := integrationRunner(t, datasource.Limits{
		StatementTimeout: 30 * time.Second,
		MaxRows:          10000,
	})

	result, err := runner.RunQuery(context.Background(), "SELECT order_id FROM orders", 10)
	require.NoError(t, err)

	assert.Equal(t, 10, result.RowCount, "row cap bounds the result")
	assert.True(t, result.Truncated, "rows past the cap mark truncation")

	exact, err := runner.RunQuery(context.Background(), "SELECT order_id FROM orders LIMIT 10", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, exact.RowCount)
	assert.False(t, exact.Truncated, "a result exactly at the cap is not truncated")
}

func TestRunner_StatementTimeout_Integration(t *testing.T) {
	runner := integrationRunner(t, datasource.Limits{
		StatementTimeout: 500 * time.Millisecond,
		MaxRows:          100,
	})

	start := time.Now()
	_, err := runner.RunQuery(context.Background(), "SELECT pg_sleep(30)", 0)
	assert.Error(t, err, "a runaway statement is cancelled, not awaited")
	assert.Less(t, time.Since(start), 10*time.Second)
}
