package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectStatementType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  StatementType
	}{
		{"simple select", "SELECT * FROM customers", TypeSelect},
		{"lowercase select", "select count(*) from orders", TypeSelect},
		{"leading whitespace", "  \n\tSELECT 1", TypeSelect},
		{"cte select", "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent", TypeSelect},
		{"modifying cte", "WITH gone AS (DELETE FROM orders RETURNING *) SELECT * FROM gone", TypeUnknown},
		{"insert", "INSERT INTO customers VALUES (1)", TypeInsert},
		{"update", "UPDATE customers SET name = 'x'", TypeUpdate},
		{"delete", "DELETE FROM customers", TypeDelete},
		{"call", "CALL refresh_stats()", TypeCall},
		{"create", "CREATE TABLE t (id int)", TypeDDL},
		{"drop", "DROP TABLE customers", TypeDDL},
		{"truncate", "TRUNCATE customers", TypeDDL},
		{"begin", "BEGIN", TypeUnknown},
		{"garbage", "HELLO WORLD", TypeUnknown},
		{"empty", "", TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectStatementType(tt.input))
		})
	}
}

func TestIsReadOnly(t *testing.T) {
	assert.True(t, IsReadOnly(TypeSelect))
	assert.False(t, IsReadOnly(TypeInsert))
	assert.False(t, IsReadOnly(TypeDDL))
	assert.False(t, IsReadOnly(TypeUnknown))
}
