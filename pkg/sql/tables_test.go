package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTableRefs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single table",
			input: "SELECT * FROM customers",
			want:  []string{"customers"},
		},
		{
			name:  "join",
			input: "SELECT * FROM customers c JOIN orders o ON o.customer_id = c.customer_id",
			want:  []string{"customers", "orders"},
		},
		{
			name:  "left join and schema qualifier",
			input: "SELECT * FROM public.orders o LEFT JOIN public.payments p ON p.order_id = o.order_id",
			want:  []string{"orders", "payments"},
		},
		{
			name:  "duplicate refs collapse",
			input: "SELECT * FROM orders WHERE id IN (SELECT order_id FROM orders)",
			want:  []string{"orders"},
		},
		{
			name:  "case normalized",
			input: "SELECT * FROM Customers JOIN ORDERS ON 1=1",
			want:  []string{"customers", "orders"},
		},
		{
			name:  "table name inside literal ignored",
			input: "SELECT * FROM orders WHERE note = 'from secret_table'",
			want:  []string{"orders"},
		},
		{
			name:  "no tables",
			input: "SELECT 1",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTableRefs(tt.input))
		})
	}
}

func TestExtractCTENames(t *testing.T) {
	input := "WITH recent AS (SELECT * FROM orders), totals AS (SELECT 1) SELECT * FROM recent JOIN totals ON 1=1"

	names := ExtractCTENames(input)
	assert.Equal(t, []string{"recent", "totals"}, names)

	refs := ExtractTableRefs(input)
	assert.Contains(t, refs, "orders")
}
