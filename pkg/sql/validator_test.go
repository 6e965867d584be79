package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndNormalize_SingleStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare select",
			input:    "SELECT COUNT(*) FROM customers",
			expected: "SELECT COUNT(*) FROM customers",
		},
		{
			name:     "trailing semicolon stripped",
			input:    "SELECT COUNT(*) FROM customers;",
			expected: "SELECT COUNT(*) FROM customers",
		},
		{
			name:     "trailing semicolon and whitespace",
			input:    "SELECT status FROM orders;  ",
			expected: "SELECT status FROM orders",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  SELECT name FROM sellers  ",
			expected: "SELECT name FROM sellers",
		},
		{
			name:     "semicolon inside a literal is data",
			input:    "SELECT * FROM customers WHERE name = 'a;b'",
			expected: "SELECT * FROM customers WHERE name = 'a;b'",
		},
		{
			name:     "semicolon inside a quoted identifier",
			input:    `SELECT * FROM "odd;name"`,
			expected: `SELECT * FROM "odd;name"`,
		},
		{
			name:     "doubled quote stays inside the literal",
			input:    "SELECT * FROM customers WHERE name = 'O''Brien'",
			expected: "SELECT * FROM customers WHERE name = 'O''Brien'",
		},
		{
			name:     "literal semicolon plus trailing semicolon",
			input:    "SELECT * FROM products WHERE category = 'tools;misc';",
			expected: "SELECT * FROM products WHERE category = 'tools;misc'",
		},
		{
			name: "join across demo tables",
			input: "SELECT c.name, o.total_amount FROM customers c " +
				"JOIN orders o ON o.customer_id = c.customer_id;",
			expected: "SELECT c.name, o.total_amount FROM customers c " +
				"JOIN orders o ON o.customer_id = c.customer_id",
		},
		{
			name:     "multiline statement",
			input:    "SELECT metric_name\nFROM daily_metrics\nWHERE metric_value > 0;",
			expected: "SELECT metric_name\nFROM daily_metrics\nWHERE metric_value > 0",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			require.NoError(t, result.Error)
			assert.Equal(t, tt.expected, result.NormalizedSQL)
		})
	}
}

func TestValidateAndNormalize_StackedStatements(t *testing.T) {
	inputs := []string{
		"SELECT 1; SELECT 2",
		"SELECT 1; SELECT 2;",
		"SELECT 1;SELECT 2",
		"SELECT COUNT(*) FROM orders; DROP TABLE orders",
		"SELECT * FROM customers WHERE 1=1; DELETE FROM customers",
		"SELECT 1; SELECT 2; SELECT 3;",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			result := ValidateAndNormalize(input)
			assert.ErrorIs(t, result.Error, ErrMultipleStatements)
		})
	}
}

func TestHasSemicolonOutsideStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{
			name:     "no semicolons",
			input:    "SELECT COUNT(*) FROM payments",
			expected: false,
		},
		{
			name:     "separator semicolon",
			input:    "SELECT 1; SELECT 2",
			expected: true,
		},
		{
			name:     "semicolon inside a literal",
			input:    "SELECT 'a;b'",
			expected: false,
		},
		{
			name:     "semicolon inside a quoted identifier",
			input:    `SELECT "a;b"`,
			expected: false,
		},
		{
			name:     "literal semicolon and a real separator",
			input:    "SELECT 'a;b'; SELECT 1",
			expected: true,
		},
		{
			name:     "doubled quote with semicolon inside",
			input:    "SELECT 'it''s;here'",
			expected: false,
		},
		{
			name:     "backslash-escaped quote",
			input:    `SELECT 'test\';more'`,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, hasSemicolonOutsideStrings(tt.input))
		})
	}
}

func TestStripTrailingSemicolon(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no semicolon",
			input:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "trailing semicolon",
			input:    "SELECT 1;",
			expected: "SELECT 1",
		},
		{
			name:     "semicolon then whitespace",
			input:    "SELECT 1;  ",
			expected: "SELECT 1",
		},
		{
			name:     "whitespace before semicolon",
			input:    "SELECT 1 ;",
			expected: "SELECT 1",
		},
		{
			name:     "only one semicolon stripped",
			input:    "SELECT 1;;",
			expected: "SELECT 1;",
		},
		{
			name:     "tabs and newlines after semicolon",
			input:    "SELECT 1;\t\n",
			expected: "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripTrailingSemicolon(tt.input))
		})
	}
}
