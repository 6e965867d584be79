package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/llm"
	"github.com/datasage-io/datasage-engine/pkg/models"
)

func descriptor(db, table string, columns ...string) models.TableDescriptor {
	d := models.TableDescriptor{Database: db, Table: table}
	for _, c := range columns {
		d.Columns = append(d.Columns, models.ColumnDescription{Name: c, Type: "text"})
	}
	return d
}

func TestSQLGenerator_Generate(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64, thinking bool) (*llm.GenerateResponseResult, error) {
		assert.Zero(t, temperature, "generation must be deterministic")
		return &llm.GenerateResponseResult{Content: "```sql\nSELECT name FROM customers;\n```"}, nil
	}

	g := NewSQLGenerator(mock, newTestBreaker(), "PostgreSQL", zap.NewNop())
	result, err := g.Generate(context.Background(), "list customer names", []models.TableDescriptor{
		descriptor("sales_db", "customers", "customer_id", "name"),
	})

	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM customers", result.Statement, "fences and semicolon stripped")
	assert.Equal(t, "sales_db", result.TargetDatabase)
}

func TestSQLGenerator_ScopesToMajorityDatabase(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64, thinking bool) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: "SELECT 1"}, nil
	}

	g := NewSQLGenerator(mock, newTestBreaker(), "PostgreSQL", zap.NewNop())
	result, err := g.Generate(context.Background(), "orders and products", []models.TableDescriptor{
		descriptor("sales_db", "orders"),
		descriptor("sales_db", "customers"),
		descriptor("products_db", "products"),
	})

	require.NoError(t, err)
	assert.Equal(t, "sales_db", result.TargetDatabase)

	require.Len(t, mock.Prompts, 1)
	assert.Contains(t, mock.Prompts[0], "sales_db.orders")
	assert.Contains(t, mock.Prompts[0], "sales_db.customers")
	assert.NotContains(t, mock.Prompts[0], "products_db.products",
		"tables outside the target database stay out of the prompt")
}

func TestSQLGenerator_Errors(t *testing.T) {
	t.Run("empty essential set", func(t *testing.T) {
		g := NewSQLGenerator(llm.NewMockLLMClient(), newTestBreaker(), "PostgreSQL", zap.NewNop())
		_, err := g.Generate(context.Background(), "anything", nil)
		assert.Error(t, err)
	})

	t.Run("open circuit", func(t *testing.T) {
		mock := llm.NewMockLLMClient()
		g := NewSQLGenerator(mock, openBreaker(), "PostgreSQL", zap.NewNop())
		_, err := g.Generate(context.Background(), "anything", []models.TableDescriptor{
			descriptor("sales_db", "orders"),
		})
		assert.Error(t, err)
		assert.Zero(t, mock.GenerateResponseCalls)
	})

	t.Run("backend failure", func(t *testing.T) {
		mock := llm.NewMockLLMClient()
		mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64, thinking bool) (*llm.GenerateResponseResult, error) {
			return nil, fmt.Errorf("invalid request")
		}
		g := NewSQLGenerator(mock, newTestBreaker(), "PostgreSQL", zap.NewNop())
		_, err := g.Generate(context.Background(), "anything", []models.TableDescriptor{
			descriptor("sales_db", "orders"),
		})
		assert.Error(t, err)
	})

	t.Run("empty statement", func(t *testing.T) {
		mock := llm.NewMockLLMClient()
		mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64, thinking bool) (*llm.GenerateResponseResult, error) {
			return &llm.GenerateResponseResult{Content: "```sql\n```"}, nil
		}
		g := NewSQLGenerator(mock, newTestBreaker(), "PostgreSQL", zap.NewNop())
		_, err := g.Generate(context.Background(), "anything", []models.TableDescriptor{
			descriptor("sales_db", "orders"),
		})
		assert.Error(t, err)
	})
}
