package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/schemaindex"
)

const retrieverCatalogYAML = `
tables:
  - database: sales_db
    table: customers
    description: Registered customers with contact details.
    columns:
      - name: customer_id
        type: integer
      - name: name
        type: text
  - database: sales_db
    table: orders
    description: Customer orders with status and total amount.
    columns:
      - name: order_id
        type: integer
      - name: total_amount
        type: numeric
  - database: analytics_db
    table: daily_metrics
    description: One row per day and metric.
    columns:
      - name: metric_date
        type: date
`

func retrieverEmbed(_ context.Context, text string) ([]float32, error) {
	const dims = 64
	vec := make([]float32, dims)
	for i, ch := range text {
		vec[(int(ch)+i)%dims] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

func TestSchemaRetriever_ReturnsRankedCandidates(t *testing.T) {
	catalog, err := schemaindex.ParseCatalog([]byte(retrieverCatalogYAML))
	require.NoError(t, err)
	index, err := schemaindex.NewInMemory(catalog, retrieverEmbed, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, index.Build(context.Background()))

	retriever := NewSchemaRetriever(index, zap.NewNop())
	candidates := retriever.Retrieve(context.Background(), "how many customers do we have", 5)

	require.NotEmpty(t, candidates)
	assert.LessOrEqual(t, len(candidates), 3)
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Similarity, candidates[i].Similarity)
	}
}

func TestSchemaRetriever_EmptyIndexIsNotAnError(t *testing.T) {
	catalog, err := schemaindex.ParseCatalog([]byte(retrieverCatalogYAML))
	require.NoError(t, err)
	index, err := schemaindex.NewInMemory(catalog, retrieverEmbed, zap.NewNop())
	require.NoError(t, err)

	retriever := NewSchemaRetriever(index, zap.NewNop())
	candidates := retriever.Retrieve(context.Background(), "anything at all", 5)
	assert.Empty(t, candidates)
}
