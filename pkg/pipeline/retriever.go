package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/models"
	"github.com/datasage-io/datasage-engine/pkg/schemaindex"
)

// SchemaRetriever returns the ranked candidate tables for a question.
type SchemaRetriever interface {
	// Retrieve returns at most k candidates ordered by descending
	// similarity. An empty or unreachable index yields an empty list, not an
	// error; downstream treats that as "no tables found".
	Retrieve(ctx context.Context, question string, k int) []models.RetrievedCandidate
}

type schemaRetriever struct {
	index  *schemaindex.Index
	logger *zap.Logger
}

// NewSchemaRetriever creates the retriever over a built index.
func NewSchemaRetriever(index *schemaindex.Index, logger *zap.Logger) SchemaRetriever {
	return &schemaRetriever{
		index:  index,
		logger: logger.Named("schema-retriever"),
	}
}

var _ SchemaRetriever = (*schemaRetriever)(nil)

func (r *schemaRetriever) Retrieve(ctx context.Context, question string, k int) []models.RetrievedCandidate {
	start := time.Now()

	candidates, err := r.index.Search(ctx, question, k)
	if err != nil {
		r.logger.Warn("Index search failed, treating as no tables found", zap.Error(err))
		return nil
	}

	r.logger.Info("Candidates retrieved",
		zap.Int("count", len(candidates)),
		zap.Duration("elapsed", time.Since(start)))
	return candidates
}
