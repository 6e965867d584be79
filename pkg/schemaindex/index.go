package schemaindex

import (
	"context"
	"fmt"
	"sort"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/models"
)

// MaxTopK caps how many candidates a single retrieval may return.
const MaxTopK = 10

// EmbedFunc embeds one text. The llm client is bridged to this shape so the
// index package does not depend on a concrete backend.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Index is the semantic search surface over the catalog. Writes happen only
// in Build (offline); Search is read-only and safe for concurrent use.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	catalog    *Catalog
	logger     *zap.Logger
}

// Open loads (or creates) a persisted index at path and binds it to the
// catalog. Documents are persisted gob-compressed, so the offline builder and
// the engine share one on-disk index.
func Open(path, collection string, catalog *Catalog, embed EmbedFunc, logger *zap.Logger) (*Index, error) {
	db, err := chromem.NewPersistentDB(path, true)
	if err != nil {
		return nil, fmt.Errorf("open index at %s: %w", path, err)
	}

	col, err := db.GetOrCreateCollection(collection, nil, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collection, err)
	}

	return &Index{
		db:         db,
		collection: col,
		catalog:    catalog,
		logger:     logger.Named("schema-index"),
	}, nil
}

// NewInMemory creates an unpersisted index, used by tests and the offline
// builder before persisting.
func NewInMemory(catalog *Catalog, embed EmbedFunc, logger *zap.Logger) (*Index, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection("tables", nil, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Index{
		db:         db,
		collection: col,
		catalog:    catalog,
		logger:     logger.Named("schema-index"),
	}, nil
}

// Build embeds every catalog descriptor and stores it. Existing documents
// with the same ID are overwritten, so rebuilding is idempotent.
func (ix *Index) Build(ctx context.Context) error {
	descriptors := ix.catalog.Descriptors()
	docs := make([]chromem.Document, len(descriptors))
	for i, d := range descriptors {
		docs[i] = chromem.Document{
			ID:      d.ID(),
			Content: DescriptorDocument(d),
			Metadata: map[string]string{
				"database": d.Database,
				"table":    d.Table,
			},
		}
	}

	if err := ix.collection.AddDocuments(ctx, docs, 2); err != nil {
		return fmt.Errorf("embed catalog: %w", err)
	}

	ix.logger.Info("Schema index built", zap.Int("tables", len(docs)))
	return nil
}

// Count returns the number of indexed tables.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

// Search returns up to k candidates ordered by descending similarity, ties
// broken by catalog order so retrieval is reproducible. An empty index
// yields an empty result, not an error; the caller routes that to a graceful
// no-results outcome.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]models.RetrievedCandidate, error) {
	if k <= 0 {
		k = 5
	}
	if k > MaxTopK {
		k = MaxTopK
	}

	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := ix.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("index query: %w", err)
	}

	order := make(map[string]int, ix.catalog.Len())
	for i, d := range ix.catalog.Descriptors() {
		order[d.ID()] = i
	}

	candidates := make([]models.RetrievedCandidate, 0, len(results))
	for _, r := range results {
		descriptor, ok := ix.catalog.ByID(r.ID)
		if !ok {
			// Stale document from an older catalog; never fabricate a table.
			ix.logger.Warn("Indexed table missing from catalog", zap.String("id", r.ID))
			continue
		}
		candidates = append(candidates, models.RetrievedCandidate{
			Descriptor: descriptor,
			Similarity: float64(r.Similarity),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return order[candidates[i].Descriptor.ID()] < order[candidates[j].Descriptor.ID()]
	})

	return candidates, nil
}
