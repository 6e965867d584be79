// build-index builds the persisted semantic schema index from the catalog.
//
// It reads the table catalog (catalog/schema.yaml by default), embeds every
// table description through the configured embedding endpoint, and writes the
// chromem index to the configured index path. Run it whenever the catalog
// changes; the engine only searches the index, it never builds it.
//
// Usage: go run ./scripts/build-index
//
// Configuration comes from config.yaml / environment, same as the engine.
// EMBEDDING_API_KEY (or LLM_API_KEY) must be set for hosted endpoints.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/datasage-io/datasage-engine/pkg/config"
	"github.com/datasage-io/datasage-engine/pkg/llm"
	"github.com/datasage-io/datasage-engine/pkg/logging"
	"github.com/datasage-io/datasage-engine/pkg/schemaindex"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "build-index: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("dev")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	openaiEmbed, err := llm.NewClient(&llm.Config{
		Endpoint: cfg.EmbeddingEndpointOrDefault(),
		Model:    cfg.LLM.EmbeddingModel,
		APIKey:   cfg.EmbeddingAPIKeyOrDefault(),
	}, logger)
	if err != nil {
		return fmt.Errorf("create embedding client: %w", err)
	}
	embedClient := llm.WithCallTimeout(openaiEmbed, cfg.LLM.CallTimeout)

	catalog, err := schemaindex.LoadCatalog(cfg.Index.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedClient.CreateEmbedding(ctx, text, cfg.LLM.EmbeddingModel)
	}

	index, err := schemaindex.Open(cfg.Index.Path, cfg.Index.Collection, catalog, embed, logger)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	if err := index.Build(ctx); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	fmt.Printf("Indexed %d tables from %s into %s in %s\n",
		index.Count(), cfg.Index.CatalogPath, cfg.Index.Path, time.Since(start).Round(time.Millisecond))
	return nil
}
