package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/adapters/datasource"
	_ "github.com/datasage-io/datasage-engine/pkg/adapters/datasource/mssql"
	_ "github.com/datasage-io/datasage-engine/pkg/adapters/datasource/postgres"
	"github.com/datasage-io/datasage-engine/pkg/config"
	"github.com/datasage-io/datasage-engine/pkg/handlers"
	"github.com/datasage-io/datasage-engine/pkg/llm"
	"github.com/datasage-io/datasage-engine/pkg/logging"
	"github.com/datasage-io/datasage-engine/pkg/mcp"
	"github.com/datasage-io/datasage-engine/pkg/middleware"
	"github.com/datasage-io/datasage-engine/pkg/pipeline"
	"github.com/datasage-io/datasage-engine/pkg/schemaindex"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatalf("datasage-engine: %v", err)
	}
}

func run() error {
	cfg, err := config.Load(Version)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting datasage-engine",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Int("database_targets", len(cfg.Databases)))

	client, err := newReasoningClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}
	// Every backend call gets its own deadline so a stalled backend ends the
	// question with a timeout instead of hanging it.
	client = llm.WithCallTimeout(client, cfg.LLM.CallTimeout)
	breaker := llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig())

	// Embeddings always go through an OpenAI-compatible endpoint, even when
	// the reasoning provider is anthropic.
	openaiEmbed, err := llm.NewClient(&llm.Config{
		Endpoint: cfg.EmbeddingEndpointOrDefault(),
		Model:    cfg.LLM.EmbeddingModel,
		APIKey:   cfg.EmbeddingAPIKeyOrDefault(),
	}, logger)
	if err != nil {
		return fmt.Errorf("create embedding client: %w", err)
	}
	embedClient := llm.WithCallTimeout(openaiEmbed, cfg.LLM.CallTimeout)
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedClient.CreateEmbedding(ctx, text, cfg.LLM.EmbeddingModel)
	}

	// Surface backend misconfiguration at startup instead of on the first
	// question. Failure is logged, not fatal, so local work without API keys
	// still gets the HTTP surface.
	if verify := llm.NewConnectionTester().Verify(context.Background(), client, embedClient, cfg.LLM.EmbeddingModel); !verify.Success {
		logger.Warn("llm connectivity check failed",
			zap.String("message", verify.Message),
			zap.String("llm", verify.LLMMessage),
			zap.String("embedding", verify.EmbeddingMessage))
	}

	catalog, err := schemaindex.LoadCatalog(cfg.Index.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	index, err := schemaindex.Open(cfg.Index.Path, cfg.Index.Collection, catalog, embed, logger)
	if err != nil {
		return fmt.Errorf("open schema index: %w", err)
	}
	if index.Count() == 0 {
		logger.Warn("schema index is empty; run scripts/build-index before serving questions",
			zap.String("path", cfg.Index.Path))
	}

	targets := make([]datasource.Target, 0, len(cfg.Databases))
	for _, db := range cfg.Databases {
		targets = append(targets, datasource.Target{Name: db.Name, Driver: db.Driver, DSN: db.DSN})
	}
	manager := datasource.NewManager(targets,
		datasource.Limits{
			StatementTimeout: cfg.Executor.StatementTimeout,
			MaxRows:          cfg.Executor.MaxRows,
		},
		datasource.PoolConfig{
			MaxConns: cfg.Executor.PoolMaxConns,
			MinConns: cfg.Executor.PoolMinConns,
		},
		logger)
	defer manager.Close()

	const dialect = "PostgreSQL"
	engine := pipeline.New(
		pipeline.NewIntentClassifier(client, breaker, cfg.Pipeline.ClarificationThreshold, logger),
		pipeline.NewSchemaRetriever(index, logger),
		pipeline.NewRetrievalEvaluator(client, breaker, cfg.Pipeline.RelevanceThreshold, logger),
		pipeline.NewSQLGenerator(client, breaker, dialect, logger),
		pipeline.NewSQLValidator(client, breaker, catalog.KnownTables(), dialect, cfg.Pipeline.MaxRepairAttempts, logger),
		pipeline.NewQueryExecutor(manager, cfg.Executor.MaxRows, logger),
		pipeline.NewInsightNarrator(client, breaker, cfg.LLM.CreativeTemperature, cfg.Pipeline.PreviewRows, logger),
		cfg.Index.TopK,
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewAskHandler(engine, logger).RegisterRoutes(mux)
	handlers.NewHealthHandler(cfg, index, manager, logger).RegisterRoutes(mux)

	mcpServer := mcp.NewServer("datasage-engine", cfg.Version, logger)
	mcp.RegisterTools(mcpServer.MCP(), &mcp.ToolDeps{
		Pipeline: engine,
		Catalog:  catalog,
		Logger:   logger,
	})
	mux.Handle("/mcp", mcpServer.NewStreamableHTTPServer())

	addr := cfg.Server.BindAddr + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: middleware.RequestLogger(logger)(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newReasoningClient builds the chat client for the configured provider.
func newReasoningClient(cfg *config.Config, logger *zap.Logger) (llm.LLMClient, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		return llm.NewAnthropicClient(&llm.AnthropicConfig{
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		}, logger)
	default:
		return llm.NewClient(&llm.Config{
			Endpoint: cfg.LLM.Endpoint,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
		}, logger)
	}
}
