// Docqd is a document question-answering daemon with an HTTP API.
//
// This binary starts the docqd HTTP server with full service initialization,
// including document parsing, embeddings, the vector store, and answer
// generation.
//
// Configuration is loaded from an optional YAML file and DOCQD_* environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	docqd
//
//	# Load a config file
//	docqd -config /etc/docqd/config.yaml
//
//	# Configure via environment
//	DOCQD_SERVER_PORT=9090 DOCQD_LLM_API_KEY=... docqd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqd/internal/answer"
	"github.com/fyrsmithlabs/docqd/internal/cache"
	"github.com/fyrsmithlabs/docqd/internal/chunker"
	"github.com/fyrsmithlabs/docqd/internal/config"
	"github.com/fyrsmithlabs/docqd/internal/document"
	"github.com/fyrsmithlabs/docqd/internal/embeddings"
	"github.com/fyrsmithlabs/docqd/internal/events"
	httpapi "github.com/fyrsmithlabs/docqd/internal/http"
	"github.com/fyrsmithlabs/docqd/internal/ingest"
	"github.com/fyrsmithlabs/docqd/internal/llm"
	"github.com/fyrsmithlabs/docqd/internal/logging"
	"github.com/fyrsmithlabs/docqd/internal/redact"
	"github.com/fyrsmithlabs/docqd/internal/telemetry"
	"github.com/fyrsmithlabs/docqd/internal/vectorstore"
	"github.com/fyrsmithlabs/docqd/internal/watch"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	// Parse command-line arguments
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()
	args := flag.Args()

	// Handle subcommands
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  docqd            Start the docqd daemon\n")
			fmt.Fprintf(os.Stderr, "  docqd version    Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handler
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	// Run server
	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("docqd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the docqd server and blocks until context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the structured logger
//  3. Opens infrastructure (vector store, answer cache, event publisher)
//  4. Creates the embedding, ingest, and answer services
//  5. Starts the drop-directory watcher when configured
//  6. Starts the HTTP server
//  7. Performs graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	// Load configuration (validated by the loader)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize telemetry first so the logger can bridge to OTEL
	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// Shutdown gets a fresh context; the run context is already
		// cancelled by the time this runs.
		_ = tel.Shutdown(context.Background())
	}()

	// Initialize logger
	appLogger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = appLogger.Sync() // Best-effort sync on shutdown
	}()
	logger := appLogger.Underlying()

	logger.Info("Starting docqd",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	// Initialize infrastructure dependencies
	deps, err := initDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	logger.Info("Dependencies initialized",
		zap.String("embeddings_provider", cfg.Embeddings.Provider),
		zap.String("vectorstore_provider", cfg.VectorStore.Provider),
		zap.Bool("events_enabled", cfg.Events.Enabled))

	// Initialize business services
	services := initServices(cfg, deps, logger)

	logger.Info("Services initialized",
		zap.Bool("ingest_service", services.ingestSvc != nil),
		zap.Bool("answer_service", services.answerSvc != nil))

	// Create HTTP server
	srv, err := httpapi.NewServer(services.ingestSvc, services.answerSvc, deps.publisher, logger, &cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start drop-directory watcher (if configured)
	if cfg.Watch.Dir != "" {
		watcher, err := watch.New(&cfg.Watch, cfg.Ingest.AllowedExtensions, services.ingestSvc, logger)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer watcher.Stop()
	}

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	// Start server
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Block until context cancellation or server failure
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown with the configured timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// dependencies holds all infrastructure dependencies.
type dependencies struct {
	docs        *document.Service
	redactor    *redact.Redactor
	splitter    *chunker.Splitter
	provider    embeddings.Provider
	store       vectorstore.Store
	answerCache cache.Cache
	llmClient   *llm.GeminiClient
	publisher   events.Publisher
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.publisher != nil {
		d.publisher.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
	if d.answerCache != nil {
		_ = d.answerCache.Close()
	}
	if d.provider != nil {
		_ = d.provider.Close()
	}
}

// services holds all business services.
type services struct {
	ingestSvc *ingest.Service
	answerSvc *answer.Service
}

// initLogger builds the structured logger from the application config,
// bridging to OTEL log export when enabled.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg, err := logging.NewConfig(&cfg.Logging)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logCfg, tel.LoggerProvider())
}

// initDependencies initializes all infrastructure dependencies.
//
// This function:
//  1. Creates the document validation and parsing service
//  2. Creates the secret redactor and text splitter
//  3. Creates the embedding provider
//  4. Opens the vector store and answer cache
//  5. Creates the LLM client and event publisher
//
// On partial failure, already-opened resources are closed before returning.
func initDependencies(cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	docs := document.NewService(&cfg.Ingest)

	redactor, err := redact.New(&cfg.Ingest.Redact)
	if err != nil {
		return nil, fmt.Errorf("failed to create redactor: %w", err)
	}

	splitter, err := chunker.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	provider, err := embeddings.NewProvider(&cfg.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings provider: %w", err)
	}

	logger.Info("Embeddings provider initialized",
		zap.String("provider", cfg.Embeddings.Provider),
		zap.String("model", cfg.Embeddings.Model),
		zap.Int("dimensions", cfg.Embeddings.Dimensions))

	store, err := vectorstore.NewStore(cfg, logger)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	logger.Info("Vector store initialized",
		zap.String("provider", cfg.VectorStore.Provider),
		zap.String("collection", cfg.VectorStore.Collection))

	answerCache, err := cache.NewCache(&cfg.Cache, logger)
	if err != nil {
		_ = store.Close()
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create answer cache: %w", err)
	}

	llmClient, err := llm.NewGeminiClient(&cfg.LLM)
	if err != nil {
		_ = answerCache.Close()
		_ = store.Close()
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	publisher, err := events.NewPublisher(&cfg.Events, logger)
	if err != nil {
		_ = answerCache.Close()
		_ = store.Close()
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	return &dependencies{
		docs:        docs,
		redactor:    redactor,
		splitter:    splitter,
		provider:    provider,
		store:       store,
		answerCache: answerCache,
		llmClient:   llmClient,
		publisher:   publisher,
	}, nil
}

// initServices wires the business services over the infrastructure
// dependencies.
func initServices(cfg *config.Config, deps *dependencies, logger *zap.Logger) *services {
	embedSvc := embeddings.NewService(deps.provider, &cfg.Embeddings, logger)

	ingestSvc := ingest.NewService(deps.docs, deps.redactor, deps.splitter, embedSvc, deps.store, deps.publisher, logger)

	answerer := answer.NewAnswerer(deps.llmClient, deps.answerCache, cfg.Cache.TTL.Duration(), logger)
	answerSvc := answer.NewService(embedSvc, deps.store, answerer, &cfg.Query, logger)

	return &services{
		ingestSvc: ingestSvc,
		answerSvc: answerSvc,
	}
}
