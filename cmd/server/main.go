package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/newsmind/newsmind/internal/api"
	"github.com/newsmind/newsmind/internal/config"
	"github.com/newsmind/newsmind/internal/core"
	"github.com/newsmind/newsmind/internal/llm"
	"github.com/newsmind/newsmind/internal/news"
	"github.com/newsmind/newsmind/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	logger := newLogger(config.AppConfig.LogLevel)
	slog.SetDefault(logger)

	// Command line flags for one-shot ingestion runs
	ingestTopics := flag.String("ingest", "", "Comma-separated topics to ingest, then exit")
	ingestProvider := flag.String("provider", "", "LLM provider for ingestion (openai or gemini)")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to initialize database", "err", err)
		os.Exit(1)
	}
	defer dbStore.Close()

	ctx := context.Background()

	// Initialize LLM providers. Gemini also serves as the embedder for both
	// ingestion and retrieval, so corpus and query vectors share one model.
	geminiProvider, err := llm.NewGeminiProvider(ctx, config.AppConfig.GeminiAPIKey, logger)
	if err != nil {
		logger.Error("failed to initialize Gemini provider", "err", err)
		os.Exit(1)
	}
	defer geminiProvider.Close()

	providers := llm.NewRegistry()
	providers.Register(llm.BackendGemini, geminiProvider)
	if config.AppConfig.OpenAIAPIKey != "" {
		providers.Register(llm.BackendOpenAI, llm.NewOpenAIProvider(config.AppConfig.OpenAIAPIKey, logger))
	} else {
		logger.Warn("OPENAI_API_KEY not set, openai backend unavailable")
	}

	// Initialize ingestion pipeline
	fetcher := news.NewFetcher("", config.AppConfig.NewsAPIKey, config.AppConfig.IngestPageSize, nil, logger)
	extractor := news.NewExtractor(config.AppConfig.ExtractMinChars, config.AppConfig.ExtractMaxChars, nil, logger)

	ingestService, err := core.NewIngestService(core.IngestDeps{
		Store:     dbStore,
		Fetcher:   fetcher,
		Extractor: extractor,
		Providers: providers,
		Embedder:  geminiProvider,
		PoolSize:  config.AppConfig.IngestPoolSize,
		Window:    24 * time.Hour,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to initialize ingest service", "err", err)
		os.Exit(1)
	}
	defer ingestService.Release()

	// Handle one-shot ingestion if the flag is set
	if *ingestTopics != "" {
		runIngestion(ctx, ingestService, *ingestTopics, *ingestProvider, logger)
		return
	}

	// Initialize RAG service
	ragService := core.NewRAGService(dbStore, geminiProvider, providers,
		config.AppConfig.RetrievalTopK, config.AppConfig.SimilarityTieEpsilon, logger)

	// Initialize Chat service
	chatService := core.NewChatService(dbStore, ragService, logger)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, ingestService, dbStore, logger)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("starting server", "addr", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "addr", serverAddr, "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give active connections time to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
		os.Exit(1)
	}

	logger.Info("server exiting gracefully")
}

func runIngestion(ctx context.Context, ingestService *core.IngestService, rawTopics, rawProvider string, logger *slog.Logger) {
	backend, err := llm.ParseBackend(rawProvider)
	if err != nil {
		logger.Error("invalid provider", "provider", rawProvider, "err", err)
		os.Exit(1)
	}

	var topics []string
	for _, topic := range strings.Split(rawTopics, ",") {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}
	if len(topics) == 0 {
		logger.Error("no topics to ingest")
		os.Exit(1)
	}

	logger.Info("starting ingestion run", "topics", topics, "backend", backend)
	reports, err := ingestService.Run(ctx, topics, backend)
	if err != nil {
		logger.Error("ingestion run failed", "err", err)
		os.Exit(1)
	}
	for _, report := range reports {
		logger.Info("ingestion report", "topic", report.Topic,
			"fetched", report.Fetched, "extracted", report.Extracted, "persisted", report.Persisted)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
