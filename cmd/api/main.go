package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"rfp-assistant/internal/config"
	"rfp-assistant/internal/http"
	"rfp-assistant/internal/ingest"
	"rfp-assistant/internal/llm"
	"rfp-assistant/internal/rag"
	"rfp-assistant/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Create OpenAI clients
	embedder := llm.NewEmbeddingsClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.QdrantVectorSize)
	generator := llm.NewClient(cfg.OpenAIAPIKey, cfg.ChatModel)
	slog.Info("OpenAI clients configured", "embedding_model", cfg.EmbeddingModel, "chat_model", cfg.ChatModel)

	// Create ingestion coordinator
	coordinator := ingest.NewCoordinator(embedder, vectorStore, cfg.QdrantCollection)

	// Create RAG engine
	ragEngine := rag.NewEngine(embedder, vectorStore, cfg.QdrantCollection, generator)
	slog.Info("RAG engine initialized")

	// Create router with dependencies
	deps := &http.Deps{
		Ingestor:    coordinator,
		RAGEngine:   ragEngine,
		VectorStore: vectorStore,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
