package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"rfp-assistant/internal/contextutil"
	"rfp-assistant/internal/llm"
	"rfp-assistant/internal/vectorstore"
)

// TopK is how many nearest entries are retrieved per query.
const TopK = 5

// Engine provides retrieval-augmented question answering over the
// ingested RFP records.
type Engine interface {
	// Query answers a question by retrieving relevant records and
	// conditioning the generation model on them.
	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	embedder   llm.Embedder
	store      vectorstore.VectorStore
	collection string
	generator  llm.Generator
}

// NewEngine creates a new RAG engine.
func NewEngine(embedder llm.Embedder, store vectorstore.VectorStore, collection string, generator llm.Generator) Engine {
	return &ragEngine{
		embedder:   embedder,
		store:      store,
		collection: collection,
		generator:  generator,
	}
}

// Query answers a question using RAG. Any failure embedding the question,
// searching the store or generating the answer fails the whole call; zero
// retrieved matches is not an error.
func (e *ragEngine) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	logger.InfoContext(ctx, "RAG query started",
		"question", req.Question,
		"category", req.Filters.Category,
		"sheet_name", req.Filters.SheetName,
	)

	embeddings, err := e.embedder.EmbedTexts(ctx, []string{req.Question})
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed question", "error", err)
		return QueryResponse{}, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(embeddings) == 0 {
		return QueryResponse{}, fmt.Errorf("no embedding returned for question")
	}
	queryVector := embeddings[0]

	// With no caller-supplied filters, require the category payload field
	// to be present. Entries stored without one are malformed or legacy
	// and are excluded from retrieval.
	filter := vectorstore.Filter{
		Category:  req.Filters.Category,
		SheetName: req.Filters.SheetName,
	}
	if filter.Category == "" && filter.SheetName == "" {
		filter.CategoryPresent = true
	}

	matches, err := e.store.Search(ctx, e.collection, queryVector, TopK, filter)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search vector store", "error", err)
		return QueryResponse{}, fmt.Errorf("failed to search vector store: %w", err)
	}

	contexts := make([]Context, 0, len(matches))
	for _, match := range matches {
		contexts = append(contexts, matchToContext(match))
	}

	logger.InfoContext(ctx, "vector search completed", "results", len(contexts))

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserMessage(contexts, req.Question)},
	}

	answer, err := e.generator.Complete(ctx, messages)
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate answer", "error", err)
		return QueryResponse{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	logger.InfoContext(ctx, "RAG query completed", "sources", len(contexts), "answer_length", len(answer))

	return QueryResponse{
		Answer:  answer,
		Sources: contexts,
	}, nil
}

// matchToContext rebuilds a Context from a vector-store match, decoding
// the original row data from its stored JSON string form.
func matchToContext(match vectorstore.SearchResult) Context {
	c := Context{
		Similarity: match.Score,
	}
	if text, ok := match.Meta["text"].(string); ok {
		c.Text = text
	}
	if category, ok := match.Meta["category"].(string); ok {
		c.Category = category
	}
	if sheetName, ok := match.Meta["sheet_name"].(string); ok {
		c.SheetName = sheetName
	}
	if raw, ok := match.Meta["original_data"].(string); ok {
		if err := json.Unmarshal([]byte(raw), &c.OriginalData); err != nil {
			c.OriginalData = nil
		}
	}
	return c
}
