package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"rfp-assistant/internal/contextutil"
	"rfp-assistant/internal/rag"
)

// QueryHandler handles HTTP requests for RAG queries.
type QueryHandler struct {
	engine rag.Engine
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(engine rag.Engine) *QueryHandler {
	return &QueryHandler{
		engine: engine,
	}
}

// QueryRequest represents the HTTP request payload for RAG queries.
// This mirrors rag.QueryRequest but is defined here for HTTP layer separation.
type QueryRequest struct {
	Question string      `json:"question"`
	Filters  rag.Filters `json:"filters,omitempty"`
}

// ServeHTTP handles POST /api/query.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	resp, err := h.engine.Query(ctx, rag.QueryRequest{
		Question: req.Question,
		Filters:  req.Filters,
	})
	if err != nil {
		h.handleQueryError(w, ctx, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleQueryError maps query engine errors to HTTP status codes.
func (h *QueryHandler) handleQueryError(w http.ResponseWriter, ctx context.Context, err error) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "query engine error", "error", err)

	errMsg := strings.ToLower(err.Error())

	// Vector store errors -> 503
	if strings.Contains(errMsg, "vector store") || strings.Contains(errMsg, "failed to search") {
		writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
		return
	}

	// Embedding/generation errors -> 502
	if strings.Contains(errMsg, "embed") || strings.Contains(errMsg, "generate") {
		writeError(w, http.StatusBadGateway, "External service error")
		return
	}

	writeError(w, http.StatusInternalServerError, "Error processing query")
}
