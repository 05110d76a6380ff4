package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rfp-assistant/internal/handlers"
	"rfp-assistant/internal/ingest"
	"rfp-assistant/internal/rag"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Ingestor    ingest.Ingestor
	RAGEngine   rag.Engine
	VectorStore handlers.HealthChecker
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	uploadHandler := handlers.NewUploadHandler(deps.Ingestor)
	queryHandler := handlers.NewQueryHandler(deps.RAGEngine)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/upload", uploadHandler)
		r.Method(http.MethodPost, "/query", queryHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
