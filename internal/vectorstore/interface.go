package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks rfp-assistant/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Filter restricts a similarity search. Category and SheetName are
// exact-match conditions when non-empty. CategoryPresent requires the
// category payload field to exist, which excludes legacy entries that
// were stored without one.
type Filter struct {
	Category        string
	SheetName       string
	CategoryPresent bool
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Fetch retrieves points by ID. IDs that do not exist are absent
	// from the returned map.
	Fetch(ctx context.Context, collection string, ids []string) (map[string]Point, error)

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search under the given filter,
	// returning up to k results with payloads, best score first.
	Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error)
}
