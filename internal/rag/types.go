package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks -mock_names=Engine=MockEngine rfp-assistant/internal/rag Engine

// Filters optionally restricts retrieval to one category and/or worksheet.
type Filters struct {
	Category  string `json:"category,omitempty"`
	SheetName string `json:"sheetName,omitempty"`
}

// QueryRequest is a natural-language question with optional filters.
type QueryRequest struct {
	Question string
	Filters  Filters
}

// Context is one retrieved record, rebuilt per query from a vector-store
// match. Never persisted.
type Context struct {
	Text         string            `json:"text"`
	OriginalData map[string]string `json:"originalData"`
	Category     string            `json:"category"`
	SheetName    string            `json:"sheetName"`
	Similarity   float32           `json:"similarity"`
}

// QueryResponse is the generated answer plus the contexts it was grounded
// on, in the search engine's ranking order.
type QueryResponse struct {
	Answer  string    `json:"answer"`
	Sources []Context `json:"sources"`
}
