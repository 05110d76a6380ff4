package ingest

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ingestor.go -package=mocks rfp-assistant/internal/ingest Ingestor

import (
	"context"
	"time"
)

// DocumentMetadata describes one ingested spreadsheet. It is supplied by
// the caller and attached to every record derived from that spreadsheet.
type DocumentMetadata struct {
	ID         string
	Title      string
	UploadDate time.Time
	Category   string
}

// Result aggregates the outcome of one ingestion call.
type Result struct {
	// TotalItems is the number of records extracted from the workbook
	// (blank rows are dropped before this count).
	TotalItems int `json:"totalItems"`
	// Processed counts records that were embedded and staged for upload.
	Processed int `json:"processed"`
	// Skipped counts records whose fingerprint already existed in the store.
	Skipped int `json:"skipped"`
	// Errors counts records that failed to embed, plus every staged record
	// of a batch whose bulk upload failed.
	Errors int `json:"errors"`
	// Sheets lists the worksheet names encountered.
	Sheets []string `json:"sheets"`
}

// Ingestor ingests a spreadsheet buffer into the vector store.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, meta DocumentMetadata) (Result, error)
}
