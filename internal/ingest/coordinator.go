package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rfp-assistant/internal/contextutil"
	"rfp-assistant/internal/extractor"
	"rfp-assistant/internal/llm"
	"rfp-assistant/internal/vectorstore"
)

// DefaultBatchSize is the number of records staged per bulk upload.
const DefaultBatchSize = 10

// Coordinator runs the ingestion pipeline: extract records from a
// spreadsheet, deduplicate against the vector store, embed what is new
// and upsert it in batches. The vector store is the only system of
// record; the coordinator keeps no state between calls.
type Coordinator struct {
	extractor  *extractor.Extractor
	embedder   llm.Embedder
	store      vectorstore.VectorStore
	collection string
	batchSize  int
}

// NewCoordinator creates a new ingestion coordinator.
func NewCoordinator(embedder llm.Embedder, store vectorstore.VectorStore, collection string) *Coordinator {
	return &Coordinator{
		extractor:  extractor.New(),
		embedder:   embedder,
		store:      store,
		collection: collection,
		batchSize:  DefaultBatchSize,
	}
}

// Ingest extracts records from the workbook buffer and synchronizes them
// into the vector store. A malformed workbook fails the whole call; a
// single record's embedding failure or a single batch's upload failure is
// absorbed into the counters and never aborts the remaining work.
func (c *Coordinator) Ingest(ctx context.Context, data []byte, meta DocumentMetadata) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	extraction, err := c.extractor.Extract(data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to process workbook: %w", err)
	}

	result := Result{
		TotalItems: len(extraction.Records),
		Sheets:     extraction.Sheets,
	}

	logger.InfoContext(ctx, "ingestion started",
		"document_id", meta.ID,
		"sheets", len(extraction.Sheets),
		"total_rows", extraction.TotalRows,
		"total_items", result.TotalItems,
	)

	for start := 0; start < len(extraction.Records); start += c.batchSize {
		end := min(start+c.batchSize, len(extraction.Records))
		c.ingestBatch(ctx, extraction.Records[start:end], meta, &result)
	}

	logger.InfoContext(ctx, "ingestion completed",
		"document_id", meta.ID,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"errors", result.Errors,
	)

	return result, nil
}

// ingestBatch stages the batch's new records and uploads them in one call.
func (c *Coordinator) ingestBatch(ctx context.Context, batch []extractor.Record, meta DocumentMetadata, result *Result) {
	logger := contextutil.LoggerFromContext(ctx)

	staged := make([]vectorstore.Point, 0, len(batch))

	for _, rec := range batch {
		id := Fingerprint(meta, rec)

		// Existence check fails open: if the store cannot tell us whether
		// the id exists we re-embed rather than silently drop the record.
		// Over-ingestion under store instability is the accepted trade-off.
		exists := false
		existing, err := c.store.Fetch(ctx, c.collection, []string{id})
		if err != nil {
			logger.WarnContext(ctx, "existence check failed, proceeding with upsert", "id", id, "error", err)
		} else if _, ok := existing[id]; ok {
			exists = true
		}

		if exists {
			result.Skipped++
			logger.DebugContext(ctx, "skipping duplicate entry", "id", id, "skipped", result.Skipped)
			continue
		}

		vectors, err := c.embedder.EmbedTexts(ctx, []string{rec.Text})
		if err != nil || len(vectors) == 0 {
			result.Errors++
			logger.ErrorContext(ctx, "failed to embed record", "id", id, "sheet", rec.SheetName, "error", err)
			continue
		}

		staged = append(staged, vectorstore.Point{
			ID:   id,
			Vec:  vectors[0],
			Meta: c.pointMeta(meta, rec),
		})
		result.Processed++
	}

	if len(staged) == 0 {
		return
	}

	if err := c.store.Upsert(ctx, c.collection, staged); err != nil {
		// The whole staged batch failed; processed counts are not rolled
		// back, so a failed batch shows up in both processed and errors.
		result.Errors += len(staged)
		logger.ErrorContext(ctx, "failed to upload batch", "count", len(staged), "error", err)
		return
	}

	logger.InfoContext(ctx, "uploaded batch", "count", len(staged))
}

// pointMeta merges the document metadata with one record's payload.
// The record's category wins over the document-level one.
func (c *Coordinator) pointMeta(meta DocumentMetadata, rec extractor.Record) map[string]any {
	originalData, err := json.Marshal(rec.OriginalData)
	if err != nil {
		originalData = []byte("{}")
	}
	return map[string]any{
		"rfp_id":        meta.ID,
		"title":         meta.Title,
		"upload_date":   meta.UploadDate.UTC().Format(time.RFC3339),
		"category":      rec.Category,
		"sheet_name":    rec.SheetName,
		"text":          rec.Text,
		"original_data": string(originalData),
	}
}
