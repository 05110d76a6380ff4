package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"rfp-assistant/internal/contextutil"
	"rfp-assistant/internal/extractor"
	"rfp-assistant/internal/ingest"
)

// maxUploadSize limits uploaded spreadsheets to 5 MB.
const maxUploadSize = 5 << 20

// UploadHandler handles spreadsheet uploads. The file is read fully into
// memory, handed to the ingestion coordinator and never written to disk.
type UploadHandler struct {
	ingestor ingest.Ingestor
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(ingestor ingest.Ingestor) *UploadHandler {
	return &UploadHandler{
		ingestor: ingestor,
	}
}

// UploadResponse represents the HTTP response for a processed upload.
type UploadResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Details ingest.Result `json:"details"`
}

// ServeHTTP handles multipart spreadsheet uploads on POST /api/upload.
// Form fields rfpId, title and category are optional; uploadDate is set
// server-side.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid upload: file too large or malformed form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing file in upload", "error", err)
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		logger.WarnContext(ctx, "rejected file type", "filename", header.Filename)
		writeError(w, http.StatusBadRequest, "Only Excel files are allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	meta := ingest.DocumentMetadata{
		ID:         r.FormValue("rfpId"),
		Title:      r.FormValue("title"),
		UploadDate: time.Now().UTC(),
		Category:   r.FormValue("category"),
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("RFP-%d", time.Now().UnixMilli())
	}
	if meta.Title == "" {
		meta.Title = header.Filename
	}
	if meta.Category == "" {
		meta.Category = extractor.DefaultCategory
	}

	result, err := h.ingestor.Ingest(ctx, data, meta)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "document_id", meta.ID, "error", err)
		if strings.Contains(strings.ToLower(err.Error()), "workbook") {
			writeError(w, http.StatusBadRequest, "Invalid spreadsheet file")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error processing file")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(UploadResponse{
		Success: true,
		Message: "Excel RFP processed successfully",
		Details: result,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
