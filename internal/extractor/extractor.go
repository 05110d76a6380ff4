package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultCategory is assigned to rows that have no Category field.
const DefaultCategory = "uncategorized"

// categoryField is the header that groups rows within a worksheet.
const categoryField = "Category"

// Record is one logical unit extracted from a spreadsheet row.
// Text is the deterministic "field: value" serialization used for
// embedding; OriginalData preserves the raw field mapping for traceability.
type Record struct {
	Category     string
	SheetName    string
	Text         string
	OriginalData map[string]string
}

// Extraction is the result of parsing one workbook.
type Extraction struct {
	// Records are emitted in worksheet order, preserving row order
	// within each worksheet.
	Records []Record
	// Sheets lists the worksheet names encountered, in workbook order.
	Sheets []string
	// TotalRows counts data rows across all worksheets (header rows excluded),
	// including rows that were later dropped for having no usable text.
	TotalRows int
}

// Extractor parses spreadsheet buffers into categorized text records.
type Extractor struct{}

// New creates a new Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses an .xlsx buffer into records, one per non-blank data row.
// A malformed workbook fails the whole extraction; a single unreadable row
// never aborts its worksheet.
func (e *Extractor) Extract(data []byte) (*Extraction, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load workbook: %w", err)
	}
	defer func() {
		_ = workbook.Close()
	}()

	result := &Extraction{
		Sheets: workbook.GetSheetList(),
	}

	for _, sheetName := range result.Sheets {
		rows, err := workbook.GetRows(sheetName)
		if err != nil {
			// One unreadable worksheet should not abort the others.
			continue
		}
		if len(rows) == 0 {
			continue
		}

		// First row holds the headers; columns with blank headers are ignored.
		headers := make([]string, len(rows[0]))
		for i, cell := range rows[0] {
			headers[i] = strings.TrimSpace(cell)
		}

		result.TotalRows += len(rows) - 1

		for _, row := range rows[1:] {
			fields := mapRow(headers, row)
			if len(fields) == 0 {
				continue
			}

			category := fields[categoryField]
			if category == "" {
				category = DefaultCategory
			}

			text := combineFields(headers, fields)
			if strings.TrimSpace(text) == "" {
				continue
			}

			result.Records = append(result.Records, Record{
				Category:     category,
				SheetName:    sheetName,
				Text:         text,
				OriginalData: fields,
			})
		}
	}

	return result, nil
}

// mapRow builds a header -> trimmed cell mapping for one data row,
// keeping only non-empty cells under non-empty headers.
func mapRow(headers []string, row []string) map[string]string {
	fields := make(map[string]string)
	for i, cell := range row {
		if i >= len(headers) || headers[i] == "" {
			continue
		}
		value := strings.TrimSpace(cell)
		if value == "" {
			continue
		}
		fields[headers[i]] = value
	}
	return fields
}

// combineFields serializes a row's fields as "key: value" lines in column order.
func combineFields(headers []string, fields map[string]string) string {
	var b strings.Builder
	for _, header := range headers {
		value, ok := fields[header]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(header)
		b.WriteString(": ")
		b.WriteString(value)
	}
	return b.String()
}
