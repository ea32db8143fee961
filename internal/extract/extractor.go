package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"helpdesk-kb-platform/models"

	"github.com/xuri/excelize/v2"
)

// Extractor converts a supported file into normalized plain text.
type Extractor interface {
	Extract(ctx context.Context, path string, kind models.FileKind) (string, error)
}

// FileExtractor reads local files. Spreadsheet and delimited files are
// flattened row by row into "header: value" paragraphs so each record stays
// one retrievable unit; plain text and markdown pass through unchanged.
type FileExtractor struct{}

func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

func (e *FileExtractor) Extract(ctx context.Context, path string, kind models.FileKind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch kind {
	case models.FileKindSpreadsheet:
		return e.extractSpreadsheet(path)
	case models.FileKindDelimited:
		return e.extractCSV(path)
	case models.FileKindPlainText, models.FileKindMarkdown:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("no extractor for file kind %q", kind)
	}
}

func (e *FileExtractor) extractSpreadsheet(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var out strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		header := rows[0]
		for _, row := range rows[1:] {
			out.WriteString(flattenRecord(header, row))
			out.WriteString("\n\n")
		}
	}
	return out.String(), nil
}

func (e *FileExtractor) extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	header := records[0]
	var out strings.Builder
	for _, row := range records[1:] {
		if isEmptyRow(row) {
			continue
		}
		out.WriteString(flattenRecord(header, row))
		out.WriteString("\n\n")
	}
	return out.String(), nil
}

// flattenRecord renders one row as "header: value, header: value" so column
// names survive chunking and end up searchable next to their values.
func flattenRecord(header, row []string) string {
	parts := make([]string, 0, len(row))
	for i, val := range row {
		key := fmt.Sprintf("col%d", i+1)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			key = strings.TrimSpace(header[i])
		}
		parts = append(parts, key+": "+strings.TrimSpace(val))
	}
	return strings.Join(parts, ", ")
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
