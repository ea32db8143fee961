package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"helpdesk-kb-platform/models"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestExtractPlainText(t *testing.T) {
	path := writeTempFile(t, "notes.txt", "restart the router\nthen retry")

	text, err := NewFileExtractor().Extract(context.Background(), path, models.FileKindPlainText)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "restart the router\nthen retry" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractCSVFlattensRows(t *testing.T) {
	csvContent := "Category,Title,Steps\n" +
		"Printer,Unable to print,Check the cable\n" +
		"Network,No internet access,Restart the router\n"
	path := writeTempFile(t, "matrix.csv", csvContent)

	text, err := NewFileExtractor().Extract(context.Background(), path, models.FileKindDelimited)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := "Category: Printer, Title: Unable to print, Steps: Check the cable"
	if !strings.Contains(text, want) {
		t.Fatalf("flattened row missing, got: %q", text)
	}
	if !strings.Contains(text, "\n\n") {
		t.Fatalf("rows should be separated by blank lines")
	}
}

func TestExtractCSVHeaderOnly(t *testing.T) {
	path := writeTempFile(t, "empty.csv", "Category,Title\n")

	text, err := NewFileExtractor().Extract(context.Background(), path, models.FileKindDelimited)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "" {
		t.Fatalf("header-only csv should yield empty text, got %q", text)
	}
}

func TestExtractMissingFileFails(t *testing.T) {
	_, err := NewFileExtractor().Extract(context.Background(), "/nonexistent/file.txt", models.FileKindPlainText)
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestExtractUnknownKindFails(t *testing.T) {
	path := writeTempFile(t, "blob.bin", "data")
	_, err := NewFileExtractor().Extract(context.Background(), path, models.FileKindUnknown)
	if err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestExtractCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := writeTempFile(t, "notes.txt", "content")
	if _, err := NewFileExtractor().Extract(ctx, path, models.FileKindPlainText); err == nil {
		t.Fatalf("expected context error")
	}
}
