package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileKind classifies an upload by its file-name extension.
type FileKind string

const (
	FileKindSpreadsheet FileKind = "spreadsheet"
	FileKindDelimited   FileKind = "delimited-text"
	FileKindPlainText   FileKind = "plain-text"
	FileKindMarkdown    FileKind = "markdown"
	FileKindUnknown     FileKind = "unknown"
)

// FileKindFromName derives the kind from the file-name extension.
// Only the extensions in SupportedExtensions map to a known kind.
func FileKindFromName(name string) FileKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls":
		return FileKindSpreadsheet
	case ".csv":
		return FileKindDelimited
	case ".txt":
		return FileKindPlainText
	case ".md":
		return FileKindMarkdown
	default:
		return FileKindUnknown
	}
}

// SupportedExtensions lists the extensions accepted for ingestion.
func SupportedExtensions() []string {
	return []string{".xlsx", ".xls", ".csv", ".txt", ".md"}
}

// Document is one logical unit to ingest. It is created at the ingestion
// request, consumed once by extraction and chunking, and never mutated after.
type Document struct {
	UploadID  string    `json:"upload_id"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path"`
	UserID    string    `json:"user_id,omitempty"`
	Kind      FileKind  `json:"kind"`
	IndexName string    `json:"index_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDocument builds a Document with a fresh upload id and derived kind.
func NewDocument(fileName, filePath, userID string) Document {
	return Document{
		UploadID:  uuid.NewString(),
		FileName:  fileName,
		FilePath:  filePath,
		UserID:    userID,
		Kind:      FileKindFromName(fileName),
		CreatedAt: time.Now(),
	}
}

// FileRef identifies one file of a batch ingestion request.
type FileRef struct {
	FilePath string `json:"file_path" binding:"required"`
	FileName string `json:"file_name" binding:"required"`
}

// IngestionResult is the outcome of processing one Document.
// Immutable once produced; failures carry the machine-readable error kind.
type IngestionResult struct {
	Success    bool      `json:"success"`
	UploadID   string    `json:"upload_id"`
	IndexName  string    `json:"index_name"`
	FileName   string    `json:"file_name"`
	ChunkCount int       `json:"chunks_count"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
}

// BatchResult aggregates IngestionResults over one batch, in input order.
type BatchResult struct {
	Results         []IngestionResult `json:"results"`
	TotalProcessed  int               `json:"total_processed"`
	TotalSuccessful int               `json:"total_successful"`
}
