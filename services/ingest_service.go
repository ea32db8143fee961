package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"helpdesk-kb-platform/internal/ai"
	"helpdesk-kb-platform/internal/chunker"
	"helpdesk-kb-platform/internal/config"
	"helpdesk-kb-platform/internal/extract"
	"helpdesk-kb-platform/internal/logger"
	"helpdesk-kb-platform/internal/telemetry"
	"helpdesk-kb-platform/internal/vectorstore"
	"helpdesk-kb-platform/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ChunkOptions override the configured chunking defaults for one call.
type ChunkOptions struct {
	Size      int    `json:"size"`
	Overlap   int    `json:"overlap"`
	Separator string `json:"separator"`
}

// IngestService drives one document through extraction, chunking, embedding
// and upsert. It never returns an error: every failure path is captured as a
// failed IngestionResult with a machine-readable error kind.
//
// Index existence is a precondition established by a separate provisioning
// step; no index creation happens here.
type IngestService struct {
	cfg       *config.Config
	extractor extract.Extractor
	embedder  ai.Embedder
	indexes   *vectorstore.Manager
	cache     *ChunkCacheService
	metrics   *telemetry.Metrics
}

func NewIngestService(cfg *config.Config, extractor extract.Extractor, embedder ai.Embedder,
	indexes *vectorstore.Manager, cache *ChunkCacheService, metrics *telemetry.Metrics) *IngestService {
	return &IngestService{
		cfg:       cfg,
		extractor: extractor,
		embedder:  embedder,
		indexes:   indexes,
		cache:     cache,
		metrics:   metrics,
	}
}

// Ingest processes one document with the configured chunking defaults.
func (s *IngestService) Ingest(ctx context.Context, doc models.Document) models.IngestionResult {
	return s.IngestWithOptions(ctx, doc, nil)
}

// IngestWithOptions processes one document, optionally overriding the
// chunking configuration for this call.
func (s *IngestService) IngestWithOptions(ctx context.Context, doc models.Document, opts *ChunkOptions) models.IngestionResult {
	tracer := otel.Tracer("ingest-service")
	ctx, span := tracer.Start(ctx, "ingest.document")
	defer span.End()
	span.SetAttributes(
		attribute.String("ingest.upload_id", doc.UploadID),
		attribute.String("ingest.file_name", doc.FileName),
	)

	start := time.Now()
	result := s.process(ctx, doc, opts)

	span.SetAttributes(
		attribute.Bool("ingest.success", result.Success),
		attribute.Int("ingest.chunks", result.ChunkCount),
	)
	if s.metrics != nil {
		s.metrics.RecordIngestion(result.Success, string(result.ErrorKind), result.ChunkCount, time.Since(start).Seconds())
	}
	if result.Success {
		logger.Info("document ingested",
			"upload_id", result.UploadID, "file", result.FileName,
			"index", result.IndexName, "chunks", result.ChunkCount)
	} else {
		logger.Warn("document ingestion failed",
			"upload_id", result.UploadID, "file", result.FileName,
			"error_kind", string(result.ErrorKind), "error", result.Error)
	}
	return result
}

func (s *IngestService) process(ctx context.Context, doc models.Document, opts *ChunkOptions) models.IngestionResult {
	indexName := doc.IndexName
	if indexName == "" {
		indexName = IndexNameFor(s.cfg, doc.UserID)
	}

	fail := func(kind models.ErrorKind, message, detail string) models.IngestionResult {
		return models.IngestionResult{
			Success:   false,
			UploadID:  doc.UploadID,
			IndexName: indexName,
			FileName:  doc.FileName,
			Message:   message,
			Error:     detail,
			ErrorKind: kind,
		}
	}

	if _, err := os.Stat(doc.FilePath); err != nil {
		return fail(models.ErrKindFileNotFound, "File not found",
			"The specified file does not exist")
	}

	if doc.Kind == models.FileKindUnknown || doc.Kind == "" {
		return fail(models.ErrKindUnsupportedFileType, "Unsupported file type",
			fmt.Sprintf("File type is not supported. Supported types: %s",
				strings.Join(models.SupportedExtensions(), ", ")))
	}

	text, err := s.extractor.Extract(ctx, doc.FilePath, doc.Kind)
	if err != nil {
		return fail(models.ErrKindExtractionFailed, "Failed to extract document text", err.Error())
	}

	size, overlap, separator := s.cfg.ChunkSize, s.cfg.ChunkOverlap, s.cfg.ChunkSeparator
	if opts != nil {
		if opts.Size > 0 {
			size = opts.Size
		}
		if opts.Overlap > 0 {
			overlap = opts.Overlap
		}
		if opts.Separator != "" {
			separator = opts.Separator
		}
	}
	ck, err := chunker.New(size, overlap, separator)
	if err != nil {
		return fail(models.ErrKindInvalidConfiguration, "Invalid chunking configuration", err.Error())
	}

	chunks := ck.Split(text)
	if len(chunks) == 0 {
		return models.IngestionResult{
			Success:   true,
			UploadID:  doc.UploadID,
			IndexName: indexName,
			FileName:  doc.FileName,
			Message:   fmt.Sprintf("%s contained no extractable text", doc.FileName),
		}
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if s.metrics != nil {
		s.metrics.RecordEmbeddingRequest(len(texts), err == nil)
	}
	if err != nil {
		return fail(models.ErrKindEmbeddingFailed, "Failed to embed document chunks", err.Error())
	}
	if len(vectors) != len(chunks) {
		// A collaborator contract violation, not a recoverable condition.
		return fail(models.ErrKindEmbeddingCountMismatch, "Embedding count mismatch",
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	records := make([]models.EmbeddingRecord, len(chunks))
	for i, ch := range chunks {
		records[i] = models.EmbeddingRecord{
			ChunkID: uuid.NewString(),
			Order:   ch.Index,
			Text:    ch.Text,
			Source:  doc.FileName,
			Vector:  vectors[i],
		}
	}

	if err := s.indexes.Upsert(ctx, indexName, records); err != nil {
		kind := models.KindOf(err)
		if kind == "" {
			kind = models.ErrKindBackendUnavailable
		}
		return fail(kind, "Failed to store document embeddings", err.Error())
	}

	if s.cache != nil {
		if err := s.cache.CacheDocumentChunks(ctx, doc.UploadID, texts); err != nil {
			logger.Debug("chunk cache write failed", "upload_id", doc.UploadID, "error", err.Error())
		}
	}

	return models.IngestionResult{
		Success:    true,
		UploadID:   doc.UploadID,
		IndexName:  indexName,
		FileName:   doc.FileName,
		ChunkCount: len(chunks),
		Message:    fmt.Sprintf("Successfully processed %s into %d chunks", doc.FileName, len(chunks)),
	}
}

// IndexNameFor derives the target index from the uploading user's context:
// "<user>_docs" when present, otherwise the configured default index.
func IndexNameFor(cfg *config.Config, userID string) string {
	if userID == "" {
		return cfg.DefaultIndexName
	}
	return slugify(userID) + "_docs"
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
