package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	DocumentsIngested metric.Int64Counter
	IngestDuration    metric.Float64Histogram
	ChunksStored      metric.Int64Counter
	EmbeddingRequests metric.Int64Counter
	SearchRequests    metric.Int64Counter
	NoEvidenceTotal   metric.Int64Counter
	IndexOperations   metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("helpdesk-kb-platform")

	documentsIngested, err := meter.Int64Counter(
		"ingest.documents.total",
		metric.WithDescription("Total documents processed by the ingestion pipeline"),
	)
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram(
		"ingest.document.duration",
		metric.WithDescription("Per-document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksStored, err := meter.Int64Counter(
		"ingest.chunks.stored",
		metric.WithDescription("Total chunks upserted into vector indexes"),
	)
	if err != nil {
		return nil, err
	}

	embeddingRequests, err := meter.Int64Counter(
		"embeddings.requests.total",
		metric.WithDescription("Total embedding batch requests"),
	)
	if err != nil {
		return nil, err
	}

	searchRequests, err := meter.Int64Counter(
		"retrieval.searches.total",
		metric.WithDescription("Total similarity searches issued"),
	)
	if err != nil {
		return nil, err
	}

	noEvidenceTotal, err := meter.Int64Counter(
		"retrieval.no_evidence.total",
		metric.WithDescription("Queries that produced no grounded evidence"),
	)
	if err != nil {
		return nil, err
	}

	indexOperations, err := meter.Int64Counter(
		"index.operations.total",
		metric.WithDescription("Index lifecycle operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		DocumentsIngested: documentsIngested,
		IngestDuration:    ingestDuration,
		ChunksStored:      chunksStored,
		EmbeddingRequests: embeddingRequests,
		SearchRequests:    searchRequests,
		NoEvidenceTotal:   noEvidenceTotal,
		IndexOperations:   indexOperations,
	}, nil
}

// RecordIngestion records the outcome of one document ingestion
func (m *Metrics) RecordIngestion(success bool, errorKind string, chunks int, seconds float64) {
	attrs := []attribute.KeyValue{
		attribute.Bool("ingest.success", success),
	}
	if errorKind != "" {
		attrs = append(attrs, attribute.String("ingest.error_kind", errorKind))
	}

	m.DocumentsIngested.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.IngestDuration.Record(context.Background(), seconds, metric.WithAttributes(attrs...))
	if chunks > 0 {
		m.ChunksStored.Add(context.Background(), int64(chunks))
	}
}

// RecordEmbeddingRequest records one embedding batch call
func (m *Metrics) RecordEmbeddingRequest(batchSize int, success bool) {
	attrs := []attribute.KeyValue{
		attribute.Int("embeddings.batch_size", batchSize),
		attribute.Bool("embeddings.success", success),
	}
	m.EmbeddingRequests.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordSearch records one retrieval query and whether it found evidence
func (m *Metrics) RecordSearch(indexName string, grounded bool) {
	attrs := []attribute.KeyValue{
		attribute.String("retrieval.index", indexName),
		attribute.Bool("retrieval.grounded", grounded),
	}
	m.SearchRequests.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	if !grounded {
		m.NoEvidenceTotal.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	}
}

// RecordIndexOperation records an index lifecycle operation
func (m *Metrics) RecordIndexOperation(operation, indexName string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("index.operation", operation),
		attribute.String("index.name", indexName),
		attribute.Bool("index.success", success),
	}
	m.IndexOperations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
