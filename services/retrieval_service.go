package services

import (
	"context"

	"helpdesk-kb-platform/internal/ai"
	"helpdesk-kb-platform/internal/config"
	"helpdesk-kb-platform/internal/logger"
	"helpdesk-kb-platform/internal/telemetry"
	"helpdesk-kb-platform/internal/vectorstore"
	"helpdesk-kb-platform/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// NoEvidenceMessage is the canonical answer surfaced when a query finds no
// grounded evidence. Callers must not paraphrase it.
const NoEvidenceMessage = "I apologize, but I don't have specific troubleshooting information for this issue in our current documentation. Please contact our support team for assistance."

const defaultTopK = 10

// RetrievalService turns a natural-language query into grounded passages.
// Evidence comes exclusively from the vector index: a query with no stored
// matches yields an explicit no-evidence outcome, never a fabricated answer.
type RetrievalService struct {
	cfg      *config.Config
	embedder ai.Embedder
	indexes  *vectorstore.Manager
	metrics  *telemetry.Metrics
}

func NewRetrievalService(cfg *config.Config, embedder ai.Embedder, indexes *vectorstore.Manager, metrics *telemetry.Metrics) *RetrievalService {
	return &RetrievalService{cfg: cfg, embedder: embedder, indexes: indexes, metrics: metrics}
}

// Retrieve embeds the query and searches the named index. The metadata
// filter only refines an unfiltered result set: when the refinement matches
// nothing, the unfiltered evidence stands rather than degrading to
// no-evidence.
func (s *RetrievalService) Retrieve(ctx context.Context, query, indexName string, topK int, filter *vectorstore.Filter) (models.RetrievalOutcome, error) {
	if query == "" {
		return models.RetrievalOutcome{}, models.NewPipelineError(models.ErrKindInvalidConfiguration, "query must not be empty")
	}
	if indexName == "" {
		indexName = s.cfg.DefaultIndexName
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	tracer := otel.Tracer("retrieval-service")
	ctx, span := tracer.Start(ctx, "retrieval.query")
	defer span.End()
	span.SetAttributes(
		attribute.String("retrieval.index", indexName),
		attribute.Int("retrieval.top_k", topK),
	)

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if s.metrics != nil {
		s.metrics.RecordEmbeddingRequest(1, err == nil)
	}
	if err != nil {
		return models.RetrievalOutcome{}, err
	}
	if len(vectors) != 1 {
		return models.RetrievalOutcome{}, models.NewPipelineError(models.ErrKindEmbeddingCountMismatch,
			"embedder returned %d vectors for 1 query", len(vectors))
	}

	matches, err := s.indexes.Search(ctx, indexName, vectors[0], topK, nil)
	if err != nil {
		return models.RetrievalOutcome{}, err
	}

	if len(matches) == 0 {
		span.SetAttributes(attribute.Bool("retrieval.grounded", false))
		if s.metrics != nil {
			s.metrics.RecordSearch(indexName, false)
		}
		return models.RetrievalOutcome{Grounded: false}, nil
	}

	if !filter.IsZero() {
		refined, rerr := s.indexes.Search(ctx, indexName, vectors[0], topK, filter)
		switch {
		case rerr != nil:
			logger.Warn("filtered refinement failed, keeping unfiltered evidence",
				"index", indexName, "error", rerr.Error())
		case len(refined) > 0:
			matches = refined
		}
	}

	passages := make([]models.Passage, len(matches))
	for i, m := range matches {
		passages[i] = models.Passage{
			Text:   m.Record.Text,
			Source: m.Record.Source,
			Score:  m.Score,
		}
	}

	span.SetAttributes(
		attribute.Bool("retrieval.grounded", true),
		attribute.Int("retrieval.passages", len(passages)),
	)
	if s.metrics != nil {
		s.metrics.RecordSearch(indexName, true)
	}
	return models.RetrievalOutcome{Grounded: true, Passages: passages}, nil
}
