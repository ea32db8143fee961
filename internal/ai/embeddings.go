package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"helpdesk-kb-platform/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// Embedder converts a batch of text segments into fixed-dimension vectors.
// The returned slice has the same length and order as the input.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// GeminiEmbedder produces embeddings via Google Generative AI
// (text-embedding-004 by default, 768 dimensions). Calls go through a
// circuit breaker and a client-side rate limiter.
type GeminiEmbedder struct {
	client      *genai.Client
	model       string
	dimension   int
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

// NewGeminiEmbedder creates the embedding client.
func NewGeminiEmbedder(apiKey, model string, dimension int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	if model == "" {
		model = "text-embedding-004"
	}
	if dimension <= 0 {
		dimension = 768
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiEmbeddings",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	// Free-tier embedding RPM with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(100.0*0.9/60.0), 10)

	return &GeminiEmbedder{
		client:      client,
		model:       model,
		dimension:   dimension,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

// Dimension returns the fixed vector length this embedder produces.
func (ge *GeminiEmbedder) Dimension() int { return ge.dimension }

// Embed sends all texts in one batched request and returns their vectors in
// input order.
func (ge *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	tracer := otel.Tracer("gemini-embeddings")
	ctx, span := tracer.Start(ctx, "embeddings.batch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("embeddings.batch_size", len(texts)),
		attribute.String("embeddings.model", ge.model),
	)

	if err := ge.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("embeddings.rate_limited", true))
		return nil, err
	}

	result, err := ge.breaker.Execute(func() (interface{}, error) {
		em := ge.client.EmbeddingModel(ge.model)
		batch := em.NewBatch()
		for _, t := range texts {
			batch = batch.AddContent(genai.Text(t))
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if resp == nil || len(resp.Embeddings) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}

		vectors := make([][]float32, 0, len(resp.Embeddings))
		for i, emb := range resp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("empty embedding at position %d", i)
			}
			vectors = append(vectors, emb.Values)
		}
		return vectors, nil
	})

	if err != nil {
		span.SetAttributes(attribute.Bool("embeddings.error", true))
		if err == gobreaker.ErrOpenState {
			return nil, models.WrapPipelineError(models.ErrKindEmbeddingFailed, err,
				"embedding service degraded, circuit open")
		}
		return nil, models.WrapPipelineError(models.ErrKindEmbeddingFailed, err,
			"embedding request failed")
	}

	span.SetAttributes(attribute.Bool("embeddings.success", true))
	return result.([][]float32), nil
}

// Close releases the underlying API client.
func (ge *GeminiEmbedder) Close() error {
	if ge.client != nil {
		return ge.client.Close()
	}
	return nil
}
