package services

import (
	"context"
	"errors"
	"testing"

	"helpdesk-kb-platform/internal/vectorstore"
	"helpdesk-kb-platform/models"
)

func newRetrievalHarness(t *testing.T, embedder *stubEmbedder) (*RetrievalService, *vectorstore.Manager) {
	t.Helper()
	cfg := testConfig()
	mgr := vectorstore.NewManager(vectorstore.NewMemoryBackend())
	if err := mgr.Create(context.Background(), cfg.DefaultIndexName, embedder.dim); err != nil {
		t.Fatalf("create index: %v", err)
	}
	return NewRetrievalService(cfg, embedder, mgr, nil), mgr
}

func seedRecords(t *testing.T, mgr *vectorstore.Manager, index string, records []models.EmbeddingRecord) {
	t.Helper()
	if err := mgr.Upsert(context.Background(), index, records); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
}

func TestRetrieveGrounded(t *testing.T) {
	embedder := &stubEmbedder{dim: 3, vectors: map[string][]float32{
		"printer offline": {1, 0, 0},
	}}
	svc, mgr := newRetrievalHarness(t, embedder)
	seedRecords(t, mgr, "helpdesk_troubleshooting_documents", []models.EmbeddingRecord{
		{ChunkID: "c1", Order: 0, Text: "Restart the print spooler.", Source: "printers.md", Vector: []float32{1, 0, 0}},
		{ChunkID: "c2", Order: 1, Text: "Check the network cable.", Source: "network.md", Vector: []float32{0, 1, 0}},
	})

	out, err := svc.Retrieve(context.Background(), "printer offline", "", 5, nil)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !out.Grounded {
		t.Fatal("expected grounded outcome")
	}
	if len(out.Passages) == 0 {
		t.Fatal("grounded outcome must carry passages")
	}
	if out.Passages[0].Text != "Restart the print spooler." {
		t.Fatalf("best passage = %q", out.Passages[0].Text)
	}
	if out.Passages[0].Source != "printers.md" {
		t.Fatalf("passage lost its source, got %q", out.Passages[0].Source)
	}
	for i := 1; i < len(out.Passages); i++ {
		if out.Passages[i].Score > out.Passages[i-1].Score {
			t.Fatalf("passages not ordered by descending score at %d", i)
		}
	}
}

func TestRetrieveNoEvidence(t *testing.T) {
	svc, _ := newRetrievalHarness(t, &stubEmbedder{dim: 3})

	out, err := svc.Retrieve(context.Background(), "anything at all", "", 5, nil)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if out.Grounded {
		t.Fatal("empty index must yield a no-evidence outcome")
	}
	if len(out.Passages) != 0 {
		t.Fatalf("no-evidence outcome carries %d passages", len(out.Passages))
	}
}

func TestRetrieveFilterRefines(t *testing.T) {
	embedder := &stubEmbedder{dim: 3}
	svc, mgr := newRetrievalHarness(t, embedder)
	seedRecords(t, mgr, "helpdesk_troubleshooting_documents", []models.EmbeddingRecord{
		{ChunkID: "c1", Text: "From the printer guide.", Source: "printers.md", Vector: []float32{1, 0, 0}},
		{ChunkID: "c2", Text: "From the network guide.", Source: "network.md", Vector: []float32{1, 0, 0}},
	})

	out, err := svc.Retrieve(context.Background(), "query", "", 5, &vectorstore.Filter{Source: "network.md"})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !out.Grounded || len(out.Passages) != 1 {
		t.Fatalf("expected exactly one filtered passage, got %+v", out)
	}
	if out.Passages[0].Source != "network.md" {
		t.Fatalf("filter kept %q, want network.md", out.Passages[0].Source)
	}
}

func TestRetrieveFilterFallsBackWhenEmpty(t *testing.T) {
	embedder := &stubEmbedder{dim: 3}
	svc, mgr := newRetrievalHarness(t, embedder)
	seedRecords(t, mgr, "helpdesk_troubleshooting_documents", []models.EmbeddingRecord{
		{ChunkID: "c1", Text: "Only evidence available.", Source: "printers.md", Vector: []float32{1, 0, 0}},
	})

	out, err := svc.Retrieve(context.Background(), "query", "", 5, &vectorstore.Filter{Source: "nonexistent.md"})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !out.Grounded {
		t.Fatal("unfiltered evidence should stand when the refinement matches nothing")
	}
	if out.Passages[0].Source != "printers.md" {
		t.Fatalf("fallback passage source = %q", out.Passages[0].Source)
	}
}

// brokenFilterBackend fails every filtered query while serving unfiltered
// ones from the wrapped backend.
type brokenFilterBackend struct {
	vectorstore.Backend
}

func (b *brokenFilterBackend) Query(ctx context.Context, name string, vector []float32, topK int, filter *vectorstore.Filter) ([]models.SearchMatch, error) {
	if !filter.IsZero() {
		return nil, errors.New("refinement backend outage")
	}
	return b.Backend.Query(ctx, name, vector, topK, filter)
}

func TestRetrieveFilterRefinementOutageKeepsEvidence(t *testing.T) {
	cfg := testConfig()
	mgr := vectorstore.NewManager(&brokenFilterBackend{Backend: vectorstore.NewMemoryBackend()})
	if err := mgr.Create(context.Background(), cfg.DefaultIndexName, 3); err != nil {
		t.Fatalf("create index: %v", err)
	}
	seedRecords(t, mgr, cfg.DefaultIndexName, []models.EmbeddingRecord{
		{ChunkID: "c1", Text: "Only evidence available.", Source: "printers.md", Vector: []float32{1, 0, 0}},
	})
	svc := NewRetrievalService(cfg, &stubEmbedder{dim: 3}, mgr, nil)

	out, err := svc.Retrieve(context.Background(), "query", "", 5, &vectorstore.Filter{Source: "printers.md"})
	if err != nil {
		t.Fatalf("refinement outage must not fail the query: %v", err)
	}
	if !out.Grounded || len(out.Passages) != 1 {
		t.Fatalf("unfiltered evidence should survive a refinement outage, got %+v", out)
	}
}

func TestRetrieveEmptyQuery(t *testing.T) {
	svc, _ := newRetrievalHarness(t, &stubEmbedder{dim: 3})

	_, err := svc.Retrieve(context.Background(), "", "", 5, nil)
	if !models.IsKind(err, models.ErrKindInvalidConfiguration) {
		t.Fatalf("empty query error = %v, want invalid configuration", err)
	}
}

func TestRetrieveMissingIndex(t *testing.T) {
	svc, _ := newRetrievalHarness(t, &stubEmbedder{dim: 3})

	_, err := svc.Retrieve(context.Background(), "query", "no_such_index", 5, nil)
	if !models.IsKind(err, models.ErrKindIndexNotFound) {
		t.Fatalf("missing index error = %v, want index not found", err)
	}
}

func TestRetrieveEmbeddingFailurePropagates(t *testing.T) {
	embedder := &stubEmbedder{dim: 3, err: models.NewPipelineError(models.ErrKindEmbeddingFailed, "provider down")}
	svc, _ := newRetrievalHarness(t, embedder)

	_, err := svc.Retrieve(context.Background(), "query", "", 5, nil)
	if !models.IsKind(err, models.ErrKindEmbeddingFailed) {
		t.Fatalf("embedding failure = %v, want embedding failed", err)
	}
}

func TestRetrieveTopKLimitsPassages(t *testing.T) {
	embedder := &stubEmbedder{dim: 3}
	svc, mgr := newRetrievalHarness(t, embedder)
	var records []models.EmbeddingRecord
	for i := 0; i < 8; i++ {
		records = append(records, models.EmbeddingRecord{
			ChunkID: string(rune('a' + i)),
			Text:    "passage",
			Source:  "doc.md",
			Vector:  []float32{1, 0, 0},
		})
	}
	seedRecords(t, mgr, "helpdesk_troubleshooting_documents", records)

	out, err := svc.Retrieve(context.Background(), "query", "", 3, nil)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(out.Passages) != 3 {
		t.Fatalf("got %d passages, want 3", len(out.Passages))
	}
}
