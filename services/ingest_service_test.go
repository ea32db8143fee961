package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"helpdesk-kb-platform/internal/config"
	"helpdesk-kb-platform/internal/extract"
	"helpdesk-kb-platform/internal/vectorstore"
	"helpdesk-kb-platform/models"
)

type stubEmbedder struct {
	dim     int
	vectors map[string][]float32
	err     error
	short   bool
}

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, []float32{1, 0, 0})
	}
	if e.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int { return e.dim }

type stubExtractor struct {
	text    string
	err     error
	panicOn string
}

func (e *stubExtractor) Extract(ctx context.Context, path string, kind models.FileKind) (string, error) {
	if e.panicOn != "" && filepath.Base(path) == e.panicOn {
		panic("extractor blew up on " + path)
	}
	return e.text, e.err
}

func testConfig() *config.Config {
	return &config.Config{
		ChunkSize:        1000,
		ChunkOverlap:     250,
		ChunkSeparator:   "\n\n",
		DefaultIndexName: "helpdesk_troubleshooting_documents",
		VectorDimensions: 3,
		BatchWorkers:     4,
	}
}

func newIngestHarness(t *testing.T, extractor extract.Extractor, embedder *stubEmbedder) (*IngestService, *vectorstore.Manager) {
	t.Helper()
	cfg := testConfig()
	mgr := vectorstore.NewManager(vectorstore.NewMemoryBackend())
	if err := mgr.Create(context.Background(), cfg.DefaultIndexName, embedder.dim); err != nil {
		t.Fatalf("create index: %v", err)
	}
	return NewIngestService(cfg, extractor, embedder, mgr, nil, nil), mgr
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestIngestSuccess(t *testing.T) {
	path := writeTempFile(t, "guide.txt", "Restart the print spooler service and retry the job.")
	svc, mgr := newIngestHarness(t, extract.NewFileExtractor(), &stubEmbedder{dim: 3})

	doc := models.NewDocument("guide.txt", path, "")
	res := svc.Ingest(context.Background(), doc)

	if !res.Success {
		t.Fatalf("expected success, got error kind %q: %s", res.ErrorKind, res.Error)
	}
	if res.ChunkCount != 1 {
		t.Fatalf("expected 1 chunk, got %d", res.ChunkCount)
	}
	if res.IndexName != "helpdesk_troubleshooting_documents" {
		t.Fatalf("unexpected index name %q", res.IndexName)
	}

	matches, err := mgr.Search(context.Background(), res.IndexName, []float32{1, 0, 0}, 10, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(matches))
	}
	if matches[0].Record.Source != "guide.txt" {
		t.Fatalf("stored record source = %q, want guide.txt", matches[0].Record.Source)
	}
}

func TestIngestFileNotFound(t *testing.T) {
	svc, _ := newIngestHarness(t, extract.NewFileExtractor(), &stubEmbedder{dim: 3})

	doc := models.NewDocument("missing.txt", filepath.Join(t.TempDir(), "missing.txt"), "")
	res := svc.Ingest(context.Background(), doc)

	if res.Success {
		t.Fatal("expected failure for missing file")
	}
	if res.ErrorKind != models.ErrKindFileNotFound {
		t.Fatalf("error kind = %q, want %q", res.ErrorKind, models.ErrKindFileNotFound)
	}
}

func TestIngestUnsupportedFileType(t *testing.T) {
	path := writeTempFile(t, "tool.exe", "binary")
	svc, _ := newIngestHarness(t, extract.NewFileExtractor(), &stubEmbedder{dim: 3})

	doc := models.NewDocument("tool.exe", path, "")
	res := svc.Ingest(context.Background(), doc)

	if res.Success {
		t.Fatal("expected failure for unsupported type")
	}
	if res.ErrorKind != models.ErrKindUnsupportedFileType {
		t.Fatalf("error kind = %q, want %q", res.ErrorKind, models.ErrKindUnsupportedFileType)
	}
	if res.Error == "" {
		t.Fatal("expected detail listing supported types")
	}
}

func TestIngestExtractionFailure(t *testing.T) {
	path := writeTempFile(t, "broken.txt", "irrelevant")
	svc, _ := newIngestHarness(t, &stubExtractor{err: errors.New("corrupt stream")}, &stubEmbedder{dim: 3})

	doc := models.NewDocument("broken.txt", path, "")
	res := svc.Ingest(context.Background(), doc)

	if res.Success || res.ErrorKind != models.ErrKindExtractionFailed {
		t.Fatalf("error kind = %q, want %q", res.ErrorKind, models.ErrKindExtractionFailed)
	}
}

func TestIngestEmbeddingFailure(t *testing.T) {
	path := writeTempFile(t, "guide.txt", "some text")
	embedder := &stubEmbedder{dim: 3, err: models.NewPipelineError(models.ErrKindEmbeddingFailed, "provider unreachable")}
	svc, _ := newIngestHarness(t, extract.NewFileExtractor(), embedder)

	res := svc.Ingest(context.Background(), models.NewDocument("guide.txt", path, ""))

	if res.Success || res.ErrorKind != models.ErrKindEmbeddingFailed {
		t.Fatalf("error kind = %q, want %q", res.ErrorKind, models.ErrKindEmbeddingFailed)
	}
}

func TestIngestEmbeddingCountMismatch(t *testing.T) {
	path := writeTempFile(t, "guide.txt", "some text")
	svc, _ := newIngestHarness(t, extract.NewFileExtractor(), &stubEmbedder{dim: 3, short: true})

	res := svc.Ingest(context.Background(), models.NewDocument("guide.txt", path, ""))

	if res.Success || res.ErrorKind != models.ErrKindEmbeddingCountMismatch {
		t.Fatalf("error kind = %q, want %q", res.ErrorKind, models.ErrKindEmbeddingCountMismatch)
	}
}

func TestIngestDimensionMismatchRejectsWholeDocument(t *testing.T) {
	path := writeTempFile(t, "guide.txt", "some text")
	embedder := &stubEmbedder{dim: 3, vectors: map[string][]float32{
		"some text": {1, 0},
	}}
	svc, mgr := newIngestHarness(t, extract.NewFileExtractor(), embedder)

	res := svc.Ingest(context.Background(), models.NewDocument("guide.txt", path, ""))

	if res.Success || res.ErrorKind != models.ErrKindDimensionMismatch {
		t.Fatalf("error kind = %q, want %q", res.ErrorKind, models.ErrKindDimensionMismatch)
	}
	matches, err := mgr.Search(context.Background(), res.IndexName, []float32{1, 0, 0}, 10, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no partial writes, found %d records", len(matches))
	}
}

func TestIngestEmptyDocumentSucceedsWithZeroChunks(t *testing.T) {
	path := writeTempFile(t, "empty.txt", "")
	svc, _ := newIngestHarness(t, extract.NewFileExtractor(), &stubEmbedder{dim: 3})

	res := svc.Ingest(context.Background(), models.NewDocument("empty.txt", path, ""))

	if !res.Success {
		t.Fatalf("empty file should succeed, got %q: %s", res.ErrorKind, res.Error)
	}
	if res.ChunkCount != 0 {
		t.Fatalf("expected 0 chunks, got %d", res.ChunkCount)
	}
}

func TestIngestMissingIndex(t *testing.T) {
	path := writeTempFile(t, "guide.txt", "some text")
	cfg := testConfig()
	mgr := vectorstore.NewManager(vectorstore.NewMemoryBackend())
	svc := NewIngestService(cfg, extract.NewFileExtractor(), &stubEmbedder{dim: 3}, mgr, nil, nil)

	res := svc.Ingest(context.Background(), models.NewDocument("guide.txt", path, ""))

	if res.Success || res.ErrorKind != models.ErrKindIndexNotFound {
		t.Fatalf("error kind = %q, want %q", res.ErrorKind, models.ErrKindIndexNotFound)
	}
}

func TestIndexNameFor(t *testing.T) {
	cfg := testConfig()
	cases := []struct {
		userID string
		want   string
	}{
		{"", "helpdesk_troubleshooting_documents"},
		{"alice", "alice_docs"},
		{"Alice Smith", "alice_smith_docs"},
		{"ops-team/42", "ops_team_42_docs"},
	}
	for _, tc := range cases {
		if got := IndexNameFor(cfg, tc.userID); got != tc.want {
			t.Errorf("IndexNameFor(%q) = %q, want %q", tc.userID, got, tc.want)
		}
	}
}

func TestIngestWithOptionsOverridesChunking(t *testing.T) {
	// 25 chars with size 10 / overlap 5 gives a stride of 5.
	text := "aaaaaaaaaaaaaaaaaaaaaaaaa"
	path := writeTempFile(t, "guide.txt", text)
	svc, _ := newIngestHarness(t, extract.NewFileExtractor(), &stubEmbedder{dim: 3})

	res := svc.IngestWithOptions(context.Background(), models.NewDocument("guide.txt", path, ""),
		&ChunkOptions{Size: 10, Overlap: 5})

	if !res.Success {
		t.Fatalf("expected success, got %q: %s", res.ErrorKind, res.Error)
	}
	if res.ChunkCount != 4 {
		t.Fatalf("expected 4 chunks with overridden options, got %d", res.ChunkCount)
	}
}
