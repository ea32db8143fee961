package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"helpdesk-kb-platform/models"
)

// MemoryBackend keeps indexes in process memory. It backs dev mode and
// tests; semantics match the Mongo backend (cosine similarity, stable
// ordering on equal scores).
type MemoryBackend struct {
	mu      sync.RWMutex
	indexes map[string]*memoryIndex
}

type memoryIndex struct {
	dimension int
	records   []models.EmbeddingRecord
	byChunkID map[string]int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{indexes: make(map[string]*memoryIndex)}
}

func (m *MemoryBackend) ListIndexes(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.indexes))
	for name := range m.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryBackend) Describe(ctx context.Context, name string) (*IndexInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.indexes[name]
	if !ok {
		return nil, models.NewPipelineError(models.ErrKindIndexNotFound, "index %q does not exist", name)
	}
	return &IndexInfo{Name: name, Dimension: idx.dimension}, nil
}

func (m *MemoryBackend) CreateIndex(ctx context.Context, name string, dimension int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[name]; ok {
		return models.NewPipelineError(models.ErrKindIndexAlreadyExists, "index %q already exists", name)
	}
	m.indexes[name] = &memoryIndex{dimension: dimension, byChunkID: make(map[string]int)}
	return nil
}

func (m *MemoryBackend) DeleteIndex(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[name]; !ok {
		return models.NewPipelineError(models.ErrKindIndexNotFound, "index %q does not exist", name)
	}
	delete(m.indexes, name)
	return nil
}

func (m *MemoryBackend) Upsert(ctx context.Context, name string, records []models.EmbeddingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.indexes[name]
	if !ok {
		return models.NewPipelineError(models.ErrKindIndexNotFound, "index %q does not exist", name)
	}
	for _, rec := range records {
		if pos, ok := idx.byChunkID[rec.ChunkID]; ok {
			idx.records[pos] = rec
			continue
		}
		idx.byChunkID[rec.ChunkID] = len(idx.records)
		idx.records = append(idx.records, rec)
	}
	return nil
}

func (m *MemoryBackend) Query(ctx context.Context, name string, vector []float32, topK int, filter *Filter) ([]models.SearchMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.indexes[name]
	if !ok {
		return nil, models.NewPipelineError(models.ErrKindIndexNotFound, "index %q does not exist", name)
	}

	matches := make([]models.SearchMatch, 0, len(idx.records))
	for _, rec := range idx.records {
		if !matchesFilter(rec, filter) {
			continue
		}
		matches = append(matches, models.SearchMatch{Record: rec, Score: CosineSimilarity(vector, rec.Vector)})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func matchesFilter(rec models.EmbeddingRecord, filter *Filter) bool {
	if filter.IsZero() {
		return true
	}
	if filter.Source != "" && rec.Source != filter.Source {
		return false
	}
	if filter.Category != "" && rec.Category != filter.Category {
		return false
	}
	return true
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Zero vectors score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
