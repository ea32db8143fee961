package vectorstore

import (
	"context"

	"helpdesk-kb-platform/models"
)

// Filter narrows a similarity search to records matching its fields.
// A nil *Filter means no filtering; there is no serialized empty sentinel.
type Filter struct {
	Source   string `json:"source,omitempty"`
	Category string `json:"category,omitempty"`
}

// IsZero reports whether the filter matches everything.
func (f *Filter) IsZero() bool {
	return f == nil || (f.Source == "" && f.Category == "")
}

// IndexInfo describes one named index.
type IndexInfo struct {
	Name      string `json:"name" bson:"_id"`
	Dimension int    `json:"dimension" bson:"dimension"`
}

// Backend is the storage engine beneath the index manager. Implementations
// must be safe for concurrent use; the backend provides its own consistency
// for concurrent upserts and searches against the same index.
type Backend interface {
	ListIndexes(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, name string) (*IndexInfo, error)
	CreateIndex(ctx context.Context, name string, dimension int) error
	DeleteIndex(ctx context.Context, name string) error
	Upsert(ctx context.Context, name string, records []models.EmbeddingRecord) error
	Query(ctx context.Context, name string, vector []float32, topK int, filter *Filter) ([]models.SearchMatch, error)
}
