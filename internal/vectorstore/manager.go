package vectorstore

import (
	"context"

	"helpdesk-kb-platform/internal/logger"
	"helpdesk-kb-platform/models"
)

// Manager is the sole owner of index existence, shape, and contents. It maps
// backend failures onto the pipeline error taxonomy: taxonomy errors pass
// through, anything else surfaces as backend_unavailable for the caller to
// retry.
type Manager struct {
	backend Backend
}

func NewManager(backend Backend) *Manager {
	return &Manager{backend: backend}
}

// Exists reports whether the named index exists. Side-effect-free.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	_, err := m.backend.Describe(ctx, name)
	if err == nil {
		return true, nil
	}
	if models.IsKind(err, models.ErrKindIndexNotFound) {
		return false, nil
	}
	return false, mapBackendErr(err)
}

// ListIndexes returns the names of all indexes.
func (m *Manager) ListIndexes(ctx context.Context) ([]string, error) {
	names, err := m.backend.ListIndexes(ctx)
	if err != nil {
		return nil, mapBackendErr(err)
	}
	return names, nil
}

// Describe returns the named index's metadata.
func (m *Manager) Describe(ctx context.Context, name string) (*IndexInfo, error) {
	info, err := m.backend.Describe(ctx, name)
	if err != nil {
		return nil, mapBackendErr(err)
	}
	return info, nil
}

// Create creates a fresh index with the given dimension. Fails with
// index_already_exists when the name is taken; use Recreate for the
// destructive rebuild.
func (m *Manager) Create(ctx context.Context, name string, dimension int) error {
	if name == "" {
		return models.NewPipelineError(models.ErrKindInvalidConfiguration, "index name must not be empty")
	}
	if dimension <= 0 {
		return models.NewPipelineError(models.ErrKindInvalidConfiguration,
			"index dimension must be positive, got %d", dimension)
	}
	if err := m.backend.CreateIndex(ctx, name, dimension); err != nil {
		return mapBackendErr(err)
	}
	return nil
}

// Delete removes the named index and all of its records.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if err := m.backend.DeleteIndex(ctx, name); err != nil {
		return mapBackendErr(err)
	}
	return nil
}

// Recreate deletes the named index if present, then creates it fresh.
// The delete is best-effort: a failed delete is logged and the create is
// still attempted, since a dangling index is recoverable by a later call.
// Callers must serialize Recreate per index name (see Provisioner).
func (m *Manager) Recreate(ctx context.Context, name string, dimension int) error {
	exists, err := m.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		if err := m.backend.DeleteIndex(ctx, name); err != nil {
			logger.Warn("best-effort index delete failed, attempting create anyway",
				"index", name, "error", err.Error())
		}
	}
	return m.Create(ctx, name, dimension)
}

// Upsert writes records into the named index. Every record's vector length
// is validated against the index's declared dimension before the first
// write, so a mismatched set is rejected whole.
func (m *Manager) Upsert(ctx context.Context, name string, records []models.EmbeddingRecord) error {
	info, err := m.backend.Describe(ctx, name)
	if err != nil {
		return mapBackendErr(err)
	}
	for _, rec := range records {
		if len(rec.Vector) != info.Dimension {
			return models.NewPipelineError(models.ErrKindDimensionMismatch,
				"record %q has vector length %d, index %q expects %d",
				rec.ChunkID, len(rec.Vector), name, info.Dimension)
		}
	}
	if err := m.backend.Upsert(ctx, name, records); err != nil {
		return mapBackendErr(err)
	}
	return nil
}

// Search returns up to topK matches ordered by descending similarity.
// Zero matches is a valid outcome, not an error; equal scores keep the
// backend's original order.
func (m *Manager) Search(ctx context.Context, name string, vector []float32, topK int, filter *Filter) ([]models.SearchMatch, error) {
	matches, err := m.backend.Query(ctx, name, vector, topK, filter)
	if err != nil {
		return nil, mapBackendErr(err)
	}
	return matches, nil
}

func mapBackendErr(err error) error {
	if models.KindOf(err) != "" {
		return err
	}
	return models.WrapPipelineError(models.ErrKindBackendUnavailable, err, "vector backend call failed")
}
