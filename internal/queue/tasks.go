package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"helpdesk-kb-platform/internal/logger"
	"helpdesk-kb-platform/models"
	"helpdesk-kb-platform/services"

	"github.com/hibiken/asynq"
)

const TaskIngestDocument = "document:ingest"

// IngestPayload is the wire form of one queued ingestion job.
type IngestPayload struct {
	UploadID string `json:"upload_id"`
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
	UserID   string `json:"user_id,omitempty"`
}

// NewIngestTask builds the asynq task for one document.
func NewIngestTask(payload IngestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingest payload: %w", err)
	}
	return asynq.NewTask(TaskIngestDocument, data,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	), nil
}

// TaskProcessor executes queued ingestion jobs against the same pipeline the
// synchronous endpoints use.
type TaskProcessor struct {
	ingest *services.IngestService
}

func NewTaskProcessor(ingest *services.IngestService) *TaskProcessor {
	return &TaskProcessor{ingest: ingest}
}

// HandleIngest runs one queued ingestion. Transient backend outages are
// returned as plain errors so asynq retries them; every other failure is
// deterministic and marked SkipRetry.
func (p *TaskProcessor) HandleIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	doc := models.NewDocument(payload.FileName, payload.FilePath, payload.UserID)
	if payload.UploadID != "" {
		doc.UploadID = payload.UploadID
	}

	result := p.ingest.Ingest(ctx, doc)
	if result.Success {
		logger.Info("queued ingestion complete",
			"upload_id", result.UploadID, "file", result.FileName, "chunks", result.ChunkCount)
		return nil
	}

	if result.ErrorKind == models.ErrKindBackendUnavailable {
		return fmt.Errorf("backend unavailable ingesting %s: %s", result.FileName, result.Error)
	}
	return fmt.Errorf("ingestion of %s failed (%s): %s: %w",
		result.FileName, result.ErrorKind, result.Error, asynq.SkipRetry)
}

// NewServeMux registers all task handlers.
func NewServeMux(processor *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskIngestDocument, processor.HandleIngest)
	return mux
}
