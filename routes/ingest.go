package routes

import (
	"net/http"

	"helpdesk-kb-platform/internal/config"
	"helpdesk-kb-platform/internal/queue"
	"helpdesk-kb-platform/models"
	"helpdesk-kb-platform/services"
	"helpdesk-kb-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// IngestHandler exposes the ingestion pipeline over HTTP: synchronous single
// and batch processing, plus queued background ingestion.
type IngestHandler struct {
	cfg         *config.Config
	ingest      *services.IngestService
	batch       *services.BatchService
	cache       *services.ChunkCacheService
	asynqClient *asynq.Client
}

func NewIngestHandler(cfg *config.Config, ingest *services.IngestService, batch *services.BatchService,
	cache *services.ChunkCacheService, asynqClient *asynq.Client) *IngestHandler {
	return &IngestHandler{
		cfg:         cfg,
		ingest:      ingest,
		batch:       batch,
		cache:       cache,
		asynqClient: asynqClient,
	}
}

func (h *IngestHandler) Register(r *gin.RouterGroup) {
	r.POST("/documents", h.ingestDocument)
	r.POST("/documents/batch", h.ingestBatch)
	r.POST("/documents/async", h.ingestAsync)
	r.GET("/documents/:upload_id/chunks", h.documentChunks)
}

type ingestRequest struct {
	FilePath  string                 `json:"file_path" binding:"required"`
	FileName  string                 `json:"file_name" binding:"required"`
	UserID    string                 `json:"user_id"`
	IndexName string                 `json:"index_name"`
	Chunking  *services.ChunkOptions `json:"chunking"`
}

func (h *IngestHandler) ingestDocument(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
		return
	}

	doc := models.NewDocument(req.FileName, req.FilePath, req.UserID)
	doc.IndexName = req.IndexName

	result := h.ingest.IngestWithOptions(c.Request.Context(), doc, req.Chunking)
	if !result.Success {
		c.JSON(utils.StatusForErrorKind(result.ErrorKind), result)
		return
	}
	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	Files  []models.FileRef `json:"files" binding:"required"`
	UserID string           `json:"user_id"`
}

func (h *IngestHandler) ingestBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
		return
	}

	// Per-document failures live inside the batch result, so the batch call
	// itself always answers 200.
	result := h.batch.IngestBatch(c.Request.Context(), req.Files, req.UserID)
	c.JSON(http.StatusOK, result)
}

func (h *IngestHandler) ingestAsync(c *gin.Context) {
	if h.asynqClient == nil {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "queue_unavailable",
			"Background ingestion is not configured", nil)
		return
	}

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
		return
	}

	doc := models.NewDocument(req.FileName, req.FilePath, req.UserID)
	task, err := queue.NewIngestTask(queue.IngestPayload{
		UploadID: doc.UploadID,
		FilePath: req.FilePath,
		FileName: req.FileName,
		UserID:   req.UserID,
	})
	if err != nil {
		utils.RespondWithInternalError(c, "Failed to build ingestion task", err.Error())
		return
	}

	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "queue_unavailable",
			"Failed to enqueue ingestion task", err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"upload_id": doc.UploadID,
		"task_id":   info.ID,
		"queue":     info.Queue,
		"message":   "Document queued for ingestion",
	})
}

func (h *IngestHandler) documentChunks(c *gin.Context) {
	uploadID := c.Param("upload_id")
	chunks, ok := h.cache.GetDocumentChunks(c.Request.Context(), uploadID)
	if !ok {
		utils.RespondWithNotFound(c, "No cached chunks for this upload")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"upload_id": uploadID,
		"chunks":    chunks,
	})
}
