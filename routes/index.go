package routes

import (
	"net/http"

	"helpdesk-kb-platform/internal/config"
	"helpdesk-kb-platform/internal/telemetry"
	"helpdesk-kb-platform/internal/vectorstore"
	"helpdesk-kb-platform/models"
	"helpdesk-kb-platform/utils"

	"github.com/gin-gonic/gin"
)

// IndexHandler manages vector index lifecycle.
type IndexHandler struct {
	cfg         *config.Config
	manager     *vectorstore.Manager
	provisioner *vectorstore.Provisioner
	metrics     *telemetry.Metrics
}

func NewIndexHandler(cfg *config.Config, manager *vectorstore.Manager,
	provisioner *vectorstore.Provisioner, metrics *telemetry.Metrics) *IndexHandler {
	return &IndexHandler{cfg: cfg, manager: manager, provisioner: provisioner, metrics: metrics}
}

func (h *IndexHandler) Register(r *gin.RouterGroup) {
	r.GET("/indexes", h.listIndexes)
	r.GET("/indexes/:name", h.describeIndex)
	r.POST("/indexes", h.createIndex)
	r.POST("/indexes/:name/recreate", h.recreateIndex)
	r.DELETE("/indexes/:name", h.deleteIndex)
}

func (h *IndexHandler) listIndexes(c *gin.Context) {
	names, err := h.manager.ListIndexes(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list indexes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexes": names})
}

func (h *IndexHandler) describeIndex(c *gin.Context) {
	info, err := h.manager.Describe(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err, "Failed to describe index")
		return
	}
	c.JSON(http.StatusOK, info)
}

type createIndexRequest struct {
	Name      string `json:"name" binding:"required"`
	Dimension int    `json:"dimension"`
}

func (h *IndexHandler) createIndex(c *gin.Context) {
	var req createIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
		return
	}
	dimension := req.Dimension
	if dimension <= 0 {
		dimension = h.cfg.VectorDimensions
	}

	err := h.manager.Create(c.Request.Context(), req.Name, dimension)
	h.recordOperation("create", req.Name, err == nil)
	if err != nil {
		h.respondError(c, err, "Failed to create index")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name, "dimension": dimension})
}

type recreateIndexRequest struct {
	Dimension int `json:"dimension"`
}

func (h *IndexHandler) recreateIndex(c *gin.Context) {
	name := c.Param("name")

	var req recreateIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
		return
	}
	dimension := req.Dimension
	if dimension <= 0 {
		dimension = h.cfg.VectorDimensions
	}

	err := h.provisioner.Recreate(c.Request.Context(), name, dimension)
	h.recordOperation("recreate", name, err == nil)
	if err != nil {
		h.respondError(c, err, "Failed to recreate index")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":      name,
		"dimension": dimension,
		"message":   "Index recreated",
	})
}

func (h *IndexHandler) deleteIndex(c *gin.Context) {
	name := c.Param("name")
	err := h.manager.Delete(c.Request.Context(), name)
	h.recordOperation("delete", name, err == nil)
	if err != nil {
		h.respondError(c, err, "Failed to delete index")
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "message": "Index deleted"})
}

func (h *IndexHandler) respondError(c *gin.Context, err error, message string) {
	kind := models.KindOf(err)
	utils.RespondWithError(c, utils.StatusForErrorKind(kind), string(kind), message, err.Error())
}

func (h *IndexHandler) recordOperation(op, name string, success bool) {
	if h.metrics != nil {
		h.metrics.RecordIndexOperation(op, name, success)
	}
}
