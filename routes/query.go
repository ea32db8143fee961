package routes

import (
	"net/http"

	"helpdesk-kb-platform/internal/config"
	"helpdesk-kb-platform/internal/vectorstore"
	"helpdesk-kb-platform/models"
	"helpdesk-kb-platform/services"
	"helpdesk-kb-platform/utils"

	"github.com/gin-gonic/gin"
)

// QueryHandler answers knowledge-base queries with grounded passages.
type QueryHandler struct {
	cfg       *config.Config
	retrieval *services.RetrievalService
}

func NewQueryHandler(cfg *config.Config, retrieval *services.RetrievalService) *QueryHandler {
	return &QueryHandler{cfg: cfg, retrieval: retrieval}
}

func (h *QueryHandler) Register(r *gin.RouterGroup) {
	r.POST("/query", h.query)
}

type queryRequest struct {
	Query     string              `json:"query" binding:"required"`
	IndexName string              `json:"index_name"`
	TopK      int                 `json:"top_k"`
	Filter    *vectorstore.Filter `json:"filter"`
}

type queryResponse struct {
	Grounded bool             `json:"grounded"`
	Passages []models.Passage `json:"passages,omitempty"`
	Message  string           `json:"message,omitempty"`
}

func (h *QueryHandler) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
		return
	}

	outcome, err := h.retrieval.Retrieve(c.Request.Context(), req.Query, req.IndexName, req.TopK, req.Filter)
	if err != nil {
		kind := models.KindOf(err)
		utils.RespondWithError(c, utils.StatusForErrorKind(kind), string(kind),
			"Failed to answer query", err.Error())
		return
	}

	if !outcome.Grounded {
		c.JSON(http.StatusOK, queryResponse{
			Grounded: false,
			Message:  services.NoEvidenceMessage,
		})
		return
	}

	c.JSON(http.StatusOK, queryResponse{
		Grounded: true,
		Passages: outcome.Passages,
	})
}
