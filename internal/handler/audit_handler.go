package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andikarf/school-core-api/internal/models"
	"github.com/andikarf/school-core-api/internal/service"
	"github.com/andikarf/school-core-api/pkg/response"
)

// AuditHandler exposes the read-only audit trail.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// List godoc
// @Summary List audit entries
// @Tags Audit
// @Produce json
// @Param action query string false "Filter by action"
// @Param entity query string false "Filter by entity type"
// @Param entityId query string false "Filter by entity ID"
// @Param actorId query string false "Filter by actor"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter models.AuditFilter
	filter.Action = c.Query("action")
	filter.Entity = c.Query("entity")
	filter.EntityID = c.Query("entityId")
	filter.ActorID = c.Query("actorId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
