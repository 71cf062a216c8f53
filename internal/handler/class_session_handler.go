package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andikarf/school-core-api/internal/service"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
	"github.com/andikarf/school-core-api/pkg/response"
)

// ClassSessionHandler manages class session lifecycle endpoints.
type ClassSessionHandler struct {
	service *service.ClassSessionService
}

// NewClassSessionHandler constructs handler.
func NewClassSessionHandler(svc *service.ClassSessionService) *ClassSessionHandler {
	return &ClassSessionHandler{service: svc}
}

// Open godoc
// @Summary Open a class session
// @Description Opens the class session for the caller's slot on the given date.
// @Description Re-opening an already open session returns the existing one.
// @Tags Class Sessions
// @Accept json
// @Produce json
// @Param payload body service.OpenSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /class-sessions/open [post]
func (h *ClassSessionHandler) Open(c *gin.Context) {
	actor := staffID(c)
	if actor == "" {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	var req service.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.TeacherID = actor

	result, err := h.service.OpenSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, result, nil)
}

// Get godoc
// @Summary Get a class session
// @Tags Class Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /class-sessions/{id} [get]
func (h *ClassSessionHandler) Get(c *gin.Context) {
	session, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
