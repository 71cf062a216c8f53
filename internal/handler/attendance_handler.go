package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andikarf/school-core-api/internal/service"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
	"github.com/andikarf/school-core-api/pkg/response"
)

// AttendanceHandler manages attendance session endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// CreateOrGet godoc
// @Summary Create or fetch an attendance session
// @Description Creates the draft session for the caller's section and date,
// @Description or returns the existing one with its merged roster.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CreateOrGetSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/sessions [post]
func (h *AttendanceHandler) CreateOrGet(c *gin.Context) {
	actor := staffID(c)
	if actor == "" {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	var req service.CreateOrGetSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.TeacherID = actor

	result, err := h.service.CreateOrGetSession(c.Request.Context(), req)
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

// Submit godoc
// @Summary Submit an attendance session
// @Description Finalizes the draft in one atomic step. A session already
// @Description submitted by another caller is rejected, never overwritten.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.SubmitSessionRequest true "Attendance records"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/sessions/{id}/submit [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	actor := staffID(c)
	if actor == "" {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	var req service.SubmitSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.TeacherID = actor

	counts, err := h.service.SubmitSession(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// Get godoc
// @Summary Get an attendance session
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/sessions/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	result, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export an attendance session
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Session ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /attendance/sessions/{id}/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, filename, err := h.service.ExportSession(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "text/csv"
	if strings.HasSuffix(filename, ".pdf") {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, payload)
}
