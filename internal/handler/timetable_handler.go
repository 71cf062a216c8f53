package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andikarf/school-core-api/internal/service"
	appErrors "github.com/andikarf/school-core-api/pkg/errors"
	"github.com/andikarf/school-core-api/pkg/response"
)

// TimetableHandler manages weekly timetable slot endpoints.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// AssignSlot godoc
// @Summary Assign a timetable slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.AssignSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/slots [post]
func (h *TimetableHandler) AssignSlot(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AssignSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	slot, err := h.service.AssignSlot(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// RemoveSlot godoc
// @Summary Remove a timetable slot
// @Tags Timetable
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204
// @Router /timetable/slots/{id} [delete]
func (h *TimetableHandler) RemoveSlot(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.RemoveSlot(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SectionTimetable godoc
// @Summary Weekly timetable for a section
// @Tags Timetable
// @Produce json
// @Param sectionId path string true "Section ID"
// @Param termId query string false "Term ID, defaults to the active term"
// @Success 200 {object} response.Envelope
// @Router /timetable/sections/{sectionId} [get]
func (h *TimetableHandler) SectionTimetable(c *gin.Context) {
	week, err := h.service.SectionTimetable(c.Request.Context(), c.Param("sectionId"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, week, nil)
}

// TeacherTimetable godoc
// @Summary Weekly timetable for a teacher
// @Tags Timetable
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param termId query string false "Term ID, defaults to the active term"
// @Success 200 {object} response.Envelope
// @Router /timetable/teachers/{teacherId} [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	week, err := h.service.TeacherTimetable(c.Request.Context(), c.Param("teacherId"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, week, nil)
}
