package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/andikarf/school-core-api/internal/middleware"
	"github.com/andikarf/school-core-api/internal/models"
)

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, claims)
		c.Next()
	}
}

func teacherClaims(teacherID string) *models.JWTClaims {
	return &models.JWTClaims{
		UserID:    "user-1",
		Role:      models.RoleTeacher,
		TeacherID: &teacherID,
	}
}

func TestAttendanceHandlerCreateOrGetWithoutStaffIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &AttendanceHandler{}
	router := gin.New()
	// Admin account without a linked teacher record.
	router.Use(withClaims(&models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin}))
	router.POST("/attendance/sessions", handler.CreateOrGet)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/attendance/sessions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAttendanceHandlerSubmitRejectsMalformedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &AttendanceHandler{}
	router := gin.New()
	router.Use(withClaims(teacherClaims("teacher-1")))
	router.POST("/attendance/sessions/:id/submit", handler.Submit)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/attendance/sessions/att-1/submit", bytes.NewReader([]byte(`{"records":`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerRBACUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &AttendanceHandler{}
	router := gin.New()
	router.POST("/attendance/sessions", internalmiddleware.RequireRoles(models.RoleTeacher), handler.CreateOrGet)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/attendance/sessions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
