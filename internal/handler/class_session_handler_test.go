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

func TestClassSessionHandlerOpenWithoutStaffIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ClassSessionHandler{}
	router := gin.New()
	router.Use(withClaims(&models.JWTClaims{UserID: "user-1", Role: models.RolePrincipal}))
	router.POST("/class-sessions/open", handler.Open)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/class-sessions/open", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestClassSessionHandlerOpenForbiddenRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ClassSessionHandler{}
	router := gin.New()
	router.Use(withClaims(&models.JWTClaims{UserID: "user-1", Role: models.UserRole("GUEST")}))
	router.POST("/class-sessions/open",
		internalmiddleware.RequireRoles(models.RoleTeacher, models.RolePrincipal, models.RoleAdmin),
		handler.Open)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/class-sessions/open", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestClassSessionHandlerOpenRejectsMalformedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ClassSessionHandler{}
	router := gin.New()
	router.Use(withClaims(teacherClaims("teacher-1")))
	router.POST("/class-sessions/open", handler.Open)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/class-sessions/open", bytes.NewReader([]byte(`{"date":`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
