package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/andikarf/school-core-api/internal/middleware"
	"github.com/andikarf/school-core-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// staffID resolves the acting teacher identity from the JWT claims. Empty
// when the user carries no staff record.
func staffID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.TeacherID == nil {
		return ""
	}
	return *claims.TeacherID
}
