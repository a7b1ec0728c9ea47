package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lnhs-portal/docrequest-api/internal/middleware"
	"github.com/lnhs-portal/docrequest-api/internal/models"
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

// isBackOffice reports whether the caller may see other users' data.
func isBackOffice(claims *models.JWTClaims) bool {
	if claims == nil {
		return false
	}
	return claims.Role == models.RoleStaff || claims.Role == models.RoleAdmin
}

func queryInt(c *gin.Context, key string, fallback int) int {
	return atoiOr(c.Query(key), fallback)
}

func queryFormInt(c *gin.Context, key string, fallback int) int {
	return atoiOr(c.PostForm(key), fallback)
}

func atoiOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
