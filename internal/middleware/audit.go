package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	"github.com/lnhs-portal/docrequest-api/internal/repository"
)

// Audit records an activity log entry after a successful mutation. The
// services log the domain-level actions themselves; this catches admin
// routes that have no dedicated action constant.
func Audit(repo *repository.ActivityRepository, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claimsValue, ok := c.Get(ContextUserKey); ok {
			if claims, ok := claimsValue.(*models.JWTClaims); ok {
				userID = &claims.UserID
			}
		}

		desc := fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())
		_ = repo.Create(c.Request.Context(), &models.ActivityLog{
			UserID:      userID,
			Action:      action,
			Description: &desc,
			IPAddress:   c.ClientIP(),
		})
	}
}
