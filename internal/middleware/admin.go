package middleware

import (
	"tresesenta/internal/domain"

	"github.com/gin-gonic/gin"
)

// AdminRequired checks the ADMIN role claim. Services re-check the admin
// flag in the database before any mutation.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != domain.RoleAdmin {
			abortForbidden(c)
			return
		}
		c.Next()
	}
}
