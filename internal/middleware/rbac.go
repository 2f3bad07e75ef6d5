package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/response"
)

// RequireRole checks that the verified admin holds at least role. It must run
// after the route gate.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if !model.RoleSatisfies(role, p.Role) {
			response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
			return
		}

		c.Next()
	}
}
