package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type RoleChecker interface {
	HasRole(ctx context.Context, userID int, role string) (bool, error)
}

const roleCheckTimeout = 2 * time.Second

// RequireRole gates a route on a role-membership lookup. Must run after
// RequireAuth. A failed lookup is treated as "no role": the caller gets 403
// either way, the error is only logged.
func (m *AuthMiddleware) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), roleCheckTimeout)
		defer cancel()

		has, err := m.roles.HasRole(ctx, userID, required)

		if err != nil {
			slog.Default().WarnContext(ctx, "role check failed", "user_id", userID, "role", required, "err", err)
		}

		if !has {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Access denied",
				},
			})
			return
		}
		c.Next()
	}
}
