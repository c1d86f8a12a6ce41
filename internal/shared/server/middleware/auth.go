package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"translation-backend/internal/shared/server/respond"
)

const (
	actorIDKey   = "actorId"
	actorRoleKey = "actorRole"
)

// Auth trusts the identity headers set by the upstream gateway and stores the
// acting staff or customer id in context. Paths in public bypass the check.
func Auth(public ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range public {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		actorID := strings.TrimSpace(c.GetHeader("X-Actor-Id"))
		if actorID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		role := strings.ToLower(strings.TrimSpace(c.GetHeader("X-Actor-Role")))
		if role == "" {
			role = "staff"
		}

		c.Set(actorIDKey, actorID)
		c.Set(actorRoleKey, role)
		c.Next()
	}
}

// ActorIDFromContext fetches the actor ID set by the auth middleware.
func ActorIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(actorIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// ActorRoleFromContext fetches the actor role set by the auth middleware.
func ActorRoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(actorRoleKey)
	if role, ok := val.(string); ok {
		return role
	}
	return ""
}
