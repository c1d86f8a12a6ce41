package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"translation-backend/internal/shared/server/middleware"
	"translation-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	actorID := middleware.ActorIDFromContext(c)
	if actorID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	respond.OK(c, gin.H{
		"actorId": actorID,
		"role":    middleware.ActorRoleFromContext(c),
	})
}
