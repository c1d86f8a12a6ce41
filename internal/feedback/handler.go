package feedback

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"translation-backend/internal/shared/server/respond"
)

// Handler exposes the feedback audit trail.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches feedback routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/quotes/:id/feedback", h.list)
}

func (h *Handler) list(c *gin.Context) {
	quoteID := c.Param("id")
	c.Set("quoteId", quoteID)
	recs, err := h.Svc.List(c.Request.Context(), quoteID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list feedback", nil)
		return
	}
	respond.OK(c, gin.H{"feedback": recs})
}
