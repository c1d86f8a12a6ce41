package quotes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"translation-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches quote routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes", h.create)
	rg.GET("/quotes/:id", h.get)
}

type createRequest struct {
	ID string `json:"id"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	q, err := h.Svc.Create(c.Request.Context(), req.ID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create quote", nil)
		return
	}
	c.Set("quoteId", q.ID)
	respond.JSON(c, http.StatusCreated, q)
}

func (h *Handler) get(c *gin.Context) {
	quoteID := c.Param("id")
	c.Set("quoteId", quoteID)
	q, err := h.Svc.Get(c.Request.Context(), quoteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "quote not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch quote", nil)
		return
	}
	respond.OK(c, q)
}
