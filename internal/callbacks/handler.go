package callbacks

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"translation-backend/internal/documents"
	"translation-backend/internal/runs"
	"translation-backend/internal/shared/metrics"
	"translation-backend/internal/shared/server/middleware"
	"translation-backend/internal/shared/server/respond"
)

// Path is the webhook route relative to the API group.
const Path = "/webhooks/analysis"

var secretHeaders = []string{"X-Webhook-Secret", "X-N8N-Secret", "X-Callback-Secret", "X-Api-Key"}

// Handler serves the worker webhook.
type Handler struct {
	Ingestor *Ingestor
	Secret   string
}

// NewHandler constructs a Handler. An empty secret disables the check.
func NewHandler(ingestor *Ingestor, secret string) *Handler {
	return &Handler{Ingestor: ingestor, Secret: secret}
}

// RegisterRoutes attaches the webhook to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, mw...), h.receive)
	rg.POST(Path, handlers...)
}

type callbackRequest struct {
	QuoteID    string                `json:"quote_id"`
	QuoteIDAlt string                `json:"quoteId"`
	RunID      string                `json:"run_id"`
	RunIDAlt   string                `json:"runId"`
	Status     string                `json:"status"`
	Documents  *[]documents.Document `json:"documents"`
}

func (h *Handler) receive(c *gin.Context) {
	if !h.authorized(c) {
		metrics.IncCallbackRejected()
		respond.Message(c, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.IncCallbackRejected()
		respond.Message(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	cb := Callback{
		QuoteID: firstNonEmpty(req.QuoteID, req.QuoteIDAlt),
		RunID:   firstNonEmpty(req.RunID, req.RunIDAlt),
		Status:  req.Status,
	}
	if req.Documents != nil {
		cb.Documents = *req.Documents
		if cb.Documents == nil {
			cb.Documents = []documents.Document{}
		}
	}
	c.Set("quoteId", cb.QuoteID)
	c.Set("runId", cb.RunID)

	ctx := runs.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	out, err := h.Ingestor.Apply(ctx, cb)
	if err != nil {
		metrics.IncCallbackRejected()
		if errors.Is(err, ErrQuoteRequired) {
			respond.Message(c, http.StatusBadRequest, "quote_id is required")
			return
		}
		respond.Message(c, http.StatusInternalServerError, "Failed to update status")
		return
	}
	metrics.IncCallbackReceived()
	if out.RunUpdated {
		c.Set("statusTransition", "->"+string(out.RunStatus))
	}
	respond.OK(c, gin.H{"ok": true})
}

func (h *Handler) authorized(c *gin.Context) bool {
	if h.Secret == "" {
		return true
	}
	provided := ""
	for _, name := range secretHeaders {
		if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
			provided = v
			break
		}
	}
	if provided == "" {
		auth := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			provided = strings.TrimSpace(auth[7:])
		}
	}
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.Secret)) == 1
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
