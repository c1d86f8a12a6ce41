package runs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"translation-backend/internal/documents"
	"translation-backend/internal/quotes"
	"translation-backend/internal/shared/server/middleware"
	"translation-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the run lifecycle service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis run routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes/:id/analysis-runs", h.createRun)
	rg.GET("/quotes/:id/analysis-runs", h.history)
	rg.POST("/analysis-runs/:id/dispatch", h.dispatch)
	rg.GET("/analysis-runs/:id/status", h.status)
	rg.GET("/analysis-runs/:id/results", h.results)
	rg.POST("/analysis-runs/:id/discard", h.discard)
	rg.POST("/analysis-runs/:id/use", h.use)
	rg.PATCH("/analysis-runs/:id/documents/:index", h.editDocument)
}

type createRunRequest struct {
	RunType  string `json:"run_type"`
	Dispatch *bool  `json:"dispatch"`
}

func (h *Handler) createRun(c *gin.Context) {
	quoteID := c.Param("id")
	c.Set("quoteId", quoteID)

	var req createRunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	run, err := h.Svc.CreateRun(ctx, quoteID, req.RunType)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "run_type must be auto or manual", nil)
		case errors.Is(err, quotes.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "quote not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create analysis run", nil)
		}
		return
	}
	c.Set("runId", run.ID)
	c.Set("statusTransition", "->"+string(run.Status))

	resp := gin.H{
		"run_id":     run.ID,
		"version":    run.Version,
		"status":     ClientStatus(run.Status),
		"dispatched": false,
	}
	if req.Dispatch == nil || *req.Dispatch {
		if _, err := h.Svc.Dispatch(ctx, run.ID); err != nil {
			resp["dispatch_error"] = err.Error()
		} else {
			resp["dispatched"] = true
		}
	}
	respond.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) dispatch(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, err := h.Svc.Dispatch(ctx, runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis run not found", nil)
		case errors.Is(err, ErrRunDiscarded):
			respond.Error(c, http.StatusConflict, "run_discarded", "analysis run is discarded", nil)
		case errors.Is(err, ErrDispatchNotConfigured):
			respond.Error(c, http.StatusServiceUnavailable, "dispatch_unavailable", "analysis worker is not configured", nil)
		case errors.Is(err, ErrDispatchFailed):
			respond.Error(c, http.StatusBadGateway, "dispatch_failed", "analysis worker could not be reached", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to dispatch analysis run", nil)
		}
		return
	}
	respond.OK(c, gin.H{"ok": true, "run_id": res.RunID, "files": res.Files})
}

func (h *Handler) status(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)
	view, err := h.Svc.GetStatus(c.Request.Context(), runID)
	if err != nil {
		h.runError(c, err, "failed to fetch analysis status")
		return
	}
	respond.OK(c, view)
}

func (h *Handler) results(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)
	res, err := h.Svc.Results(c.Request.Context(), runID)
	if err != nil {
		h.runError(c, err, "failed to fetch analysis results")
		return
	}
	c.Set("quoteId", res.QuoteID)
	respond.OK(c, res)
}

type historyItem struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	RunType   string `json:"run_type"`
	Status    string `json:"status"`
	IsActive  bool   `json:"is_active"`
	Discarded bool   `json:"discarded"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (h *Handler) history(c *gin.Context) {
	quoteID := c.Param("id")
	c.Set("quoteId", quoteID)

	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", nil)
			return
		}
		limit = parsed
	}

	runs, err := h.Svc.History(c.Request.Context(), quoteID, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analysis runs", nil)
		return
	}
	items := make([]historyItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, historyItem{
			ID:        r.ID,
			Version:   r.Version,
			RunType:   r.RunType,
			Status:    ClientStatus(r.Status),
			IsActive:  r.IsActive,
			Discarded: r.Discarded,
			CreatedAt: r.CreatedAt.UTC().Format(timeLayout),
			UpdatedAt: r.UpdatedAt.UTC().Format(timeLayout),
		})
	}
	respond.OK(c, gin.H{"runs": items})
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type discardRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) discard(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	var req discardRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	run, err := h.Svc.Discard(ctx, runID, req.Reason, middleware.ActorIDFromContext(c))
	if err != nil {
		h.runError(c, err, "failed to discard analysis run")
		return
	}
	c.Set("quoteId", run.QuoteID)
	c.Set("statusTransition", "->"+string(StatusDiscarded))
	respond.OK(c, gin.H{"ok": true, "run_id": run.ID})
}

type useRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (h *Handler) use(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	var req useRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, err := h.Svc.Use(ctx, runID, req.Confirmed)
	if err != nil {
		switch {
		case errors.Is(err, ErrConfirmationRequired):
			respond.Error(c, http.StatusBadRequest, "confirmation_required", "confirmed must be true", nil)
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrRunNotReady), errors.Is(err, ErrRunDiscarded):
			h.runError(c, err, "")
		default:
			respond.Error(c, http.StatusBadGateway, "billing_failed", "failed to apply analysis run to quote", nil)
		}
		return
	}
	c.Set("quoteId", res.QuoteID)
	c.Set("statusTransition", "inactive->active")
	respond.OK(c, res)
}

type editRequest struct {
	documents.Patch
	Feedback string `json:"feedback"`
}

func (h *Handler) editDocument(c *gin.Context) {
	runID := c.Param("id")
	c.Set("runId", runID)

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "index must be an integer", nil)
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	doc, err := h.Svc.Edit(ctx, runID, index, req.Patch, req.Feedback, middleware.ActorIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrInvalidPatch):
			respond.Error(c, http.StatusBadRequest, "validation_error", "patch must change at least one field and amounts cannot be negative", nil)
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			h.runError(c, err, "failed to update document")
		}
		return
	}
	c.Set("quoteId", doc.QuoteID)
	respond.OK(c, doc)
}

// runError maps lifecycle errors onto HTTP responses.
func (h *Handler) runError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis run not found", nil)
	case errors.Is(err, ErrRunNotReady):
		respond.Error(c, http.StatusConflict, "run_not_ready", "analysis run is not ready", nil)
	case errors.Is(err, ErrRunDiscarded):
		respond.Error(c, http.StatusConflict, "run_discarded", "analysis run is discarded", nil)
	case errors.Is(err, ErrRunActive):
		respond.Error(c, http.StatusConflict, "run_active", "the active analysis run cannot be discarded", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
