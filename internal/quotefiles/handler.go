package quotefiles

import (
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"translation-backend/internal/quotes"
	"translation-backend/internal/shared/server/respond"
	"translation-backend/internal/shared/storage/object"
	"translation-backend/internal/shared/storage/object/local"
)

const maxUploadSize = 25 << 20 // 25MB

// Verifier checks signed download links issued by the local store.
type Verifier interface {
	Verify(storageKey, expires, sig string) error
}

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc      *Service
	Store    object.ObjectStore
	Verifier Verifier
}

// NewHandler constructs a Handler. verifier may be nil when files are served
// from S3 presigned links instead.
func NewHandler(svc *Service, verifier Verifier) *Handler {
	return &Handler{Svc: svc, Store: svc.Store, Verifier: verifier}
}

// RegisterRoutes attaches quote file routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes/:id/files", h.upload)
	rg.GET("/quotes/:id/files", h.list)
}

// RegisterPublicRoutes attaches routes reachable without an actor identity.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	if h.Verifier == nil {
		return
	}
	rg.GET("/files/download", h.download)
}

func (h *Handler) upload(c *gin.Context) {
	quoteID := c.Param("id")
	c.Set("quoteId", quoteID)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	saved, err := h.Svc.Upload(c.Request.Context(), quoteID, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, quotes.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "quote not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload file", nil)
		}
		return
	}
	respond.JSON(c, http.StatusCreated, saved)
}

func (h *Handler) list(c *gin.Context) {
	quoteID := c.Param("id")
	c.Set("quoteId", quoteID)
	files, err := h.Svc.List(c.Request.Context(), quoteID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list files", nil)
		return
	}
	respond.OK(c, gin.H{"files": files})
}

func (h *Handler) download(c *gin.Context) {
	key := c.Query("key")
	if err := h.Verifier.Verify(key, c.Query("expires"), c.Query("sig")); err != nil {
		if errors.Is(err, local.ErrSignatureExpired) {
			respond.Error(c, http.StatusForbidden, "link_expired", "download link expired", nil)
			return
		}
		respond.Error(c, http.StatusForbidden, "forbidden", "invalid download link", nil)
		return
	}
	body, err := h.Store.Open(c.Request.Context(), key)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}
