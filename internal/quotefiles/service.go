package quotefiles

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"translation-backend/internal/extract"
	"translation-backend/internal/quotes"
	"translation-backend/internal/shared/storage/object"
	"translation-backend/internal/shared/telemetry"
)

// Service stores customer uploads for a quote.
type Service struct {
	Store  object.ObjectStore
	Repo   Repo
	Quotes quotes.Repo
}

// Upload saves the file to object storage and records it against the quote.
// The page count is best effort; unreadable files are stored without one.
func (s *Service) Upload(ctx context.Context, quoteID, fileName string, r io.Reader) (File, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" || strings.TrimSpace(fileName) == "" {
		return File{}, ErrInvalidInput
	}
	if s.Quotes != nil {
		if _, err := s.Quotes.GetByID(ctx, quoteID); err != nil {
			return File{}, err
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, err
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, quoteID, fileName, bytes.NewReader(data))
	if err != nil {
		return File{}, err
	}

	file := File{
		ID:         uuid.NewString(),
		QuoteID:    quoteID,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: storageKey,
		CreatedAt:  time.Now().UTC(),
	}
	if pages, err := extract.PageCount(ctx, data, mimeType, fileName); err == nil {
		file.PageCount = &pages
	} else {
		telemetry.Info("quotefiles.page_count_skipped", map[string]any{
			"quote_id":  quoteID,
			"file_name": fileName,
			"mime_type": mimeType,
			"reason":    err.Error(),
		})
	}

	if err := s.Repo.Create(ctx, file); err != nil {
		return File{}, err
	}
	return file, nil
}

// List returns the files attached to a quote.
func (s *Service) List(ctx context.Context, quoteID string) ([]File, error) {
	return s.Repo.ListByQuote(ctx, quoteID)
}
