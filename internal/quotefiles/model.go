package quotefiles

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("file not found")
	ErrInvalidInput = errors.New("invalid input")
)

// File is a customer document attached to a quote.
type File struct {
	ID         string    `json:"id"`
	QuoteID    string    `json:"quote_id"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	StorageKey string    `json:"-"`
	PageCount  *int      `json:"page_count,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
