package quotes

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("quote not found")

// Quote is the customer quote an analysis run belongs to. N8NStatus is the
// legacy quote-wide analysis status written by worker callbacks.
type Quote struct {
	ID                 string    `json:"id"`
	N8NStatus          string    `json:"n8n_status,omitempty"`
	Subtotal           float64   `json:"subtotal"`
	CertificationTotal float64   `json:"certification_total"`
	Total              float64   `json:"total"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Totals are the billing figures written when a run is used.
type Totals struct {
	Subtotal           float64
	CertificationTotal float64
	Total              float64
}
