package quotes

import "context"

// Repo defines persistence operations for quotes.
type Repo interface {
	Create(ctx context.Context, quote Quote) error
	GetByID(ctx context.Context, quoteID string) (Quote, error)
	UpdateLegacyStatus(ctx context.Context, quoteID, status string) error
	UpdateTotals(ctx context.Context, quoteID string, totals Totals) error
}
