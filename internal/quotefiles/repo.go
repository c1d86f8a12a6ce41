package quotefiles

import "context"

// Repo defines persistence operations for quote files.
type Repo interface {
	Create(ctx context.Context, file File) error
	ListByQuote(ctx context.Context, quoteID string) ([]File, error)
}
