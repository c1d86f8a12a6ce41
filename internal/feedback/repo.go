package feedback

import "context"

// Repo persists feedback records. There is no update or delete.
type Repo interface {
	Append(ctx context.Context, rec Record) error
	ListByQuote(ctx context.Context, quoteID string) ([]Record, error)
}
