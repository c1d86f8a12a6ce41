package documents

import "context"

// Repo defines persistence operations for analysis documents.
type Repo interface {
	// ListByRun returns the run's documents in position order.
	ListByRun(ctx context.Context, runID string) ([]Document, error)
	// ReplaceForRun swaps the run's documents for docs, assigning ids and
	// positions in slice order.
	ReplaceForRun(ctx context.Context, quoteID, runID string, docs []Document) ([]Document, error)
	Update(ctx context.Context, doc Document) error
}
