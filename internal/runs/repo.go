package runs

import (
	"context"
	"time"
)

// Repo defines persistence operations for analysis runs.
type Repo interface {
	// CreateNextVersion stores run with the quote's next version number.
	// Concurrent callers for the same quote never receive the same version.
	CreateNextVersion(ctx context.Context, run Run) (Run, error)
	GetByID(ctx context.Context, runID string) (Run, error)
	// UpdateStatus overwrites the status unless the run is discarded, in
	// which case ErrRunDiscarded is returned.
	UpdateStatus(ctx context.Context, runID string, status Status) error
	// Activate marks runID active and deactivates every sibling in one step.
	Activate(ctx context.Context, quoteID, runID string) error
	// Discard marks an inactive run discarded. An active run yields ErrRunActive.
	Discard(ctx context.Context, runID, reason string) (Run, error)
	MarkDispatched(ctx context.Context, runID string, at time.Time) error
	MarkDispatchFailed(ctx context.Context, runID, message string) error
	// ListByQuote returns runs newest version first.
	ListByQuote(ctx context.Context, quoteID string, limit int) ([]Run, error)
}
