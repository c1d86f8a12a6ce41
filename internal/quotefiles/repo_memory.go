package quotefiles

import (
	"context"
	"sync"
)

// MemoryRepo stores quote files in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byQuote map[string][]File
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byQuote: make(map[string][]File)}
}

func (r *MemoryRepo) Create(ctx context.Context, file File) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byQuote[file.QuoteID] = append(r.byQuote[file.QuoteID], file)
	return nil
}

// ListByQuote returns files in upload order.
func (r *MemoryRepo) ListByQuote(ctx context.Context, quoteID string) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	files := r.byQuote[quoteID]
	out := make([]File, len(files))
	copy(out, files)
	return out, nil
}
