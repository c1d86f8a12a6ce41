package documents

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo stores documents in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	byRun map[string][]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byRun: make(map[string][]Document)}
}

func (r *MemoryRepo) ListByRun(ctx context.Context, runID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.byRun[runID]
	out := make([]Document, len(docs))
	copy(out, docs)
	return out, nil
}

func (r *MemoryRepo) ReplaceForRun(ctx context.Context, quoteID, runID string, docs []Document) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored := prepareReplacement(quoteID, runID, docs, time.Now().UTC())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRun[runID] = stored
	out := make([]Document, len(stored))
	copy(out, stored)
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.byRun[doc.RunID]
	for i := range docs {
		if docs[i].ID == doc.ID {
			doc.UpdatedAt = time.Now().UTC()
			docs[i] = doc
			return nil
		}
	}
	return ErrNotFound
}

func prepareReplacement(quoteID, runID string, docs []Document, now time.Time) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		d.ID = uuid.NewString()
		d.QuoteID = quoteID
		d.RunID = runID
		d.Position = i
		d.CreatedAt = now
		d.UpdatedAt = now
		out[i] = d
	}
	return out
}
