package quotes

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores quotes in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Quote
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Quote)}
}

func (r *MemoryRepo) Create(ctx context.Context, quote Quote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[quote.ID] = quote
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, quoteID string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.byID[quoteID]
	if !ok {
		return Quote{}, ErrNotFound
	}
	return q, nil
}

func (r *MemoryRepo) UpdateLegacyStatus(ctx context.Context, quoteID, status string) error {
	return r.update(ctx, quoteID, func(q *Quote) { q.N8NStatus = status })
}

func (r *MemoryRepo) UpdateTotals(ctx context.Context, quoteID string, totals Totals) error {
	return r.update(ctx, quoteID, func(q *Quote) {
		q.Subtotal = totals.Subtotal
		q.CertificationTotal = totals.CertificationTotal
		q.Total = totals.Total
	})
}

func (r *MemoryRepo) update(ctx context.Context, quoteID string, fn func(*Quote)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.byID[quoteID]
	if !ok {
		return ErrNotFound
	}
	fn(&q)
	q.UpdatedAt = time.Now().UTC()
	r.byID[quoteID] = q
	return nil
}
