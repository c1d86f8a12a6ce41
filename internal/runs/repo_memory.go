package runs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores runs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Run
	byQuote map[string][]string
	now     func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Run),
		byQuote: make(map[string][]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) CreateNextVersion(ctx context.Context, run Run) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	maxVersion := 0
	for _, id := range r.byQuote[run.QuoteID] {
		if v := r.byID[id].Version; v > maxVersion {
			maxVersion = v
		}
	}
	run.Version = maxVersion + 1
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now()
	}
	run.UpdatedAt = run.CreatedAt
	r.byID[run.ID] = run
	r.byQuote[run.QuoteID] = append(r.byQuote[run.QuoteID], run.ID)
	return run, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, runID string) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.byID[runID]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, runID string, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.byID[runID]
	if !ok {
		return ErrNotFound
	}
	if run.Discarded {
		return ErrRunDiscarded
	}
	run.Status = status
	run.UpdatedAt = r.now()
	r.byID[runID] = run
	return nil
}

func (r *MemoryRepo) Activate(ctx context.Context, quoteID, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.byID[runID]
	if !ok || target.QuoteID != quoteID {
		return ErrNotFound
	}
	if target.Discarded {
		return ErrRunDiscarded
	}
	now := r.now()
	for _, id := range r.byQuote[quoteID] {
		run := r.byID[id]
		active := id == runID
		if run.IsActive == active {
			continue
		}
		run.IsActive = active
		run.UpdatedAt = now
		r.byID[id] = run
	}
	return nil
}

func (r *MemoryRepo) Discard(ctx context.Context, runID, reason string) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.byID[runID]
	if !ok {
		return Run{}, ErrNotFound
	}
	if run.Discarded {
		return run, nil
	}
	if run.IsActive {
		return Run{}, ErrRunActive
	}
	run.Discarded = true
	run.Status = StatusDiscarded
	if reason != "" {
		run.DiscardReason = &reason
	}
	run.UpdatedAt = r.now()
	r.byID[runID] = run
	return run, nil
}

func (r *MemoryRepo) MarkDispatched(ctx context.Context, runID string, at time.Time) error {
	return r.mutate(ctx, runID, func(run *Run) {
		at := at.UTC()
		run.DispatchedAt = &at
		run.DispatchError = nil
	})
}

func (r *MemoryRepo) MarkDispatchFailed(ctx context.Context, runID, message string) error {
	return r.mutate(ctx, runID, func(run *Run) {
		run.DispatchError = &message
	})
}

func (r *MemoryRepo) ListByQuote(ctx context.Context, quoteID string, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Run, 0, len(r.byQuote[quoteID]))
	for _, id := range r.byQuote[quoteID] {
		out = append(out, r.byID[id])
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) mutate(ctx context.Context, runID string, fn func(*Run)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.byID[runID]
	if !ok {
		return ErrNotFound
	}
	fn(&run)
	run.UpdatedAt = r.now()
	r.byID[runID] = run
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
