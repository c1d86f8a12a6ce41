// Package poller watches an analysis run until it reaches a settled status.
package poller

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the delay between status fetches.
const DefaultInterval = 2 * time.Second

// Snapshot is one observation of a run.
type Snapshot struct {
	Status    string
	N8NStatus string
	UpdatedAt time.Time
	IsActive  bool
	Discarded bool
}

// FetchFunc reads the current status of a run.
type FetchFunc func(ctx context.Context, runID string) (Snapshot, error)

// State is what a watcher displays. Err is set when the last fetch failed;
// polling stops until Restart is called.
type State struct {
	Snapshot Snapshot
	Err      error
	Polling  bool
	Fetches  int
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithOnUpdate registers a callback invoked after every fetch.
func WithOnUpdate(fn func(State)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// Poller fetches a run's status on an interval while it is pending or
// processing. There is no attempt limit.
type Poller struct {
	runID    string
	fetch    FetchFunc
	interval time.Duration
	clock    Clock
	onUpdate func(State)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Poller for runID.
func New(runID string, fetch FetchFunc, opts ...Option) *Poller {
	p := &Poller{
		runID:    runID,
		fetch:    fetch,
		interval: DefaultInterval,
		clock:    realClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	closed := make(chan struct{})
	close(closed)
	p.done = closed
	return p
}

// Start fetches immediately and keeps polling in the background. Calling
// Start while polling is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Polling {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	ticker := p.clock.NewTicker(p.interval)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.state.Polling = true
	p.state.Err = nil
	go p.loop(ctx, ticker, done)
}

// Stop halts polling and returns once the loop has exited and its ticker
// is stopped.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-done
}

// Restart stops any active loop and starts a fresh one.
func (p *Poller) Restart(ctx context.Context) {
	p.Stop()
	p.Start(ctx)
}

// Done is closed when the current loop exits.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// State returns the latest observation.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	defer p.finish()

	if !p.poll(ctx) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !p.poll(ctx) {
				return
			}
		}
	}
}

// poll reports whether polling should continue.
func (p *Poller) poll(ctx context.Context) bool {
	snap, err := p.fetch(ctx, p.runID)
	if ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	p.state.Fetches++
	if err != nil {
		p.state.Err = err
	} else {
		p.state.Snapshot = snap
		p.state.Err = nil
	}
	state := p.state
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(state)
	}
	return err == nil && Pending(snap.Status)
}

func (p *Poller) finish() {
	p.mu.Lock()
	p.state.Polling = false
	p.mu.Unlock()
}

// Pending reports whether a client status still warrants polling.
func Pending(status string) bool {
	switch status {
	case "", "pending", "processing":
		return true
	}
	return false
}
