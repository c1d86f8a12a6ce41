package dispatch

import (
	"context"

	"translation-backend/internal/shared/resilience"
)

// Sender delivers an analysis request to the worker.
type Sender interface {
	Send(ctx context.Context, p Payload) error
}

// Retrying retries transient delivery failures with backoff.
type Retrying struct {
	Sender Sender
	Config resilience.RetryConfig
}

// Send delivers p, retrying transient failures according to Config.
func (r Retrying) Send(ctx context.Context, p Payload) error {
	cfg := r.Config
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("dispatch.send", map[string]any{
			"run_id":   p.RunID,
			"quote_id": p.QuoteID,
		})
	}
	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return r.Sender.Send(ctx, p)
	})
}
