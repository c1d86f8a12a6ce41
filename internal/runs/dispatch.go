package runs

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"translation-backend/internal/dispatch"
	"translation-backend/internal/shared/metrics"
	"translation-backend/internal/shared/telemetry"
)

const (
	defaultSignedURLTTL = 15 * time.Minute
	signConcurrency     = 4
)

// Dispatch sends the run's analysis request to the worker. Delivery failures
// are recorded on the run and returned as *DispatchError; the status is left
// unchanged either way.
func (s *Service) Dispatch(ctx context.Context, runID string) (DispatchResult, error) {
	if s.Sender == nil {
		return DispatchResult{}, ErrDispatchNotConfigured
	}
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return DispatchResult{}, err
	}
	if run.Discarded {
		return DispatchResult{}, ErrRunDiscarded
	}

	payload, err := s.buildPayload(ctx, run)
	if err != nil {
		s.recordDispatchFailure(ctx, run, err)
		return DispatchResult{}, err
	}

	sender := dispatch.Retrying{Sender: s.Sender, Config: s.Options.Retry}
	started := time.Now()
	sendErr := sender.Send(ctx, payload)
	metrics.ObserveDispatchDurationMs(float64(time.Since(started).Milliseconds()))
	if sendErr != nil {
		s.recordDispatchFailure(ctx, run, sendErr)
		return DispatchResult{}, &DispatchError{RunID: run.ID, Err: sendErr}
	}

	at := s.clock()
	if err := s.Repo.MarkDispatched(ctx, run.ID, at); err != nil {
		return DispatchResult{}, err
	}
	metrics.IncRunDispatched()
	telemetry.Info("run.dispatched", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"quote_id":   run.QuoteID,
		"run_id":     run.ID,
		"version":    run.Version,
		"files":      len(payload.Files),
	})
	return DispatchResult{RunID: run.ID, Files: len(payload.Files), DispatchedAt: at}, nil
}

func (s *Service) buildPayload(ctx context.Context, run Run) (dispatch.Payload, error) {
	files, err := s.signFiles(ctx, run.QuoteID)
	if err != nil {
		return dispatch.Payload{}, err
	}
	p := dispatch.Payload{
		QuoteID:         run.QuoteID,
		RunID:           run.ID,
		RunType:         run.RunType,
		Version:         run.Version,
		Status:          string(run.Status),
		IsActive:        run.IsActive,
		Discarded:       run.Discarded,
		Files:           files,
		BatchMode:       len(files) > 1,
		ReplaceExisting: run.Version > 1,
	}
	if base := strings.TrimRight(strings.TrimSpace(s.Options.PublicBaseURL), "/"); base != "" {
		p.CallbackURL = base + CallbackPath
		p.CallbackSecret = s.Options.CallbackSecret
	}
	return p, nil
}

func (s *Service) signFiles(ctx context.Context, quoteID string) ([]dispatch.FileRef, error) {
	if s.Files == nil {
		return []dispatch.FileRef{}, nil
	}
	files, err := s.Files.ListByQuote(ctx, quoteID)
	if err != nil {
		return nil, eris.Wrapf(err, "list files for quote %s", quoteID)
	}
	if len(files) > 0 && s.Signer == nil {
		return nil, eris.New("no url signer configured")
	}
	ttl := s.Options.SignedURLTTL
	if ttl <= 0 {
		ttl = defaultSignedURLTTL
	}

	refs := make([]dispatch.FileRef, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)
	for i, f := range files {
		g.Go(func() error {
			signed, err := s.Signer.SignURL(gctx, f.StorageKey, ttl)
			if err != nil {
				return eris.Wrapf(err, "sign file %s", f.ID)
			}
			refs[i] = dispatch.FileRef{
				FileID:    f.ID,
				Filename:  f.FileName,
				FileURL:   signed.URL,
				ExpiresAt: signed.ExpiresAt,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *Service) recordDispatchFailure(ctx context.Context, run Run, cause error) {
	metrics.IncDispatchFailed()
	telemetry.Error("run.dispatch_failed", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"quote_id":   run.QuoteID,
		"run_id":     run.ID,
		"version":    run.Version,
		"error":      cause,
	})
	if err := s.Repo.MarkDispatchFailed(ctx, run.ID, cause.Error()); err != nil {
		telemetry.Warn("run.dispatch_error_not_recorded", map[string]any{
			"run_id": run.ID,
			"error":  err,
		})
	}
}
