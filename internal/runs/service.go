package runs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"translation-backend/internal/billing"
	"translation-backend/internal/dispatch"
	"translation-backend/internal/documents"
	"translation-backend/internal/feedback"
	"translation-backend/internal/quotefiles"
	"translation-backend/internal/quotes"
	"translation-backend/internal/shared/metrics"
	"translation-backend/internal/shared/resilience"
	"translation-backend/internal/shared/storage/object"
	"translation-backend/internal/shared/telemetry"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// BillingAggregator applies a used run's documents to the quote's totals.
type BillingAggregator interface {
	ApplyRun(ctx context.Context, quoteID, runID string, docs []documents.Document) (billing.Result, error)
}

// DispatchOptions configures how analysis requests reach the worker.
type DispatchOptions struct {
	// PublicBaseURL is where the worker can reach this service. Callback
	// fields are left out of the payload when it is empty.
	PublicBaseURL  string
	CallbackSecret string
	SignedURLTTL   time.Duration
	Retry          resilience.RetryConfig
}

// CallbackPath is the route the worker posts results to.
const CallbackPath = "/api/v1/webhooks/analysis"

// Service owns the analysis run lifecycle.
type Service struct {
	Repo      Repo
	Quotes    quotes.Repo
	Documents documents.Repo
	Files     quotefiles.Repo
	Signer    object.Signer
	Sender    dispatch.Sender
	Feedback  *feedback.Service
	Billing   BillingAggregator
	Options   DispatchOptions

	now func() time.Time
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// CreateRun records the quote's next analysis run in the requested state.
func (s *Service) CreateRun(ctx context.Context, quoteID, runType string) (Run, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return Run{}, ErrInvalidInput
	}
	runType, ok := normalizeRunType(strings.ToLower(strings.TrimSpace(runType)))
	if !ok {
		return Run{}, ErrInvalidInput
	}
	if _, err := s.Quotes.GetByID(ctx, quoteID); err != nil {
		return Run{}, err
	}

	run, err := s.Repo.CreateNextVersion(ctx, Run{
		ID:        uuid.NewString(),
		QuoteID:   quoteID,
		RunType:   runType,
		Status:    StatusRequested,
		CreatedAt: s.clock(),
	})
	if err != nil {
		return Run{}, err
	}
	metrics.IncRunCreated()
	telemetry.Info("run.created", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"quote_id":   run.QuoteID,
		"run_id":     run.ID,
		"version":    run.Version,
		"run_type":   run.RunType,
	})
	return run, nil
}

// GetStatus returns the polling view of a run.
func (s *Service) GetStatus(ctx context.Context, runID string) (StatusView, error) {
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return StatusView{}, err
	}
	view := StatusView{
		Status:    ClientStatus(run.Status),
		UpdatedAt: run.UpdatedAt,
		IsActive:  run.IsActive,
		Discarded: run.Discarded,
	}
	quote, err := s.Quotes.GetByID(ctx, run.QuoteID)
	switch {
	case err == nil:
		view.N8NStatus = quote.N8NStatus
	case !errors.Is(err, quotes.ErrNotFound):
		return StatusView{}, err
	}
	return view, nil
}

// ResultsView is a run's reconciled documents.
type ResultsView struct {
	QuoteID   string               `json:"quote_id"`
	RunID     string               `json:"run_id"`
	Status    string               `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Summary   documents.Summary    `json:"summary"`
	Documents []documents.Document `json:"documents"`
}

// Results reconciles the documents the worker reported for a run.
func (s *Service) Results(ctx context.Context, runID string) (ResultsView, error) {
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return ResultsView{}, err
	}
	rows, err := s.Documents.ListByRun(ctx, run.ID)
	if err != nil {
		return ResultsView{}, err
	}
	res := documents.Reconcile(rows)
	return ResultsView{
		QuoteID:   run.QuoteID,
		RunID:     run.ID,
		Status:    ClientStatus(run.Status),
		Timestamp: run.UpdatedAt,
		Summary:   res.Summary,
		Documents: res.Documents,
	}, nil
}

// History lists a quote's runs newest version first.
func (s *Service) History(ctx context.Context, quoteID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.Repo.ListByQuote(ctx, strings.TrimSpace(quoteID), limit)
}

// UseResult is returned after a run has been applied to its quote.
type UseResult struct {
	OK      bool   `json:"ok"`
	RunID   string `json:"run_id"`
	QuoteID string `json:"quote_id"`
	Version int    `json:"version"`
	billing.Result
}

// Use activates a finished run and applies its documents to the quote totals.
// Activation is kept when billing fails.
func (s *Service) Use(ctx context.Context, runID string, confirmed bool) (UseResult, error) {
	if !confirmed {
		return UseResult{}, ErrConfirmationRequired
	}
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return UseResult{}, err
	}
	if run.Discarded {
		return UseResult{}, ErrRunDiscarded
	}
	if !run.Status.Usable() {
		return UseResult{}, ErrRunNotReady
	}
	if err := s.Repo.Activate(ctx, run.QuoteID, run.ID); err != nil {
		return UseResult{}, err
	}
	telemetry.Info("run.used", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"quote_id":          run.QuoteID,
		"run_id":            run.ID,
		"version":           run.Version,
		"status_transition": "inactive->active",
	})
	metrics.IncRunUsed()

	out := UseResult{OK: true, RunID: run.ID, QuoteID: run.QuoteID, Version: run.Version}
	if s.Billing == nil {
		return out, nil
	}
	docs, err := s.Documents.ListByRun(ctx, run.ID)
	if err != nil {
		return UseResult{}, err
	}
	res, err := s.Billing.ApplyRun(ctx, run.QuoteID, run.ID, docs)
	if err != nil {
		telemetry.Error("run.billing_failed", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"quote_id":   run.QuoteID,
			"run_id":     run.ID,
			"error":      err,
		})
		return UseResult{}, err
	}
	out.Result = res
	return out, nil
}

// Discard retires a run. Discarding twice returns the stored run; the active
// run cannot be discarded.
func (s *Service) Discard(ctx context.Context, runID, reason, actorID string) (Run, error) {
	before, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	if before.Discarded {
		return before, nil
	}
	if before.IsActive {
		return Run{}, ErrRunActive
	}
	reason = strings.TrimSpace(reason)
	run, err := s.Repo.Discard(ctx, runID, reason)
	if err != nil {
		return Run{}, err
	}
	metrics.IncRunDiscarded()
	telemetry.Info("run.discarded", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"quote_id":          run.QuoteID,
		"run_id":            run.ID,
		"actor_id":          actorID,
		"status_transition": string(before.Status) + "->" + string(StatusDiscarded),
	})

	if actorID != "" && s.Feedback != nil {
		var snapshot []documents.Document
		if s.Documents != nil {
			snapshot, err = s.Documents.ListByRun(ctx, run.ID)
			if err != nil {
				telemetry.Warn("run.feedback_snapshot_failed", map[string]any{
					"request_id": requestIDFromContext(ctx),
					"run_id":     run.ID,
					"error":      err,
				})
			}
		}
		s.recordFeedback(ctx, feedback.Entry{
			QuoteID:  run.QuoteID,
			RunID:    run.ID,
			AdminID:  actorID,
			Type:     feedback.TypeDiscard,
			Text:     reason,
			Original: snapshot,
		})
	}
	return run, nil
}

// Edit patches the document at index in the run's reconciled order.
func (s *Service) Edit(ctx context.Context, runID string, index int, patch documents.Patch, feedbackText, actorID string) (documents.Document, error) {
	if err := patch.Validate(); err != nil {
		return documents.Document{}, err
	}
	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		return documents.Document{}, err
	}
	if run.Discarded {
		return documents.Document{}, ErrRunDiscarded
	}
	rows, err := s.Documents.ListByRun(ctx, run.ID)
	if err != nil {
		return documents.Document{}, err
	}
	ordered := documents.Reconcile(rows).Documents
	if index < 0 || index >= len(ordered) {
		return documents.Document{}, documents.ErrNotFound
	}

	original := ordered[index]
	updated := patch.Apply(original)
	updated.UpdatedAt = s.clock()
	if err := s.Documents.Update(ctx, updated); err != nil {
		return documents.Document{}, err
	}
	metrics.IncDocumentEdit()

	if actorID != "" && s.Feedback != nil {
		s.recordFeedback(ctx, feedback.Entry{
			QuoteID:   run.QuoteID,
			RunID:     run.ID,
			AdminID:   actorID,
			Type:      feedback.TypeEdit,
			Text:      feedbackText,
			Original:  original,
			Corrected: patch,
		})
	}
	return updated, nil
}

// recordFeedback runs after the change it describes has committed, so a
// failure is logged rather than reported to the caller.
func (s *Service) recordFeedback(ctx context.Context, e feedback.Entry) {
	if _, err := s.Feedback.Record(ctx, e); err != nil {
		telemetry.Error("run.feedback_failed", map[string]any{
			"request_id":    requestIDFromContext(ctx),
			"quote_id":      e.QuoteID,
			"run_id":        e.RunID,
			"feedback_type": e.Type,
			"error":         err,
		})
	}
}
