// Package callbacks applies worker results posted to the analysis webhook.
package callbacks

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"translation-backend/internal/documents"
	"translation-backend/internal/quotes"
	"translation-backend/internal/runs"
	"translation-backend/internal/shared/telemetry"
)

var ErrQuoteRequired = errors.New("quote_id is required")

// Callback is a decoded worker notification. Documents is nil when the
// worker did not send a document list.
type Callback struct {
	QuoteID   string
	RunID     string
	Status    string
	Documents []documents.Document
}

// Outcome reports what a callback changed.
type Outcome struct {
	QuoteStatus       string
	RunStatus         runs.Status
	RunUpdated        bool
	RunReopened       bool
	DocumentsReplaced int
}

// Ingestor writes callback results to the quote and, when identified, the run.
type Ingestor struct {
	Quotes    quotes.Repo
	Runs      runs.Repo
	Documents documents.Repo
}

// Apply records the callback. Only the quote status update can fail the
// callback; run and document updates are logged and skipped on error.
func (i *Ingestor) Apply(ctx context.Context, cb Callback) (Outcome, error) {
	quoteID := strings.TrimSpace(cb.QuoteID)
	if quoteID == "" {
		return Outcome{}, ErrQuoteRequired
	}
	normalized := runs.NormalizeCallbackStatus(cb.Status)
	out := Outcome{QuoteStatus: normalized}

	if err := i.Quotes.UpdateLegacyStatus(ctx, quoteID, normalized); err != nil {
		return Outcome{}, eris.Wrapf(err, "update quote %s status", quoteID)
	}

	runID := strings.TrimSpace(cb.RunID)
	if runID == "" || i.Runs == nil {
		return out, nil
	}
	fields := map[string]any{
		"quote_id":   quoteID,
		"run_id":     runID,
		"raw_status": cb.Status,
		"status":     normalized,
	}

	run, err := i.Runs.GetByID(ctx, runID)
	if err != nil {
		fields["error"] = err
		telemetry.Warn("callback.run_lookup_failed", fields)
		return out, nil
	}
	if run.QuoteID != quoteID {
		fields["run_quote_id"] = run.QuoteID
		telemetry.Warn("callback.run_quote_mismatch", fields)
		return out, nil
	}
	if run.Discarded {
		telemetry.Info("callback.run_discarded", fields)
		return out, nil
	}

	if status, ok := runs.RunStatusFromCallback(normalized); ok {
		switch err := i.Runs.UpdateStatus(ctx, runID, status); {
		case err == nil:
			out.RunStatus = status
			out.RunUpdated = true
			out.RunReopened = run.Status.IsTerminal() && !status.IsTerminal()
			logFields := map[string]any{
				"quote_id":          quoteID,
				"run_id":            runID,
				"status_transition": string(run.Status) + "->" + string(status),
			}
			if out.RunReopened {
				telemetry.Warn("callback.run_reopened", logFields)
			} else {
				telemetry.Info("callback.run_updated", logFields)
			}
		case errors.Is(err, runs.ErrRunDiscarded):
			telemetry.Info("callback.run_discarded", fields)
			return out, nil
		default:
			fields["error"] = err
			telemetry.Error("callback.run_update_failed", fields)
		}
	} else {
		telemetry.Warn("callback.status_unmapped", fields)
	}

	if cb.Documents != nil && i.Documents != nil {
		stored, err := i.Documents.ReplaceForRun(ctx, quoteID, runID, cb.Documents)
		if err != nil {
			telemetry.Error("callback.documents_failed", map[string]any{
				"quote_id": quoteID,
				"run_id":   runID,
				"error":    err,
			})
			return out, nil
		}
		out.DocumentsReplaced = len(stored)
	}
	return out, nil
}
