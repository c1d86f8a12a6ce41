package runs

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"translation-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const runColumns = `id, quote_id, version, run_type, status, is_active, discarded, discard_reason,
       dispatched_at, dispatch_error, created_at, updated_at`

// quoteLock serializes version assignment and activation per quote.
const quoteLock = `SELECT pg_advisory_xact_lock(hashtext('analysis_runs:' || $1))`

const maxVersionAttempts = 3

func (r *PGRepo) CreateNextVersion(ctx context.Context, run Run) (Run, error) {
	var lastErr error
	for attempt := 0; attempt < maxVersionAttempts; attempt++ {
		created, err := r.insertNextVersion(ctx, run)
		if err == nil {
			return created, nil
		}
		if !db.IsUniqueViolation(err) {
			return Run{}, err
		}
		lastErr = err
	}
	return Run{}, eris.Wrapf(lastErr, "assign version for quote %s", run.QuoteID)
}

func (r *PGRepo) insertNextVersion(ctx context.Context, run Run) (Run, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, eris.Wrap(err, "begin create run")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, quoteLock, run.QuoteID); err != nil {
		return Run{}, eris.Wrap(err, "lock quote runs")
	}

	const query = `
INSERT INTO analysis_runs (id, quote_id, version, run_type, status, is_active, discarded, created_at, updated_at)
SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4, false, false, $5, $5
FROM analysis_runs
WHERE quote_id = $2
RETURNING ` + runColumns
	created, err := scanRun(tx.QueryRowContext(ctx, query, run.ID, run.QuoteID, run.RunType, run.Status, run.CreatedAt))
	if err != nil {
		return Run{}, err
	}
	if err := tx.Commit(); err != nil {
		return Run{}, eris.Wrap(err, "commit create run")
	}
	return created, nil
}

func (r *PGRepo) GetByID(ctx context.Context, runID string) (Run, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs WHERE id = $1`
	run, err := scanRun(r.DB.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

func (r *PGRepo) UpdateStatus(ctx context.Context, runID string, status Status) error {
	const query = `UPDATE analysis_runs SET status = $2, updated_at = now() WHERE id = $1 AND NOT discarded`
	res, err := r.DB.ExecContext(ctx, query, runID, status)
	if err != nil {
		return eris.Wrapf(err, "update run %s status", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "update run status rows affected")
	}
	if n == 0 {
		return r.missingOrDiscarded(ctx, r.DB, runID)
	}
	return nil
}

func (r *PGRepo) Activate(ctx context.Context, quoteID, runID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "begin activate run")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, quoteLock, quoteID); err != nil {
		return eris.Wrap(err, "lock quote runs")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE analysis_runs SET is_active = false, updated_at = now() WHERE quote_id = $1 AND is_active AND id <> $2`,
		quoteID, runID,
	); err != nil {
		return eris.Wrap(err, "deactivate sibling runs")
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE analysis_runs SET is_active = true, updated_at = now() WHERE id = $1 AND quote_id = $2 AND NOT discarded`,
		runID, quoteID,
	)
	if err != nil {
		return eris.Wrapf(err, "activate run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "activate run rows affected")
	}
	if n == 0 {
		return r.missingOrDiscarded(ctx, tx, runID)
	}
	return eris.Wrap(tx.Commit(), "commit activate run")
}

func (r *PGRepo) Discard(ctx context.Context, runID, reason string) (Run, error) {
	query := `
UPDATE analysis_runs
SET discarded = true, status = 'discarded', discard_reason = COALESCE(NULLIF($2, ''), discard_reason), updated_at = now()
WHERE id = $1 AND NOT is_active AND NOT discarded
RETURNING ` + runColumns
	run, err := scanRun(r.DB.QueryRowContext(ctx, query, runID, reason))
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}

	current, err := r.GetByID(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	if current.Discarded {
		return current, nil
	}
	return Run{}, ErrRunActive
}

func (r *PGRepo) MarkDispatched(ctx context.Context, runID string, at time.Time) error {
	const query = `UPDATE analysis_runs SET dispatched_at = $2, dispatch_error = NULL, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, runID, at.UTC())
}

func (r *PGRepo) MarkDispatchFailed(ctx context.Context, runID, message string) error {
	const query = `UPDATE analysis_runs SET dispatch_error = $2, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, runID, message)
}

func (r *PGRepo) ListByQuote(ctx context.Context, quoteID string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + `
FROM analysis_runs
WHERE quote_id = $1
ORDER BY version DESC
LIMIT $2`
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	rows, err := r.DB.QueryContext(ctx, query, quoteID, lim)
	if err != nil {
		return nil, eris.Wrapf(err, "list runs for quote %s", quoteID)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "iterate runs")
}

func (r *PGRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrap(err, "update run")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "update run rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PGRepo) missingOrDiscarded(ctx context.Context, q queryRower, runID string) error {
	var discarded bool
	err := q.QueryRowContext(ctx, `SELECT discarded FROM analysis_runs WHERE id = $1`, runID).Scan(&discarded)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return eris.Wrapf(err, "lookup run %s", runID)
	case discarded:
		return ErrRunDiscarded
	default:
		return ErrNotFound
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var status string
	var reason, dispatchErr sql.NullString
	var dispatchedAt sql.NullTime
	err := row.Scan(
		&run.ID, &run.QuoteID, &run.Version, &run.RunType, &status, &run.IsActive, &run.Discarded,
		&reason, &dispatchedAt, &dispatchErr, &run.CreatedAt, &run.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, eris.Wrap(err, "scan run")
	}
	run.Status = Status(status)
	if reason.Valid {
		run.DiscardReason = &reason.String
	}
	if dispatchErr.Valid {
		run.DispatchError = &dispatchErr.String
	}
	if dispatchedAt.Valid {
		t := dispatchedAt.Time.UTC()
		run.DispatchedAt = &t
	}
	return run, nil
}

var _ Repo = (*PGRepo)(nil)
