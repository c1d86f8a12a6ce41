package feedback

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Append(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO analysis_feedback (
	id, quote_id, run_id, admin_id, feedback_type, feedback_text, worker_output, corrected_values, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.QuoteID,
		sql.NullString{String: rec.RunID, Valid: rec.RunID != ""},
		rec.AdminID,
		rec.FeedbackType,
		rec.FeedbackText,
		jsonb(rec.WorkerOutput),
		jsonb(rec.CorrectedValues),
		rec.CreatedAt,
	)
	return eris.Wrap(err, "insert feedback")
}

func (r *PGRepo) ListByQuote(ctx context.Context, quoteID string) ([]Record, error) {
	const query = `
SELECT id, quote_id, run_id, admin_id, feedback_type, feedback_text, worker_output, corrected_values, created_at
FROM analysis_feedback
WHERE quote_id = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, quoteID)
	if err != nil {
		return nil, eris.Wrapf(err, "list feedback for quote %s", quoteID)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		var runID, workerOutput, corrected sql.NullString
		if err := rows.Scan(&rec.ID, &rec.QuoteID, &runID, &rec.AdminID, &rec.FeedbackType, &rec.FeedbackText,
			&workerOutput, &corrected, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "scan feedback")
		}
		rec.RunID = runID.String
		if workerOutput.Valid {
			rec.WorkerOutput = []byte(workerOutput.String)
		}
		if corrected.Valid {
			rec.CorrectedValues = []byte(corrected.String)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "iterate feedback")
}

func jsonb(raw []byte) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
