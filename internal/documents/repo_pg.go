package documents

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, quote_id, run_id, position, filename, document_type, source_language, target_language,
       page_count, billable_pages, confidence_score, complexity_multiplier, certification_type,
       certification_amount, unit_rate_override, created_at, updated_at`

func (r *PGRepo) ListByRun(ctx context.Context, runID string) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
FROM analysis_documents
WHERE run_id = $1
ORDER BY position ASC`
	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "list documents for run %s", runID)
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, eris.Wrap(rows.Err(), "iterate documents")
}

func (r *PGRepo) ReplaceForRun(ctx context.Context, quoteID, runID string, docs []Document) ([]Document, error) {
	stored := prepareReplacement(quoteID, runID, docs, time.Now().UTC())

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "begin replace documents")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_documents WHERE run_id = $1`, runID); err != nil {
		return nil, eris.Wrap(err, "delete previous documents")
	}

	const insert = `
INSERT INTO analysis_documents (
	id, quote_id, run_id, position, filename, document_type, source_language, target_language,
	page_count, billable_pages, confidence_score, complexity_multiplier, certification_type,
	certification_amount, unit_rate_override, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	for _, d := range stored {
		if _, err := tx.ExecContext(ctx, insert,
			d.ID, d.QuoteID, d.RunID, d.Position, d.Filename, d.DocumentType, d.SourceLanguage, d.TargetLanguage,
			nullFloat(d.PageCount), nullFloat(d.BillablePages), nullFloat(d.ConfidenceScore),
			nullFloat(d.ComplexityMultiplier), nullStr(d.CertificationType), nullFloat(d.CertificationAmount),
			nullFloat(d.UnitRateOverride), d.CreatedAt, d.UpdatedAt,
		); err != nil {
			return nil, eris.Wrapf(err, "insert document position %d", d.Position)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "commit replace documents")
	}
	return stored, nil
}

func (r *PGRepo) Update(ctx context.Context, doc Document) error {
	const query = `
UPDATE analysis_documents
SET document_type = $1, billable_pages = $2, unit_rate_override = $3,
    certification_type = $4, certification_amount = $5, updated_at = now()
WHERE id = $6 AND run_id = $7`
	res, err := r.DB.ExecContext(ctx, query,
		doc.DocumentType,
		nullFloat(doc.BillablePages),
		nullFloat(doc.UnitRateOverride),
		nullStr(doc.CertificationType),
		nullFloat(doc.CertificationAmount),
		doc.ID,
		doc.RunID,
	)
	if err != nil {
		return eris.Wrapf(err, "update document %s", doc.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "update document rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var d Document
	var pageCount, billable, confidence, complexity, certAmount, rate sql.NullFloat64
	var certType sql.NullString
	if err := row.Scan(
		&d.ID, &d.QuoteID, &d.RunID, &d.Position, &d.Filename, &d.DocumentType, &d.SourceLanguage, &d.TargetLanguage,
		&pageCount, &billable, &confidence, &complexity, &certType, &certAmount, &rate,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return Document{}, eris.Wrap(err, "scan document")
	}
	d.PageCount = floatPtr(pageCount)
	d.BillablePages = floatPtr(billable)
	d.ConfidenceScore = floatPtr(confidence)
	d.ComplexityMultiplier = floatPtr(complexity)
	d.CertificationAmount = floatPtr(certAmount)
	d.UnitRateOverride = floatPtr(rate)
	if certType.Valid {
		d.CertificationType = &certType.String
	}
	return d, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullStr(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
