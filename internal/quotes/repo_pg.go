package quotes

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, quote Quote) error {
	const query = `
INSERT INTO quotes (id, n8n_status, subtotal, certification_total, total, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		quote.ID,
		nullString(quote.N8NStatus),
		quote.Subtotal,
		quote.CertificationTotal,
		quote.Total,
		quote.CreatedAt,
		quote.UpdatedAt,
	)
	return eris.Wrap(err, "insert quote")
}

func (r *PGRepo) GetByID(ctx context.Context, quoteID string) (Quote, error) {
	const query = `
SELECT id, n8n_status, subtotal, certification_total, total, created_at, updated_at
FROM quotes
WHERE id = $1`
	var q Quote
	var status sql.NullString
	err := r.DB.QueryRowContext(ctx, query, quoteID).Scan(
		&q.ID,
		&status,
		&q.Subtotal,
		&q.CertificationTotal,
		&q.Total,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, eris.Wrapf(err, "get quote %s", quoteID)
	}
	q.N8NStatus = status.String
	return q, nil
}

func (r *PGRepo) UpdateLegacyStatus(ctx context.Context, quoteID, status string) error {
	const query = `UPDATE quotes SET n8n_status = $1, updated_at = now() WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, status, quoteID)
	return affectedOne(res, err, "update quote status")
}

func (r *PGRepo) UpdateTotals(ctx context.Context, quoteID string, totals Totals) error {
	const query = `
UPDATE quotes
SET subtotal = $1, certification_total = $2, total = $3, updated_at = now()
WHERE id = $4`
	res, err := r.DB.ExecContext(ctx, query, totals.Subtotal, totals.CertificationTotal, totals.Total, quoteID)
	return affectedOne(res, err, "update quote totals")
}

func affectedOne(res sql.Result, err error, op string) error {
	if err != nil {
		return eris.Wrap(err, op)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, op)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
