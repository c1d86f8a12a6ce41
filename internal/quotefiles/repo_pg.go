package quotefiles

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, file File) error {
	const query = `
INSERT INTO quote_files (id, quote_id, file_name, mime_type, size_bytes, storage_key, page_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var pages sql.NullInt64
	if file.PageCount != nil {
		pages = sql.NullInt64{Int64: int64(*file.PageCount), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, query,
		file.ID,
		file.QuoteID,
		file.FileName,
		file.MimeType,
		file.SizeBytes,
		file.StorageKey,
		pages,
		file.CreatedAt,
	)
	return eris.Wrap(err, "insert quote file")
}

func (r *PGRepo) ListByQuote(ctx context.Context, quoteID string) ([]File, error) {
	const query = `
SELECT id, quote_id, file_name, mime_type, size_bytes, storage_key, page_count, created_at
FROM quote_files
WHERE quote_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, quoteID)
	if err != nil {
		return nil, eris.Wrapf(err, "list files for quote %s", quoteID)
	}
	defer rows.Close()

	out := []File{}
	for rows.Next() {
		var f File
		var pages sql.NullInt64
		if err := rows.Scan(&f.ID, &f.QuoteID, &f.FileName, &f.MimeType, &f.SizeBytes, &f.StorageKey, &pages, &f.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "scan quote file")
		}
		if pages.Valid {
			n := int(pages.Int64)
			f.PageCount = &n
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "iterate quote files")
}
