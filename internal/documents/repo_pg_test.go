package documents

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentCols = []string{
	"id", "quote_id", "run_id", "position", "filename", "document_type", "source_language", "target_language",
	"page_count", "billable_pages", "confidence_score", "complexity_multiplier", "certification_type",
	"certification_amount", "unit_rate_override", "created_at", "updated_at",
}

func TestPGRepoListByRunScansNullables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	mock.ExpectQuery("FROM analysis_documents").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(documentCols).
			AddRow("d-1", "q-1", "run-1", 0, "a.pdf", "passport", "es", "en", 2.0, 2.0, 0.93, 1.0, "notarized", 25.0, nil, now, now).
			AddRow("d-2", "q-1", "run-1", 1, "b.pdf", "", "", "", nil, nil, nil, nil, nil, nil, nil, now, now))

	docs, err := repo.ListByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.NotNil(t, docs[0].CertificationType)
	assert.Equal(t, "notarized", *docs[0].CertificationType)
	assert.Nil(t, docs[0].UnitRateOverride)
	assert.Nil(t, docs[1].PageCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoReplaceForRunIsTransactional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM analysis_documents").WithArgs("run-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO analysis_documents").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO analysis_documents").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	stored, err := repo.ReplaceForRun(context.Background(), "q-1", "run-1", []Document{{Filename: "a.pdf"}, {Filename: "b.pdf"}})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoUpdateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := &PGRepo{DB: db}

	mock.ExpectExec("UPDATE analysis_documents").WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Update(context.Background(), Document{ID: "d-x", RunID: "run-1"})
	assert.ErrorIs(t, err, ErrNotFound)
}
