package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/lnhs-portal/docrequest-api/internal/models"
)

func newDocumentTypeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDocumentTypeRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newDocumentTypeRepoMock(t)
	defer cleanup()

	repo := NewDocumentTypeRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "processing_days", "fee", "is_active", "created_at", "updated_at"}).
		AddRow("doc-1", "Form 137", nil, 5, 50.0, true, now, now).
		AddRow("doc-2", "Diploma Copy", nil, 10, 200.0, true, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description")).
		WillReturnRows(rows)

	types, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	require.Equal(t, "Form 137", types[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentTypeRepositoryCountRequests(t *testing.T) {
	db, mock, cleanup := newDocumentTypeRepoMock(t)
	defer cleanup()

	repo := NewDocumentTypeRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM document_requests WHERE document_type_id = $1")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountRequests(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentTypeRepositoryCreateAndDelete(t *testing.T) {
	db, mock, cleanup := newDocumentTypeRepoMock(t)
	defer cleanup()

	repo := NewDocumentTypeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_types")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	dt := &models.DocumentType{
		Name:           "Good Moral Certificate",
		ProcessingDays: 3,
		Fee:            30,
		IsActive:       true,
	}
	require.NoError(t, repo.Create(context.Background(), dt))
	require.NotEmpty(t, dt.ID)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM document_types WHERE id = $1")).
		WithArgs(dt.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), dt.ID))
	require.NoError(t, mock.ExpectationsWereMet())
}
