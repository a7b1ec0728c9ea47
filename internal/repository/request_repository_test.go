package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/lnhs-portal/docrequest-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRequestRepositoryCreateWithHistory(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_status_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_files")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	req := &models.DocumentRequest{
		UserID:         "user-1",
		DocumentTypeID: "doc-1",
		Purpose:        "Scholarship application",
		Quantity:       2,
		TotalAmount:    100,
		Status:         models.StatusPending,
		PaymentStatus:  models.PaymentUnpaid,
	}
	history := &models.StatusHistory{NewStatus: models.StatusPending}
	files := []models.RequestFile{{
		FileName:    "id.jpg",
		StoredPath:  "requests/id.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   2048,
		UploadType:  models.UploadTypeID,
	}}

	require.NoError(t, repo.CreateWithHistory(context.Background(), req, history, files))
	require.NotEmpty(t, req.ID)
	require.Equal(t, req.ID, history.RequestID)
	require.Equal(t, req.ID, files[0].RequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCreateWithHistoryRollsBack(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_status_history")).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	req := &models.DocumentRequest{
		UserID:         "user-1",
		DocumentTypeID: "doc-1",
		Purpose:        "Board exam",
		Quantity:       1,
		TotalAmount:    50,
		Status:         models.StatusPending,
		PaymentStatus:  models.PaymentUnpaid,
	}
	history := &models.StatusHistory{NewStatus: models.StatusPending}

	err := repo.CreateWithHistory(context.Background(), req, history, nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT dr.id, dr.user_id")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateStatusWithHistory(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_requests SET status = $2")).
		WithArgs("req-1", models.StatusApproved, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO request_status_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	old := models.StatusPending
	actor := "admin-1"
	notes := "documents verified"
	history := &models.StatusHistory{
		OldStatus: &old,
		NewStatus: models.StatusApproved,
		ChangedBy: &actor,
		Notes:     &notes,
	}
	require.NoError(t, repo.UpdateStatusWithHistory(context.Background(), "req-1", models.StatusApproved, &notes, history))
	require.Equal(t, "req-1", history.RequestID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	now := time.Now()
	columns := []string{
		"id", "user_id", "document_type_id", "purpose", "preferred_release_date", "quantity",
		"total_amount", "status", "payment_status", "admin_notes", "created_at", "updated_at",
		"requester_name", "requester_email", "student_id", "document_name", "document_fee",
	}
	rows := sqlmock.NewRows(columns).
		AddRow("req-1", "user-1", "doc-1", "Enrollment", nil, 1, 50.0, "pending", "unpaid", nil, now, now,
			"Juan Dela Cruz", "juan@example.com", "2020-00123", "Form 137", 50.0)

	status := models.StatusPending
	mock.ExpectQuery(regexp.QuoteMeta("SELECT dr.id, dr.user_id")).
		WithArgs("user-1", status).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("user-1", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	requests, total, err := repo.List(context.Background(), models.RequestFilter{
		UserID: "user-1",
		Status: &status,
		Page:   1,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, requests, 1)
	require.Equal(t, "Form 137", requests[0].DocumentName)
	require.NoError(t, mock.ExpectationsWereMet())
}
