package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lnhs-portal/docrequest-api/internal/models"
)

const requestColumns = `dr.id, dr.user_id, dr.document_type_id, dr.purpose, dr.preferred_release_date, dr.quantity, dr.total_amount, dr.status, dr.payment_status, dr.admin_notes, dr.created_at, dr.updated_at`

const requestDetailColumns = requestColumns + `,
	u.first_name || ' ' || u.last_name AS requester_name,
	u.email AS requester_email,
	u.student_id,
	dt.name AS document_name,
	dt.fee AS document_fee`

const requestDetailJoins = `
	FROM document_requests dr
	JOIN users u ON u.id = dr.user_id
	JOIN document_types dt ON dt.id = dr.document_type_id`

// RequestRepository provides database access for document requests, their
// status history, and uploaded requirement files.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a new instance.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// CreateWithHistory inserts the request, its initial history row, and any
// file records in one transaction. Everything rolls back together; the
// submission notification is dispatched by the service after commit.
func (r *RequestRepository) CreateWithHistory(ctx context.Context, req *models.DocumentRequest, history *models.StatusHistory, files []models.RequestFile) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submit transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertRequest = `INSERT INTO document_requests (id, user_id, document_type_id, purpose, preferred_release_date, quantity, total_amount, status, payment_status, admin_notes, created_at, updated_at) VALUES (:id, :user_id, :document_type_id, :purpose, :preferred_release_date, :quantity, :total_amount, :status, :payment_status, :admin_notes, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertRequest, req); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	history.RequestID = req.ID
	if err := insertHistoryTx(ctx, tx, history); err != nil {
		return err
	}

	for i := range files {
		files[i].RequestID = req.ID
		if files[i].ID == "" {
			files[i].ID = uuid.NewString()
		}
		if files[i].CreatedAt.IsZero() {
			files[i].CreatedAt = now
		}
		const insertFile = `INSERT INTO request_files (id, request_id, file_name, stored_path, content_type, size_bytes, upload_type, created_at) VALUES (:id, :request_id, :file_name, :stored_path, :content_type, :size_bytes, :upload_type, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insertFile, files[i]); err != nil {
			return fmt.Errorf("insert request file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submit transaction: %w", err)
	}
	return nil
}

// FindByID returns a request by identifier.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.DocumentRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM document_requests dr WHERE dr.id = $1 LIMIT 1`, requestColumns)
	var req models.DocumentRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	return &req, nil
}

// FindDetailByID returns a request joined with requester and catalog data.
func (r *RequestRepository) FindDetailByID(ctx context.Context, id string) (*models.RequestDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE dr.id = $1 LIMIT 1`, requestDetailColumns, requestDetailJoins)
	var detail models.RequestDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request detail: %w", err)
	}
	return &detail, nil
}

// List returns request details filtered by owner, status, date range, and
// free-text search, with total count for pagination.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	baseQuery := requestDetailJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("dr.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("dr.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("dr.created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("dr.created_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.first_name || ' ' || u.last_name) LIKE $%d OR LOWER(u.email) LIKE $%d OR LOWER(dt.name) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY dr.created_at DESC LIMIT %d OFFSET %d", requestDetailColumns, baseQuery, pageSize, offset)

	var requests []models.RequestDetail
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	return requests, total, nil
}

// UpdateStatusWithHistory persists the new status and notes and appends
// the transition history row in one transaction.
func (r *RequestRepository) UpdateStatusWithHistory(ctx context.Context, id string, status models.RequestStatus, notes *string, history *models.StatusHistory) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE document_requests SET status = $2, admin_notes = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, id, status, notes, time.Now().UTC()); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}

	history.RequestID = id
	if err := insertHistoryTx(ctx, tx, history); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status transaction: %w", err)
	}
	return nil
}

// UpdatePaymentStatus persists the payment settlement state.
func (r *RequestRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	const query = `UPDATE document_requests SET payment_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

// History returns the transition rows for a request in insertion order.
func (r *RequestRepository) History(ctx context.Context, requestID string) ([]models.StatusHistory, error) {
	const query = `SELECT id, request_id, old_status, new_status, changed_by, notes, created_at FROM request_status_history WHERE request_id = $1 ORDER BY created_at ASC`
	var rows []models.StatusHistory
	if err := r.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	return rows, nil
}

// Files returns the uploaded requirement records for a request.
func (r *RequestRepository) Files(ctx context.Context, requestID string) ([]models.RequestFile, error) {
	const query = `SELECT id, request_id, file_name, stored_path, content_type, size_bytes, upload_type, created_at FROM request_files WHERE request_id = $1 ORDER BY created_at ASC`
	var files []models.RequestFile
	if err := r.db.SelectContext(ctx, &files, query, requestID); err != nil {
		return nil, fmt.Errorf("list request files: %w", err)
	}
	return files, nil
}

// FindFileByID returns one uploaded file record.
func (r *RequestRepository) FindFileByID(ctx context.Context, id string) (*models.RequestFile, error) {
	const query = `SELECT id, request_id, file_name, stored_path, content_type, size_bytes, upload_type, created_at FROM request_files WHERE id = $1 LIMIT 1`
	var file models.RequestFile
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request file: %w", err)
	}
	return &file, nil
}

func insertHistoryTx(ctx context.Context, tx *sqlx.Tx, history *models.StatusHistory) error {
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO request_status_history (id, request_id, old_status, new_status, changed_by, notes, created_at) VALUES (:id, :request_id, :old_status, :new_status, :changed_by, :notes, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, history); err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}
