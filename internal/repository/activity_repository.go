package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lnhs-portal/docrequest-api/internal/models"
)

// ActivityRepository provides database access for the activity log.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new instance.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts an activity log entry.
func (r *ActivityRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (id, user_id, action, description, ip_address, created_at) VALUES (:id, :user_id, :action, :description, :ip_address, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// List returns activity entries joined with actor names, newest first.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLogDetail, int, error) {
	baseQuery := ` FROM activity_logs al LEFT JOIN users u ON u.id = al.user_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("al.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("al.created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("al.created_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(al.action) LIKE $%d OR LOWER(al.description) LIKE $%d)", idx, idx))
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
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT al.id, al.user_id, al.action, al.description, al.ip_address, al.created_at,
	u.first_name || ' ' || u.last_name AS actor_name,
	u.username AS actor_username%s ORDER BY al.created_at DESC LIMIT %d OFFSET %d`, baseQuery, pageSize, offset)

	var entries []models.ActivityLogDetail
	if err := r.db.SelectContext(ctx, &entries, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list activity logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*)%s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}

	return entries, total, nil
}
