package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/lnhs-portal/docrequest-api/internal/models"
)

// ReportRepository runs the aggregate queries behind the admin dashboard
// and CSV exports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new instance.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Totals returns the headline counters for the reports page.
func (r *ReportRepository) Totals(ctx context.Context) (totalRequests, totalRequesters, pending, readyForPickup int, err error) {
	const query = `SELECT
		COUNT(*) AS total_requests,
		COUNT(DISTINCT user_id) AS total_requesters,
		COUNT(*) FILTER (WHERE status = 'pending') AS pending_requests,
		COUNT(*) FILTER (WHERE status = 'ready_for_pickup') AS ready_for_pickup
	FROM document_requests`
	row := struct {
		TotalRequests   int `db:"total_requests"`
		TotalRequesters int `db:"total_requesters"`
		Pending         int `db:"pending_requests"`
		ReadyForPickup  int `db:"ready_for_pickup"`
	}{}
	if err = r.db.GetContext(ctx, &row, query); err != nil {
		err = fmt.Errorf("report totals: %w", err)
		return
	}
	return row.TotalRequests, row.TotalRequesters, row.Pending, row.ReadyForPickup, nil
}

// MonthlyCounts returns request volume per month for the last N months.
func (r *ReportRepository) MonthlyCounts(ctx context.Context, months int) ([]models.MonthlyCount, error) {
	if months <= 0 {
		months = 6
	}
	const query = `SELECT TO_CHAR(DATE_TRUNC('month', created_at), 'YYYY-MM') AS month, COUNT(*) AS count
		FROM document_requests
		WHERE created_at >= DATE_TRUNC('month', NOW()) - ($1 || ' months')::interval
		GROUP BY 1 ORDER BY 1 DESC`
	var counts []models.MonthlyCount
	if err := r.db.SelectContext(ctx, &counts, query, months-1); err != nil {
		return nil, fmt.Errorf("monthly counts: %w", err)
	}
	return counts, nil
}

// CountsByStatus returns the per-status breakdown of all requests.
func (r *ReportRepository) CountsByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM document_requests GROUP BY status ORDER BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("counts by status: %w", err)
	}
	return counts, nil
}

// ExportRequests returns the joined request rows for a CSV export.
func (r *ReportRepository) ExportRequests(ctx context.Context, filter models.ExportFilter) ([]models.RequestDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE 1=1`, requestDetailColumns, requestDetailJoins)
	where, args := exportDateRange("dr.created_at", filter, 0)
	query += where + " ORDER BY dr.created_at DESC"

	var rows []models.RequestDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("export requests: %w", err)
	}
	return rows, nil
}

// ExportUsers returns all user rows for a CSV export.
func (r *ReportRepository) ExportUsers(ctx context.Context, filter models.ExportFilter) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE 1=1`, userColumns)
	where, args := exportDateRange("created_at", filter, 0)
	query += where + " ORDER BY created_at DESC"

	var rows []models.User
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("export users: %w", err)
	}
	return rows, nil
}

// ExportActivity returns the activity rows joined with actor names for a
// CSV export.
func (r *ReportRepository) ExportActivity(ctx context.Context, filter models.ExportFilter) ([]models.ActivityLogDetail, error) {
	query := `SELECT al.id, al.user_id, al.action, al.description, al.ip_address, al.created_at,
	u.first_name || ' ' || u.last_name AS actor_name,
	u.username AS actor_username
	FROM activity_logs al LEFT JOIN users u ON u.id = al.user_id WHERE 1=1`
	where, args := exportDateRange("al.created_at", filter, 0)
	query += where + " ORDER BY al.created_at DESC"

	var rows []models.ActivityLogDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("export activity: %w", err)
	}
	return rows, nil
}

func exportDateRange(column string, filter models.ExportFilter, argOffset int) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", column, argOffset+len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", column, argOffset+len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(conditions, " AND "), args
}
