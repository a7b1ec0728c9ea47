package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	appErrors "github.com/lnhs-portal/docrequest-api/pkg/errors"
	"github.com/lnhs-portal/docrequest-api/pkg/export"
)

const summaryCacheKey = "reports:summary"

type reportRepository interface {
	Totals(ctx context.Context) (totalRequests, totalRequesters, pending, readyForPickup int, err error)
	MonthlyCounts(ctx context.Context, months int) ([]models.MonthlyCount, error)
	CountsByStatus(ctx context.Context) ([]models.StatusCount, error)
	ExportRequests(ctx context.Context, filter models.ExportFilter) ([]models.RequestDetail, error)
	ExportUsers(ctx context.Context, filter models.ExportFilter) ([]models.User, error)
	ExportActivity(ctx context.Context, filter models.ExportFilter) ([]models.ActivityLogDetail, error)
}

type reportDocumentTypes interface {
	ListWithStats(ctx context.Context) ([]models.DocumentTypeStat, error)
}

type reportActivity interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLogDetail, int, error)
}

// ReportService produces the admin dashboard summary and CSV exports.
type ReportService struct {
	repo     reportRepository
	docTypes reportDocumentTypes
	activity reportActivity
	cache    *redis.Client
	cacheTTL time.Duration
	csv      *export.CSVExporter
	logger   *zap.Logger
}

// NewReportService constructs a ReportService. cache may be nil; the
// summary is then computed on every call.
func NewReportService(repo reportRepository, docTypes reportDocumentTypes, activity reportActivity, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ReportService{
		repo:     repo,
		docTypes: docTypes,
		activity: activity,
		cache:    cache,
		cacheTTL: cacheTTL,
		csv:      export.NewCSVExporter(),
		logger:   logger,
	}
}

// Summary aggregates the counters behind the admin reports page. The
// result is cached briefly when redis is configured; staleness within
// the TTL is acceptable for a dashboard.
func (s *ReportService) Summary(ctx context.Context) (*models.ReportSummary, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, summaryCacheKey).Result()
		if err == nil {
			var summary models.ReportSummary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return &summary, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("report cache read failed", zap.Error(err))
		}
	}

	totalRequests, totalRequesters, pending, ready, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute totals")
	}
	monthly, err := s.repo.MonthlyCounts(ctx, 6)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute monthly counts")
	}
	byStatus, err := s.repo.CountsByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute status counts")
	}
	byType, err := s.docTypes.ListWithStats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute type stats")
	}
	recent, _, err := s.activity.List(ctx, models.ActivityFilter{Page: 1, PageSize: 10})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent activity")
	}

	summary := &models.ReportSummary{
		TotalRequests:   totalRequests,
		TotalRequesters: totalRequesters,
		PendingRequests: pending,
		ReadyForPickup:  ready,
		Monthly:         monthly,
		ByStatus:        byStatus,
		ByDocumentType:  byType,
		RecentActivity:  recent,
	}

	if s.cache != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, summaryCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("report cache write failed", zap.Error(err))
			}
		}
	}
	return summary, nil
}

// InvalidateSummary drops the cached dashboard after mutations that
// should show up immediately.
func (s *ReportService) InvalidateSummary(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryCacheKey).Err(); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}

// Export renders the requested dataset as CSV.
func (s *ReportService) Export(ctx context.Context, exportType models.ExportType, filter models.ExportFilter) ([]byte, error) {
	switch exportType {
	case models.ExportRequests:
		return s.exportRequests(ctx, filter)
	case models.ExportUsers:
		return s.exportUsers(ctx, filter)
	case models.ExportActivity:
		return s.exportActivity(ctx, filter)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown export type")
	}
}

func (s *ReportService) exportRequests(ctx context.Context, filter models.ExportFilter) ([]byte, error) {
	rows, err := s.repo.ExportRequests(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export requests")
	}

	data := export.Dataset{
		Headers: []string{"ID", "Student Name", "Email", "Student ID", "Document", "Purpose", "Status", "Fee", "Request Date", "Preferred Date"},
	}
	for _, row := range rows {
		studentID := ""
		if row.StudentID != nil {
			studentID = *row.StudentID
		}
		preferred := ""
		if row.PreferredReleaseDate != nil {
			preferred = row.PreferredReleaseDate.Format("2006-01-02")
		}
		data.Rows = append(data.Rows, map[string]string{
			"ID":             row.ID,
			"Student Name":   row.RequesterName,
			"Email":          row.RequesterEmail,
			"Student ID":     studentID,
			"Document":       row.DocumentName,
			"Purpose":        row.Purpose,
			"Status":         row.Status.Meta().Label,
			"Fee":            fmt.Sprintf("%.2f", row.TotalAmount),
			"Request Date":   row.CreatedAt.Format("2006-01-02"),
			"Preferred Date": preferred,
		})
	}
	return s.renderCSV(data)
}

func (s *ReportService) exportUsers(ctx context.Context, filter models.ExportFilter) ([]byte, error) {
	rows, err := s.repo.ExportUsers(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export users")
	}

	data := export.Dataset{
		Headers: []string{"ID", "Username", "Full Name", "Email", "User Type", "Student ID", "Course", "Year Level", "Contact", "Created Date"},
	}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"ID":           row.ID,
			"Username":     deref(row.Username),
			"Full Name":    row.FullName(),
			"Email":        row.Email,
			"User Type":    string(row.Role),
			"Student ID":   deref(row.StudentID),
			"Course":       deref(row.Course),
			"Year Level":   deref(row.YearLevel),
			"Contact":      deref(row.ContactNumber),
			"Created Date": row.CreatedAt.Format("2006-01-02"),
		})
	}
	return s.renderCSV(data)
}

func (s *ReportService) exportActivity(ctx context.Context, filter models.ExportFilter) ([]byte, error) {
	rows, err := s.repo.ExportActivity(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export activity")
	}

	data := export.Dataset{
		Headers: []string{"ID", "User", "Action", "Description", "IP Address", "Date"},
	}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"ID":          row.ID,
			"User":        row.ActorDisplay(),
			"Action":      row.Action,
			"Description": deref(row.Description),
			"IP Address":  row.IPAddress,
			"Date":        row.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return s.renderCSV(data)
}

func (s *ReportService) renderCSV(data export.Dataset) ([]byte, error) {
	out, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
