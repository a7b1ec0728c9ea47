package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	"github.com/lnhs-portal/docrequest-api/internal/service"
)

type fakeReportRepo struct {
	exportFilter models.ExportFilter
}

func (f *fakeReportRepo) Totals(context.Context) (int, int, int, int, error) {
	return 40, 12, 7, 3, nil
}

func (f *fakeReportRepo) MonthlyCounts(_ context.Context, months int) ([]models.MonthlyCount, error) {
	return []models.MonthlyCount{{Month: "2026-09", Count: 5}}, nil
}

func (f *fakeReportRepo) CountsByStatus(context.Context) ([]models.StatusCount, error) {
	return []models.StatusCount{{Status: models.StatusPending, Count: 7}}, nil
}

func (f *fakeReportRepo) ExportRequests(_ context.Context, filter models.ExportFilter) ([]models.RequestDetail, error) {
	f.exportFilter = filter
	return []models.RequestDetail{{
		DocumentRequest: models.DocumentRequest{
			ID:          "req-1",
			Purpose:     "Scholarship",
			Status:      models.StatusPending,
			TotalAmount: 100,
			CreatedAt:   time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		},
		RequesterName:  "Juan Dela Cruz",
		RequesterEmail: "juan@example.com",
		DocumentName:   "Form 137",
	}}, nil
}

func (f *fakeReportRepo) ExportUsers(context.Context, models.ExportFilter) ([]models.User, error) {
	return nil, nil
}

func (f *fakeReportRepo) ExportActivity(context.Context, models.ExportFilter) ([]models.ActivityLogDetail, error) {
	return nil, nil
}

type fakeStatsTypes struct{}

func (fakeStatsTypes) ListWithStats(context.Context) ([]models.DocumentTypeStat, error) {
	return []models.DocumentTypeStat{{DocumentType: models.DocumentType{Name: "Form 137"}, RequestCount: 20}}, nil
}

type fakeActivityList struct{}

func (fakeActivityList) List(context.Context, models.ActivityFilter) ([]models.ActivityLogDetail, int, error) {
	return []models.ActivityLogDetail{}, 0, nil
}

func newReportRouter(repo *fakeReportRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewReportService(repo, fakeStatsTypes{}, fakeActivityList{}, nil, 0, nil)
	h := NewReportHandler(svc)

	router := gin.New()
	router.GET("/reports/summary", h.Summary)
	router.GET("/reports/export/:type", h.Export)
	return router
}

func TestReportHandlerSummary(t *testing.T) {
	router := newReportRouter(&fakeReportRepo{})

	req := httptest.NewRequest(http.MethodGet, "/reports/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.ReportSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 40, envelope.Data.TotalRequests)
	assert.Equal(t, 7, envelope.Data.PendingRequests)
	assert.Equal(t, 3, envelope.Data.ReadyForPickup)
	require.Len(t, envelope.Data.ByStatus, 1)
	assert.Equal(t, 7, envelope.Data.ByStatus[0].Count)
}

func TestReportHandlerExportRequestsCSV(t *testing.T) {
	repo := &fakeReportRepo{}
	router := newReportRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/reports/export/requests?date_from=2026-08-01&date_to=2026-09-01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	disposition := rec.Header().Get("Content-Disposition")
	assert.Contains(t, disposition, "attachment")
	assert.Contains(t, disposition, "requests_export_")
	assert.Contains(t, disposition, ".csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "ID,Student Name,Email,Student ID,Document,Purpose,Status,Fee,Request Date,Preferred Date", strings.TrimSpace(lines[0]))

	require.NotNil(t, repo.exportFilter.DateFrom)
	assert.Equal(t, "2026-08-01", repo.exportFilter.DateFrom.Format("2006-01-02"))
}

func TestReportHandlerExportRejectsUnknownType(t *testing.T) {
	router := newReportRouter(&fakeReportRepo{})

	req := httptest.NewRequest(http.MethodGet, "/reports/export/grades", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandlerExportRejectsBadDate(t *testing.T) {
	router := newReportRouter(&fakeReportRepo{})

	req := httptest.NewRequest(http.MethodGet, "/reports/export/requests?date_from=08-2026", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
