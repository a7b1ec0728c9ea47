package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnhs-portal/docrequest-api/internal/models"
)

type mockReportRepo struct {
	requests []models.RequestDetail
	users    []models.User
	activity []models.ActivityLogDetail
}

func (m *mockReportRepo) Totals(ctx context.Context) (int, int, int, int, error) {
	return 12, 5, 3, 2, nil
}

func (m *mockReportRepo) MonthlyCounts(ctx context.Context, months int) ([]models.MonthlyCount, error) {
	return []models.MonthlyCount{{Month: "2026-09", Count: 4}, {Month: "2026-08", Count: 8}}, nil
}

func (m *mockReportRepo) CountsByStatus(ctx context.Context) ([]models.StatusCount, error) {
	return []models.StatusCount{{Status: models.StatusPending, Count: 3}}, nil
}

func (m *mockReportRepo) ExportRequests(ctx context.Context, filter models.ExportFilter) ([]models.RequestDetail, error) {
	return m.requests, nil
}

func (m *mockReportRepo) ExportUsers(ctx context.Context, filter models.ExportFilter) ([]models.User, error) {
	return m.users, nil
}

func (m *mockReportRepo) ExportActivity(ctx context.Context, filter models.ExportFilter) ([]models.ActivityLogDetail, error) {
	return m.activity, nil
}

type mockStatsDocTypes struct{}

func (m *mockStatsDocTypes) ListWithStats(ctx context.Context) ([]models.DocumentTypeStat, error) {
	return []models.DocumentTypeStat{{
		DocumentType: models.DocumentType{ID: "doc-1", Name: "Form 137"},
		RequestCount: 9,
		TotalRevenue: 450,
	}}, nil
}

type mockActivityList struct{}

func (m *mockActivityList) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLogDetail, int, error) {
	return []models.ActivityLogDetail{{ActivityLog: models.ActivityLog{ID: "act-1", Action: models.ActivityLogin}}}, 1, nil
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestReportServiceSummary(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, &mockStatsDocTypes{}, &mockActivityList{}, nil, 0, nil)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, summary.TotalRequests)
	assert.Equal(t, 5, summary.TotalRequesters)
	assert.Equal(t, 3, summary.PendingRequests)
	assert.Equal(t, 2, summary.ReadyForPickup)
	assert.Len(t, summary.Monthly, 2)
	require.Len(t, summary.ByStatus, 1)
	assert.Equal(t, models.StatusPending, summary.ByStatus[0].Status)
	assert.Equal(t, 3, summary.ByStatus[0].Count)
	assert.Len(t, summary.ByDocumentType, 1)
	assert.Len(t, summary.RecentActivity, 1)
}

func TestReportServiceExportRequestsColumns(t *testing.T) {
	studentID := "2020-00123"
	preferred := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	repo := &mockReportRepo{requests: []models.RequestDetail{{
		DocumentRequest: models.DocumentRequest{
			ID:                   "req-1",
			Purpose:              "Scholarship, with comma",
			Status:               models.StatusReadyForPickup,
			TotalAmount:          100,
			CreatedAt:            time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
			PreferredReleaseDate: &preferred,
		},
		RequesterName:  "Juan Dela Cruz",
		RequesterEmail: "juan@example.com",
		StudentID:      &studentID,
		DocumentName:   "Form 137",
	}}}
	svc := NewReportService(repo, &mockStatsDocTypes{}, &mockActivityList{}, nil, 0, nil)

	out, err := svc.Export(context.Background(), models.ExportRequests, models.ExportFilter{})
	require.NoError(t, err)

	records := parseCSV(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"ID", "Student Name", "Email", "Student ID", "Document", "Purpose", "Status", "Fee", "Request Date", "Preferred Date"}, records[0])
	assert.Equal(t, []string{"req-1", "Juan Dela Cruz", "juan@example.com", "2020-00123", "Form 137", "Scholarship, with comma", "Ready For Pickup", "100.00", "2026-09-01", "2026-09-15"}, records[1])
}

func TestReportServiceExportUsersColumns(t *testing.T) {
	username := "jdelacruz"
	repo := &mockReportRepo{users: []models.User{{
		ID:        "user-1",
		Username:  &username,
		FirstName: "Juan",
		LastName:  "Dela Cruz",
		Email:     "juan@example.com",
		Role:      models.RoleStudent,
		CreatedAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}}}
	svc := NewReportService(repo, &mockStatsDocTypes{}, &mockActivityList{}, nil, 0, nil)

	out, err := svc.Export(context.Background(), models.ExportUsers, models.ExportFilter{})
	require.NoError(t, err)

	records := parseCSV(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"ID", "Username", "Full Name", "Email", "User Type", "Student ID", "Course", "Year Level", "Contact", "Created Date"}, records[0])
	assert.Equal(t, "Juan Dela Cruz", records[1][2])
	assert.Equal(t, "student", records[1][4])
}

func TestReportServiceExportActivityRendersActor(t *testing.T) {
	name := "Ana Reyes"
	username := "areyes"
	desc := "Updated request status"
	repo := &mockReportRepo{activity: []models.ActivityLogDetail{
		{
			ActivityLog:   models.ActivityLog{ID: "act-1", Action: models.ActivityUpdateStatus, Description: &desc, IPAddress: "10.0.0.1", CreatedAt: time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)},
			ActorName:     &name,
			ActorUsername: &username,
		},
		{
			ActivityLog: models.ActivityLog{ID: "act-2", Action: "Retention sweep"},
		},
	}}
	svc := NewReportService(repo, &mockStatsDocTypes{}, &mockActivityList{}, nil, 0, nil)

	out, err := svc.Export(context.Background(), models.ExportActivity, models.ExportFilter{})
	require.NoError(t, err)

	records := parseCSV(t, out)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"ID", "User", "Action", "Description", "IP Address", "Date"}, records[0])
	assert.Equal(t, "Ana Reyes (@areyes)", records[1][1])
	assert.Equal(t, "System", records[2][1])
}

func TestReportServiceExportUnknownType(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, &mockStatsDocTypes{}, &mockActivityList{}, nil, 0, nil)
	_, err := svc.Export(context.Background(), models.ExportType("grades"), models.ExportFilter{})
	require.Error(t, err)
}
