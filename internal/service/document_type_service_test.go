package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	appErrors "github.com/lnhs-portal/docrequest-api/pkg/errors"
)

type mockDocTypeRepo struct {
	types      map[string]*models.DocumentType
	counts     map[string]int
	deleted    []string
	lastUpdate *models.DocumentType
}

func newMockDocTypeRepo() *mockDocTypeRepo {
	return &mockDocTypeRepo{
		types:  make(map[string]*models.DocumentType),
		counts: make(map[string]int),
	}
}

func (m *mockDocTypeRepo) FindByID(ctx context.Context, id string) (*models.DocumentType, error) {
	dt, ok := m.types[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *dt
	return &copy, nil
}

func (m *mockDocTypeRepo) ListActive(ctx context.Context) ([]models.DocumentType, error) {
	var out []models.DocumentType
	for _, dt := range m.types {
		if dt.IsActive {
			out = append(out, *dt)
		}
	}
	return out, nil
}

func (m *mockDocTypeRepo) ListWithStats(ctx context.Context) ([]models.DocumentTypeStat, error) {
	var out []models.DocumentTypeStat
	for _, dt := range m.types {
		out = append(out, models.DocumentTypeStat{DocumentType: *dt, RequestCount: m.counts[dt.ID]})
	}
	return out, nil
}

func (m *mockDocTypeRepo) CountRequests(ctx context.Context, id string) (int, error) {
	return m.counts[id], nil
}

func (m *mockDocTypeRepo) Create(ctx context.Context, dt *models.DocumentType) error {
	dt.ID = "doc-" + dt.Name
	m.types[dt.ID] = dt
	return nil
}

func (m *mockDocTypeRepo) Update(ctx context.Context, dt *models.DocumentType) error {
	m.types[dt.ID] = dt
	m.lastUpdate = dt
	return nil
}

func (m *mockDocTypeRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.types, id)
	return nil
}

func TestDocumentTypeServiceCreate(t *testing.T) {
	repo := newMockDocTypeRepo()
	activity := &mockActivity{}
	svc := NewDocumentTypeService(repo, activity, nil, nil)

	dt, err := svc.Create(context.Background(), "admin-1", models.CreateDocumentTypeRequest{
		Name:           "Form 137",
		ProcessingDays: 5,
		Fee:            50,
	})
	require.NoError(t, err)
	assert.True(t, dt.IsActive)
	assert.Contains(t, activity.actions(), models.ActivityDocTypeCreated)
}

func TestDocumentTypeServiceDeleteInUse(t *testing.T) {
	repo := newMockDocTypeRepo()
	repo.types["doc-1"] = &models.DocumentType{ID: "doc-1", Name: "Form 137", IsActive: true}
	repo.counts["doc-1"] = 4
	svc := NewDocumentTypeService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "admin-1", "doc-1")
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrTypeInUse.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestDocumentTypeServiceDeleteUnused(t *testing.T) {
	repo := newMockDocTypeRepo()
	repo.types["doc-1"] = &models.DocumentType{ID: "doc-1", Name: "Old Form", IsActive: false}
	svc := NewDocumentTypeService(repo, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "admin-1", "doc-1"))
	assert.Equal(t, []string{"doc-1"}, repo.deleted)
}

func TestDocumentTypeServiceUpdatePartial(t *testing.T) {
	repo := newMockDocTypeRepo()
	repo.types["doc-1"] = &models.DocumentType{ID: "doc-1", Name: "Form 137", Fee: 50, ProcessingDays: 5, IsActive: true}
	svc := NewDocumentTypeService(repo, nil, nil, nil)

	newFee := 75.0
	dt, err := svc.Update(context.Background(), "admin-1", "doc-1", models.UpdateDocumentTypeRequest{Fee: &newFee})
	require.NoError(t, err)
	assert.Equal(t, 75.0, dt.Fee)
	assert.Equal(t, "Form 137", dt.Name)
	assert.Equal(t, 5, dt.ProcessingDays)
}

func TestDocumentTypeServiceGetNotFound(t *testing.T) {
	svc := NewDocumentTypeService(newMockDocTypeRepo(), nil, nil, nil)
	_, err := svc.Get(context.Background(), "missing")
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
