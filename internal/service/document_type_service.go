package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	appErrors "github.com/lnhs-portal/docrequest-api/pkg/errors"
)

type documentTypeRepository interface {
	FindByID(ctx context.Context, id string) (*models.DocumentType, error)
	ListActive(ctx context.Context) ([]models.DocumentType, error)
	ListWithStats(ctx context.Context) ([]models.DocumentTypeStat, error)
	CountRequests(ctx context.Context, id string) (int, error)
	Create(ctx context.Context, dt *models.DocumentType) error
	Update(ctx context.Context, dt *models.DocumentType) error
	Delete(ctx context.Context, id string) error
}

// DocumentTypeService manages the catalog of requestable documents.
type DocumentTypeService struct {
	repo      documentTypeRepository
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentTypeService constructs a DocumentTypeService instance.
func NewDocumentTypeService(repo documentTypeRepository, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *DocumentTypeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentTypeService{repo: repo, activity: activity, validator: validate, logger: logger}
}

// ListActive returns the catalog students see when filing a request.
func (s *DocumentTypeService) ListActive(ctx context.Context) ([]models.DocumentType, error) {
	types, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document types")
	}
	return types, nil
}

// ListWithStats returns every type with request volume and revenue for
// the admin catalog page.
func (s *DocumentTypeService) ListWithStats(ctx context.Context) ([]models.DocumentTypeStat, error) {
	stats, err := s.repo.ListWithStats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document types")
	}
	return stats, nil
}

// Get returns one document type.
func (s *DocumentTypeService) Get(ctx context.Context, id string) (*models.DocumentType, error) {
	dt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}
	return dt, nil
}

// Create adds a document type to the catalog.
func (s *DocumentTypeService) Create(ctx context.Context, actorID string, req models.CreateDocumentTypeRequest) (*models.DocumentType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document type payload")
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	dt := &models.DocumentType{
		Name:           req.Name,
		Description:    req.Description,
		ProcessingDays: req.ProcessingDays,
		Fee:            req.Fee,
		IsActive:       active,
	}
	if err := s.repo.Create(ctx, dt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document type")
	}

	s.recordActivity(ctx, actorID, models.ActivityDocTypeCreated, dt.Name)
	return dt, nil
}

// Update modifies a document type. Fee changes only affect future
// requests; open requests keep their snapshotted totals.
func (s *DocumentTypeService) Update(ctx context.Context, actorID, id string, req models.UpdateDocumentTypeRequest) (*models.DocumentType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document type payload")
	}

	dt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		dt.Name = *req.Name
	}
	if req.Description != nil {
		dt.Description = *req.Description
	}
	if req.ProcessingDays != nil {
		dt.ProcessingDays = *req.ProcessingDays
	}
	if req.Fee != nil {
		dt.Fee = *req.Fee
	}
	if req.IsActive != nil {
		dt.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, dt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document type")
	}

	s.recordActivity(ctx, actorID, models.ActivityDocTypeUpdated, dt.Name)
	return dt, nil
}

// Delete removes a document type. Types referenced by any request are
// protected; deactivate them instead.
func (s *DocumentTypeService) Delete(ctx context.Context, actorID, id string) error {
	dt, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.repo.CountRequests(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check document type usage")
	}
	if inUse > 0 {
		return appErrors.Clone(appErrors.ErrTypeInUse, "document type has existing requests; deactivate it instead")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document type")
	}

	s.recordActivity(ctx, actorID, models.ActivityDocTypeDeleted, dt.Name)
	return nil
}

func (s *DocumentTypeService) recordActivity(ctx context.Context, actorID, action, name string) {
	if s.activity == nil {
		return
	}
	entry := &models.ActivityLog{
		UserID:      &actorID,
		Action:      action,
		Description: &name,
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}
