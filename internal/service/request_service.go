package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	appErrors "github.com/lnhs-portal/docrequest-api/pkg/errors"
	"github.com/lnhs-portal/docrequest-api/pkg/export"
	"github.com/lnhs-portal/docrequest-api/pkg/storage"
)

type requestRepository interface {
	CreateWithHistory(ctx context.Context, req *models.DocumentRequest, history *models.StatusHistory, files []models.RequestFile) error
	FindByID(ctx context.Context, id string) (*models.DocumentRequest, error)
	FindDetailByID(ctx context.Context, id string) (*models.RequestDetail, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error)
	UpdateStatusWithHistory(ctx context.Context, id string, status models.RequestStatus, notes *string, history *models.StatusHistory) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
	History(ctx context.Context, requestID string) ([]models.StatusHistory, error)
	Files(ctx context.Context, requestID string) ([]models.RequestFile, error)
	FindFileByID(ctx context.Context, id string) (*models.RequestFile, error)
}

type requestDocumentTypes interface {
	FindByID(ctx context.Context, id string) (*models.DocumentType, error)
}

type notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

type summaryInvalidator interface {
	InvalidateSummary(ctx context.Context)
}

// RequestServiceConfig tunes submission and workflow behaviour.
type RequestServiceConfig struct {
	// TransitionMode "permissive" lets admins set any valid status,
	// matching how the registrar actually works a backlog. "strict"
	// enforces the forward-only workflow.
	TransitionMode    string
	MaxQuantity       int
	MaxFileSizeBytes  int64
	AllowedExtensions []string
	SchoolName        string
}

// RequestService implements the document request workflow.
type RequestService struct {
	repo      requestRepository
	docTypes  requestDocumentTypes
	notifier  notifier
	activity  activityRecorder
	files     fileStore
	pdf       *export.PDFExporter
	signer    *storage.SignedURLSigner
	dashboard summaryInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    RequestServiceConfig
}

// WithMetrics attaches workflow counters. Optional.
func (s *RequestService) WithMetrics(m *MetricsService) *RequestService {
	s.metrics = m
	return s
}

// WithSigner enables tokenised download links for uploaded files. Optional.
func (s *RequestService) WithSigner(signer *storage.SignedURLSigner) *RequestService {
	s.signer = signer
	return s
}

// WithDashboard drops the cached report summary after workflow
// mutations so the admin dashboard reflects them immediately. Optional.
func (s *RequestService) WithDashboard(d summaryInvalidator) *RequestService {
	s.dashboard = d
	return s
}

// NewRequestService constructs a RequestService instance.
func NewRequestService(repo requestRepository, docTypes requestDocumentTypes, n notifier, activity activityRecorder, files fileStore, validate *validator.Validate, logger *zap.Logger, cfg RequestServiceConfig) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = 10
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	if cfg.SchoolName == "" {
		cfg.SchoolName = "LNHS Registrar"
	}
	return &RequestService{
		repo:      repo,
		docTypes:  docTypes,
		notifier:  n,
		activity:  activity,
		files:     files,
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		config:    cfg,
	}
}

// Submit files a new document request. The fee is snapshotted at
// submission time so later catalog price changes never affect an open
// request. The request, its initial history row, and the file records
// are committed together; the confirmation notification goes out after
// the commit and is best effort.
func (s *RequestService) Submit(ctx context.Context, userID, ip string, input models.SubmitRequestInput) (*models.DocumentRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if input.Quantity > s.config.MaxQuantity {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("quantity cannot exceed %d", s.config.MaxQuantity))
	}

	docType, err := s.docTypes.FindByID(ctx, input.DocumentTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidDocumentType, "document type does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}
	if !docType.IsActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidDocumentType, "document type is no longer offered")
	}

	for _, upload := range input.Files {
		if err := s.validateUpload(upload); err != nil {
			return nil, err
		}
	}

	request := &models.DocumentRequest{
		ID:                   uuid.NewString(),
		UserID:               userID,
		DocumentTypeID:       docType.ID,
		Purpose:              input.Purpose,
		PreferredReleaseDate: input.PreferredReleaseDate,
		Quantity:             input.Quantity,
		TotalAmount:          docType.Fee * float64(input.Quantity),
		Status:               models.StatusPending,
		PaymentStatus:        models.PaymentUnpaid,
	}

	history := &models.StatusHistory{
		NewStatus: models.StatusPending,
		ChangedBy: &userID,
	}

	fileRecords, storedPaths, err := s.storeUploads(request.ID, input.Files)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateWithHistory(ctx, request, history, fileRecords); err != nil {
		s.discardStored(storedPaths)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save request")
	}

	if s.metrics != nil {
		s.metrics.RecordSubmission()
	}
	if s.dashboard != nil {
		s.dashboard.InvalidateSummary(ctx)
	}
	desc := fmt.Sprintf("%s x%d", docType.Name, request.Quantity)
	s.recordActivity(ctx, &userID, models.ActivitySubmitRequest, &desc, ip)

	s.sendRequestNotification(ctx, userID, request.ID, "Document Request Submitted",
		fmt.Sprintf("Your request for %s has been received and is pending review.", docType.Name),
		models.ChannelPortal)

	return request, nil
}

// Get returns one request with requester and catalog fields. ownerID
// scopes the lookup for non-staff callers; owners only see their own
// requests.
func (s *RequestService) Get(ctx context.Context, id, ownerID string) (*models.RequestDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if ownerID != "" && detail.UserID != ownerID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
	}
	return detail, nil
}

// List returns requests matching the filter with a total count.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, total, nil
}

// UpdateStatus moves a request to a new workflow state, appends the
// history row, and notifies the requester on the portal and by email.
// Notification failures never fail the update.
func (s *RequestService) UpdateStatus(ctx context.Context, id, actorID, ip string, input models.UpdateStatusInput) (*models.DocumentRequest, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !input.NewStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}

	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	// Re-selecting the current status is how the registrar refreshes
	// the admin notes, so it still writes history and notifies.
	if request.Status != input.NewStatus &&
		s.config.TransitionMode == "strict" && !models.CanTransition(request.Status, input.NewStatus) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move a %s request to %s", request.Status, input.NewStatus))
	}

	oldStatus := request.Status
	var notes *string
	if input.Notes != "" {
		notes = &input.Notes
	}
	history := &models.StatusHistory{
		OldStatus: &oldStatus,
		NewStatus: input.NewStatus,
		ChangedBy: &actorID,
		Notes:     notes,
	}
	if err := s.repo.UpdateStatusWithHistory(ctx, id, input.NewStatus, notes, history); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}

	request.Status = input.NewStatus
	request.AdminNotes = notes
	request.UpdatedAt = time.Now().UTC()

	if s.metrics != nil {
		s.metrics.RecordStatusChange(string(input.NewStatus))
	}
	if s.dashboard != nil {
		s.dashboard.InvalidateSummary(ctx)
	}
	desc := fmt.Sprintf("%s to %s", oldStatus.TitleCase(), input.NewStatus.TitleCase())
	s.recordActivity(ctx, &actorID, models.ActivityUpdateStatus, &desc, ip)

	message := input.NewStatus.Message()
	if detail, err := s.repo.FindDetailByID(ctx, id); err == nil {
		message = detail.DocumentName + ": " + message
	}
	if notes != nil {
		message += "\n\nAdmin Notes: " + *notes
	}
	title := fmt.Sprintf("Request #%s - %s", request.ID, input.NewStatus.Meta().Label)
	s.sendRequestNotification(ctx, request.UserID, request.ID, title, message, models.ChannelPortal)
	s.sendRequestNotification(ctx, request.UserID, request.ID, title, message, models.ChannelEmail)

	return request, nil
}

// UpdatePayment records the fee settlement state.
func (s *RequestService) UpdatePayment(ctx context.Context, id, actorID, ip string, input models.UpdatePaymentInput) error {
	if !input.PaymentStatus.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if err := s.repo.UpdatePaymentStatus(ctx, id, input.PaymentStatus); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment status")
	}
	if s.dashboard != nil {
		s.dashboard.InvalidateSummary(ctx)
	}
	desc := string(input.PaymentStatus)
	s.recordActivity(ctx, &actorID, models.ActivityUpdatePayment, &desc, ip)
	return nil
}

// History returns the status timeline for a request.
func (s *RequestService) History(ctx context.Context, requestID, ownerID string) ([]models.StatusHistory, error) {
	if _, err := s.Get(ctx, requestID, ownerID); err != nil {
		return nil, err
	}
	rows, err := s.repo.History(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	return rows, nil
}

// Files returns the uploaded requirements for a request.
func (s *RequestService) Files(ctx context.Context, requestID, ownerID string) ([]models.RequestFile, error) {
	if _, err := s.Get(ctx, requestID, ownerID); err != nil {
		return nil, err
	}
	files, err := s.repo.Files(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load files")
	}
	return files, nil
}

// FileByID returns one uploaded file record after an ownership check.
func (s *RequestService) FileByID(ctx context.Context, fileID, ownerID string) (*models.RequestFile, error) {
	file, err := s.repo.FindFileByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if _, err := s.Get(ctx, file.RequestID, ownerID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return file, nil
}

// FileLink issues a short-lived signed token for downloading a file
// without an Authorization header, so links can be opened directly from
// the browser. Ownership is checked at issue time; the token itself is
// the proof on redemption.
func (s *RequestService) FileLink(ctx context.Context, fileID, ownerID string) (*models.FileLink, error) {
	if s.signer == nil {
		return nil, appErrors.New(appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "download links not configured")
	}
	file, err := s.FileByID(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(file.ID, file.StoredPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &models.FileLink{FileID: file.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// RedeemFileLink validates a signed download token and returns the file
// record it points at.
func (s *RequestService) RedeemFileLink(ctx context.Context, token string) (*models.RequestFile, error) {
	if s.signer == nil {
		return nil, appErrors.New(appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "download links not configured")
	}
	fileID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	file, err := s.repo.FindFileByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if file.StoredPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	return file, nil
}

// ClaimSlip renders the printable pickup slip for a ready request.
func (s *RequestService) ClaimSlip(ctx context.Context, requestID, ownerID string) ([]byte, error) {
	detail, err := s.Get(ctx, requestID, ownerID)
	if err != nil {
		return nil, err
	}
	if detail.Status != models.StatusReadyForPickup && detail.Status != models.StatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request is not ready for pickup")
	}

	fields := []export.SlipField{
		{Label: "Request No.", Value: detail.ID},
		{Label: "Requester", Value: detail.RequesterName},
	}
	if detail.StudentID != nil {
		fields = append(fields, export.SlipField{Label: "Student ID", Value: *detail.StudentID})
	}
	fields = append(fields,
		export.SlipField{Label: "Document", Value: detail.DocumentName},
		export.SlipField{Label: "Quantity", Value: fmt.Sprintf("%d", detail.Quantity)},
		export.SlipField{Label: "Total Amount", Value: fmt.Sprintf("PHP %.2f", detail.TotalAmount)},
		export.SlipField{Label: "Payment", Value: string(detail.PaymentStatus)},
		export.SlipField{Label: "Status", Value: detail.Status.Meta().Label},
		export.SlipField{Label: "Requested On", Value: detail.CreatedAt.Format("January 2, 2006")},
	)

	slip, err := s.pdf.RenderSlip(s.config.SchoolName, "Document Claim Slip", fields,
		"Present this slip and a valid ID at the registrar's window.")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render claim slip")
	}
	return slip, nil
}

func (s *RequestService) validateUpload(upload models.FileUpload) error {
	if upload.Size > s.config.MaxFileSizeBytes {
		return appErrors.Clone(appErrors.ErrFileTooLarge,
			fmt.Sprintf("%s exceeds the %d MB limit", upload.FileName, s.config.MaxFileSizeBytes/(1024*1024)))
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(upload.FileName)), ".")
	for _, allowed := range s.config.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrFileTypeNotAllowed,
		fmt.Sprintf("%s files are not accepted", ext))
}

func (s *RequestService) storeUploads(requestID string, uploads []models.FileUpload) ([]models.RequestFile, []string, error) {
	var records []models.RequestFile
	var stored []string
	for _, upload := range uploads {
		name := fmt.Sprintf("requests/%s/%s%s", requestID, uuid.NewString(), strings.ToLower(filepath.Ext(upload.FileName)))
		path, err := s.files.Save(name, upload.Content)
		if err != nil {
			s.discardStored(stored)
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
		}
		stored = append(stored, path)
		uploadType := upload.UploadType
		if uploadType == "" {
			uploadType = models.UploadTypeRequirement
		}
		records = append(records, models.RequestFile{
			FileName:    upload.FileName,
			StoredPath:  path,
			ContentType: upload.ContentType,
			SizeBytes:   upload.Size,
			UploadType:  uploadType,
		})
	}
	return records, stored, nil
}

func (s *RequestService) discardStored(paths []string) {
	for _, path := range paths {
		if err := s.files.Delete(path); err != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", path), zap.Error(err))
		}
	}
}

func (s *RequestService) sendRequestNotification(ctx context.Context, userID, requestID, title, message string, channel models.NotificationChannel) {
	if s.notifier == nil {
		return
	}
	n := &models.Notification{
		UserID:    userID,
		RequestID: &requestID,
		Title:     title,
		Message:   message,
		Channel:   channel,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("failed to dispatch notification",
			zap.String("request_id", requestID), zap.String("channel", string(channel)), zap.Error(err))
	}
}

func (s *RequestService) recordActivity(ctx context.Context, userID *string, action string, description *string, ip string) {
	if s.activity == nil {
		return
	}
	entry := &models.ActivityLog{
		UserID:      userID,
		Action:      action,
		Description: description,
		IPAddress:   ip,
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", zap.String("action", action), zap.Error(err))
	}
}
