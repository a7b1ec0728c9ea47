package models

import "time"

// RequestStatus is the document request workflow state. The string values
// are the wire-level contract shared with the frontend and exports.
type RequestStatus string

const (
	StatusPending        RequestStatus = "pending"
	StatusProcessing     RequestStatus = "processing"
	StatusApproved       RequestStatus = "approved"
	StatusDenied         RequestStatus = "denied"
	StatusReadyForPickup RequestStatus = "ready_for_pickup"
	StatusCompleted      RequestStatus = "completed"
)

// AllStatuses lists every workflow state in display order.
var AllStatuses = []RequestStatus{
	StatusPending,
	StatusProcessing,
	StatusApproved,
	StatusDenied,
	StatusReadyForPickup,
	StatusCompleted,
}

// Valid reports whether s is a known workflow state.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusApproved, StatusDenied, StatusReadyForPickup, StatusCompleted:
		return true
	}
	return false
}

// Open reports whether the request still needs admin attention.
// Denied and completed requests are closed.
func (s RequestStatus) Open() bool {
	return s != StatusDenied && s != StatusCompleted
}

// PaymentStatus tracks the fee settlement for a request.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
	PaymentWaived PaymentStatus = "waived"
)

// Valid reports whether p is a known payment state.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPaid, PaymentWaived:
		return true
	}
	return false
}

// DocumentRequest is the central entity of the portal.
type DocumentRequest struct {
	ID                   string        `db:"id" json:"id"`
	UserID               string        `db:"user_id" json:"user_id"`
	DocumentTypeID       string        `db:"document_type_id" json:"document_type_id"`
	Purpose              string        `db:"purpose" json:"purpose"`
	PreferredReleaseDate *time.Time    `db:"preferred_release_date" json:"preferred_release_date,omitempty"`
	Quantity             int           `db:"quantity" json:"quantity"`
	TotalAmount          float64       `db:"total_amount" json:"total_amount"`
	Status               RequestStatus `db:"status" json:"status"`
	PaymentStatus        PaymentStatus `db:"payment_status" json:"payment_status"`
	AdminNotes           *string       `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestDetail joins requester and document type columns for listings,
// detail views, and CSV exports.
type RequestDetail struct {
	DocumentRequest
	RequesterName  string  `db:"requester_name" json:"requester_name"`
	RequesterEmail string  `db:"requester_email" json:"requester_email"`
	StudentID      *string `db:"student_id" json:"student_id,omitempty"`
	DocumentName   string  `db:"document_name" json:"document_name"`
	DocumentFee    float64 `db:"document_fee" json:"document_fee"`
}

// RequestFile is a side-car record for an uploaded requirement file.
type RequestFile struct {
	ID          string    `db:"id" json:"id"`
	RequestID   string    `db:"request_id" json:"request_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StoredPath  string    `db:"stored_path" json:"-"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	UploadType  string    `db:"upload_type" json:"upload_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// FileLink is a short-lived tokenised download reference.
type FileLink struct {
	FileID    string    `json:"file_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Upload types for request files.
const (
	UploadTypeID          = "id"
	UploadTypeRequirement = "requirement"
)

// StatusHistory is one append-only row per transition. The initial
// submission row carries a null old status.
type StatusHistory struct {
	ID        string         `db:"id" json:"id"`
	RequestID string         `db:"request_id" json:"request_id"`
	OldStatus *RequestStatus `db:"old_status" json:"old_status,omitempty"`
	NewStatus RequestStatus  `db:"new_status" json:"new_status"`
	ChangedBy *string        `db:"changed_by" json:"changed_by,omitempty"`
	Notes     *string        `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// SubmitRequestInput carries a new submission. Files arrive through the
// multipart form and are validated before anything is persisted.
type SubmitRequestInput struct {
	DocumentTypeID       string     `json:"document_type_id" validate:"required"`
	Purpose              string     `json:"purpose" validate:"required"`
	Quantity             int        `json:"quantity" validate:"required,gte=1"`
	PreferredReleaseDate *time.Time `json:"preferred_release_date,omitempty"`
	Files                []FileUpload
}

// FileUpload is an in-memory uploaded file handed to the request service.
type FileUpload struct {
	FileName    string
	ContentType string
	Size        int64
	UploadType  string
	Content     []byte
}

// UpdateStatusInput is the admin status-change payload.
type UpdateStatusInput struct {
	NewStatus RequestStatus `json:"new_status" validate:"required"`
	Notes     string        `json:"notes"`
}

// UpdatePaymentInput is the admin payment-change payload.
type UpdatePaymentInput struct {
	PaymentStatus PaymentStatus `json:"payment_status" validate:"required"`
}

// RequestFilter captures listing criteria for requests.
type RequestFilter struct {
	UserID   string
	Status   *RequestStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Page     int
	PageSize int
}
