package models

import "time"

// Activity actions recorded in the audit trail.
const (
	ActivityLogin           = "Logged in"
	ActivityLogout          = "Logged out"
	ActivityRegistered      = "Registered account"
	ActivityPasswordChanged = "Changed password"
	ActivitySubmitRequest   = "Submitted document request"
	ActivityUpdateStatus    = "Updated request status"
	ActivityUpdatePayment   = "Updated payment status"
	ActivityUserCreated     = "Created user account"
	ActivityUserUpdated     = "Updated user account"
	ActivityUserDeactivated = "Deactivated user account"
	ActivityDocTypeCreated  = "Created document type"
	ActivityDocTypeUpdated  = "Updated document type"
	ActivityDocTypeDeleted  = "Deleted document type"
)

// ActivityLog is an append-only audit record. A nil UserID means the
// action was performed by the system itself.
type ActivityLog struct {
	ID          string    `db:"id" json:"id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	Description *string   `db:"description" json:"description,omitempty"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ActivityLogDetail joins the actor's name for exports and listings.
type ActivityLogDetail struct {
	ActivityLog
	ActorName     *string `db:"actor_name" json:"actor_name,omitempty"`
	ActorUsername *string `db:"actor_username" json:"actor_username,omitempty"`
}

// ActivityFilter narrows activity listings and exports.
type ActivityFilter struct {
	UserID   string
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Page     int
	PageSize int
}

// ActorDisplay renders "Full Name (@username)" or "System" for exports.
func (a ActivityLogDetail) ActorDisplay() string {
	if a.ActorName == nil || *a.ActorName == "" {
		return "System"
	}
	if a.ActorUsername != nil && *a.ActorUsername != "" {
		return *a.ActorName + " (@" + *a.ActorUsername + ")"
	}
	return *a.ActorName
}
