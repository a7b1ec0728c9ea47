package models

import "time"

// DocumentType is a catalog entry for an obtainable official document.
type DocumentType struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	ProcessingDays int       `db:"processing_days" json:"processing_days"`
	Fee            float64   `db:"fee" json:"fee"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentTypeStat augments a catalog entry with usage counters for the
// admin catalog page.
type DocumentTypeStat struct {
	DocumentType
	RequestCount int     `db:"request_count" json:"request_count"`
	TotalRevenue float64 `db:"total_revenue" json:"total_revenue"`
}

// CreateDocumentTypeRequest is the admin catalog-create payload.
type CreateDocumentTypeRequest struct {
	Name           string  `json:"name" validate:"required"`
	Description    string  `json:"description"`
	ProcessingDays int     `json:"processing_days" validate:"gte=0"`
	Fee            float64 `json:"fee" validate:"gte=0"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// UpdateDocumentTypeRequest is the admin catalog-edit payload.
type UpdateDocumentTypeRequest struct {
	Name           *string  `json:"name,omitempty"`
	Description    *string  `json:"description,omitempty"`
	ProcessingDays *int     `json:"processing_days,omitempty" validate:"omitempty,gte=0"`
	Fee            *float64 `json:"fee,omitempty" validate:"omitempty,gte=0"`
	IsActive       *bool    `json:"is_active,omitempty"`
}
