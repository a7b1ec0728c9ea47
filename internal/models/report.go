package models

import "time"

// ReportSummary aggregates the counters shown on the admin reports page.
type ReportSummary struct {
	TotalRequests   int                `json:"total_requests"`
	TotalRequesters int                `json:"total_requesters"`
	PendingRequests int                `json:"pending_requests"`
	ReadyForPickup  int                `json:"ready_for_pickup"`
	Monthly         []MonthlyCount     `json:"monthly"`
	ByStatus        []StatusCount      `json:"by_status"`
	ByDocumentType  []DocumentTypeStat `json:"by_document_type"`
	RecentActivity  []ActivityLogDetail `json:"recent_activity"`
}

// MonthlyCount is one month's request volume, newest first.
type MonthlyCount struct {
	Month string `db:"month" json:"month"`
	Count int    `db:"count" json:"count"`
}

// StatusCount is the per-status breakdown used on dashboards.
type StatusCount struct {
	Status RequestStatus `db:"status" json:"status"`
	Count  int           `db:"count" json:"count"`
}

// ExportType selects which CSV export to produce.
type ExportType string

const (
	ExportRequests ExportType = "requests"
	ExportUsers    ExportType = "users"
	ExportActivity ExportType = "activity"
)

// Valid reports whether t is a known export type.
func (t ExportType) Valid() bool {
	switch t {
	case ExportRequests, ExportUsers, ExportActivity:
		return true
	}
	return false
}

// ExportFilter bounds an export by creation date, inclusive.
type ExportFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
}
