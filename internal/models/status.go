package models

import "strings"

// StatusMeta is the single presentation lookup shared by every surface
// that renders a request status (API responses, exports, notifications).
type StatusMeta struct {
	Label      string `json:"label"`
	BadgeClass string `json:"badge_class"`
	Icon       string `json:"icon"`
}

var statusMeta = map[RequestStatus]StatusMeta{
	StatusPending:        {Label: "Pending", BadgeClass: "warning", Icon: "clock"},
	StatusProcessing:     {Label: "Processing", BadgeClass: "info", Icon: "cog"},
	StatusApproved:       {Label: "Approved", BadgeClass: "primary", Icon: "check"},
	StatusDenied:         {Label: "Denied", BadgeClass: "danger", Icon: "times"},
	StatusReadyForPickup: {Label: "Ready For Pickup", BadgeClass: "success", Icon: "box"},
	StatusCompleted:      {Label: "Completed", BadgeClass: "secondary", Icon: "check-double"},
}

// Meta returns the presentation metadata for a status. Unknown statuses
// fall back to a raw label so nothing renders empty.
func (s RequestStatus) Meta() StatusMeta {
	if m, ok := statusMeta[s]; ok {
		return m
	}
	return StatusMeta{Label: s.TitleCase(), BadgeClass: "secondary", Icon: "question"}
}

// TitleCase renders "ready_for_pickup" as "Ready For Pickup".
func (s RequestStatus) TitleCase() string {
	parts := strings.Split(string(s), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// statusMessages maps each status to the requester-facing message suffix.
// The wording is a fixed contract carried over from the legacy portal.
var statusMessages = map[RequestStatus]string{
	StatusPending:        "Your request is being reviewed.",
	StatusProcessing:     "Your request has been approved and is now being processed.",
	StatusApproved:       "Your request has been approved. Payment is required before processing.",
	StatusDenied:         "Your request has been denied. Please check the admin notes for details.",
	StatusReadyForPickup: "Your document is ready for pickup! Please visit the registrar's office.",
	StatusCompleted:      "Your request has been completed successfully. Thank you!",
}

// Message returns the requester-facing suffix for a status change.
func (s RequestStatus) Message() string {
	return statusMessages[s]
}

// strictNext enumerates the transitions allowed in strict mode. Denied and
// completed are terminal; denial is reachable while the request is under
// review.
var strictNext = map[RequestStatus][]RequestStatus{
	StatusPending:        {StatusProcessing, StatusApproved, StatusDenied},
	StatusProcessing:     {StatusApproved, StatusDenied},
	StatusApproved:       {StatusReadyForPickup},
	StatusReadyForPickup: {StatusCompleted},
	StatusDenied:         {},
	StatusCompleted:      {},
}

// CanTransition reports whether old→new is allowed under strict mode.
func CanTransition(old, new RequestStatus) bool {
	for _, next := range strictNext[old] {
		if next == new {
			return true
		}
	}
	return false
}
