package models

import "time"

// NotificationChannel selects how a notification is delivered.
type NotificationChannel string

const (
	ChannelPortal NotificationChannel = "portal"
	ChannelEmail  NotificationChannel = "email"
	ChannelSMS    NotificationChannel = "sms"
)

// Valid reports whether c is a known channel.
func (c NotificationChannel) Valid() bool {
	switch c {
	case ChannelPortal, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

// NotificationStatus is the delivery outcome recorded on the row.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is a message to a user, optionally tied to a request.
// Rows are always created with status pending; the delivery attempt then
// settles them to sent or failed.
type Notification struct {
	ID        string              `db:"id" json:"id"`
	UserID    string              `db:"user_id" json:"user_id"`
	RequestID *string             `db:"request_id" json:"request_id,omitempty"`
	Title     string              `db:"title" json:"title"`
	Message   string              `db:"message" json:"message"`
	Channel   NotificationChannel `db:"channel" json:"channel"`
	Status    NotificationStatus  `db:"status" json:"status"`
	Error     *string             `db:"error" json:"error,omitempty"`
	ReadAt    *time.Time          `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
}

// Read reports whether the owner has seen the notification.
func (n Notification) Read() bool {
	return n.ReadAt != nil
}

// NotificationFilter captures listing criteria for portal notifications.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
}
