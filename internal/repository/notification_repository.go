package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lnhs-portal/docrequest-api/internal/models"
)

const notificationColumns = `id, user_id, request_id, title, message, channel, status, error, read_at, created_at`

// NotificationRepository provides database access for notification rows.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new instance.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification row, typically in the pending state.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, request_id, title, message, channel, status, error, read_at, created_at) VALUES (:id, :user_id, :request_id, :title, :message, :channel, :status, :error, :read_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// MarkSent records a successful delivery attempt.
func (r *NotificationRepository) MarkSent(ctx context.Context, id string) error {
	const query = `UPDATE notifications SET status = $2, error = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.NotificationSent); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt with its reason.
func (r *NotificationRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	const query = `UPDATE notifications SET status = $2, error = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.NotificationFailed, reason); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}

// MarkRead stamps a portal notification as read for the given user. Rows
// that do not exist, belong to someone else, or are already read are left
// untouched without error.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	const query = `UPDATE notifications SET read_at = $3 WHERE id = $1 AND user_id = $2 AND read_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead stamps every unread portal notification for the user.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	const query = `UPDATE notifications SET read_at = $2 WHERE user_id = $1 AND channel = $3 AND read_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC(), models.ChannelPortal); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// List returns a user's portal notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE user_id = $1 AND channel = $2`, notificationColumns)
	args := []interface{}{filter.UserID, models.ChannelPortal}
	if filter.UnreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// CountUnread returns the number of unread portal notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND channel = $2 AND read_at IS NULL`
	if err := r.db.GetContext(ctx, &count, query, userID, models.ChannelPortal); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes notification rows created before the cutoff and
// returns the number deleted.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM notifications WHERE created_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old notifications: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted notifications: %w", err)
	}
	return deleted, nil
}
