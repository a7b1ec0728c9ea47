package service

import (
	"context"
	"fmt"
	"html"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	appErrors "github.com/lnhs-portal/docrequest-api/pkg/errors"
	"github.com/lnhs-portal/docrequest-api/pkg/jobs"
	"github.com/lnhs-portal/docrequest-api/pkg/mail"
)

const (
	smsPrefix    = "LNHS Portal: "
	smsMaxLength = 140
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// SMSSender sends a text message to a mobile number.
type SMSSender interface {
	Send(ctx context.Context, number, message string) error
}

// NotificationConfig tunes delivery behaviour.
type NotificationConfig struct {
	QueueWorkers  int
	MaxAttempts   int
	RetryDelay    time.Duration
	RetentionDays int
}

// deliveryPayload is what travels through the job queue for one attempt.
type deliveryPayload struct {
	Notification models.Notification
	Email        string
	Phone        string
	Name         string
}

// NotificationService persists notifications and drives their delivery.
// Rows are written in the pending state first; the delivery attempt then
// settles them to sent or failed. Delivery failures never propagate to
// the operation that triggered the notification.
type NotificationService struct {
	repo        notificationRepository
	users       notificationUserLookup
	mailer      Mailer
	sms         SMSSender
	logger      *zap.Logger
	queue       *jobs.Queue
	metrics     *MetricsService
	maxAttempts int
	retention   time.Duration
}

// WithMetrics attaches delivery counters. Optional.
func (s *NotificationService) WithMetrics(m *MetricsService) *NotificationService {
	s.metrics = m
	return s
}

// NewNotificationService constructs the service and its delivery queue.
// mailer and sms may be nil when the corresponding channel is not
// configured; notifications on those channels settle to failed.
func NewNotificationService(repo notificationRepository, users notificationUserLookup, mailer Mailer, sms SMSSender, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}

	s := &NotificationService{
		repo:        repo,
		users:       users,
		mailer:      mailer,
		sms:         sms,
		logger:      logger,
		maxAttempts: cfg.MaxAttempts,
		retention:   time.Duration(cfg.RetentionDays) * 24 * time.Hour,
	}
	s.queue = jobs.NewQueue("notifications", s.handleDelivery, jobs.QueueConfig{
		Workers:    cfg.QueueWorkers,
		MaxRetries: cfg.MaxAttempts,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify persists the notification and schedules its delivery. Portal
// notifications are delivered by the row itself and settle immediately;
// email and SMS go through the queue.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if !n.Channel.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown notification channel")
	}
	n.Status = models.NotificationPending
	if err := s.repo.Create(ctx, n); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist notification")
	}

	if n.Channel == models.ChannelPortal {
		if err := s.repo.MarkSent(ctx, n.ID); err != nil {
			s.logger.Warn("failed to settle portal notification", zap.String("notification_id", n.ID), zap.Error(err))
		}
		return nil
	}

	user, err := s.users.FindByID(ctx, n.UserID)
	if err != nil {
		s.markFailed(ctx, n.ID, "recipient not found")
		return nil
	}

	payload := deliveryPayload{Notification: *n, Email: user.Email, Name: user.FullName()}
	if user.ContactNumber != nil {
		payload.Phone = *user.ContactNumber
	}
	if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: string(n.Channel), Payload: payload}); err != nil {
		s.logger.Warn("failed to enqueue notification delivery", zap.String("notification_id", n.ID), zap.Error(err))
		s.markFailed(ctx, n.ID, "delivery queue unavailable")
	}
	return nil
}

// handleDelivery runs one delivery attempt. Returning an error retries the
// job; the final attempt settles the row to failed instead.
func (s *NotificationService) handleDelivery(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(deliveryPayload)
	if !ok {
		s.logger.Error("unexpected delivery payload", zap.String("job_id", job.ID))
		return nil
	}

	err := s.deliver(ctx, payload)
	if err == nil {
		if s.metrics != nil {
			s.metrics.RecordNotification(string(payload.Notification.Channel), "sent")
		}
		if markErr := s.repo.MarkSent(ctx, payload.Notification.ID); markErr != nil {
			s.logger.Warn("failed to settle sent notification", zap.String("notification_id", payload.Notification.ID), zap.Error(markErr))
		}
		return nil
	}

	if job.Attempt >= s.maxAttempts-1 {
		if s.metrics != nil {
			s.metrics.RecordNotification(string(payload.Notification.Channel), "failed")
		}
		s.markFailed(ctx, payload.Notification.ID, err.Error())
		return nil
	}
	return err
}

func (s *NotificationService) deliver(ctx context.Context, payload deliveryPayload) error {
	switch payload.Notification.Channel {
	case models.ChannelEmail:
		if s.mailer == nil {
			return fmt.Errorf("email service not configured")
		}
		return s.mailer.Send(ctx, mail.Message{
			ToName:      payload.Name,
			ToAddress:   payload.Email,
			Subject:     payload.Notification.Title,
			TextContent: payload.Notification.Message,
			HTMLContent: renderEmailHTML(payload.Name, payload.Notification.Title, payload.Notification.Message),
		})
	case models.ChannelSMS:
		if s.sms == nil {
			return fmt.Errorf("SMS service not configured")
		}
		if payload.Phone == "" {
			return fmt.Errorf("user phone number not found")
		}
		return s.sms.Send(ctx, payload.Phone, FormatSMS(payload.Notification.Message))
	default:
		return fmt.Errorf("channel %s has no transport", payload.Notification.Channel)
	}
}

func (s *NotificationService) markFailed(ctx context.Context, id, reason string) {
	if err := s.repo.MarkFailed(ctx, id, reason); err != nil {
		s.logger.Warn("failed to settle failed notification", zap.String("notification_id", id), zap.Error(err))
	}
}

// List returns the user's portal notifications.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	notifications, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead marks one notification read. Unknown ids and already-read rows
// are ignored so repeated clicks stay idempotent.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread portal notification for the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

// UnreadCount returns the badge counter for the portal header.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// Cleanup deletes notifications past the retention window.
func (s *NotificationService) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete old notifications")
	}
	if deleted > 0 {
		s.logger.Info("notification retention sweep", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// renderEmailHTML wraps a notification in the portal's fixed email shell.
func renderEmailHTML(name, title, message string) string {
	greeting := "Hello,"
	if name != "" {
		greeting = fmt.Sprintf("Hello %s,", html.EscapeString(name))
	}
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px;">
<p>%s</p>
<h2 style="color: #1a5276;">%s</h2>
<p>%s</p>
<hr>
<p style="color: #777; font-size: 12px;">This is an automated message from the LNHS document request portal. Please do not reply.</p>
</div>`, greeting, html.EscapeString(title), html.EscapeString(message))
}

// FormatSMS prefixes and truncates a message for the SMS gateway. The
// gateway rejects bodies over the single-segment limit.
func FormatSMS(message string) string {
	text := smsPrefix + message
	if len(text) <= smsMaxLength {
		return text
	}
	// Back off to a rune boundary so a multi-byte character is never
	// split mid-sequence.
	cut := smsMaxLength - 3
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
