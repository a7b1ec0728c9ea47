package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnhs-portal/docrequest-api/internal/models"
	"github.com/lnhs-portal/docrequest-api/pkg/jobs"
	"github.com/lnhs-portal/docrequest-api/pkg/mail"
)

type mockNotificationRepo struct {
	created []*models.Notification
	sent    []string
	failed  map[string]string
	read    []string
	deleted int64
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{failed: make(map[string]string)}
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = "notif-1"
	}
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id string) error {
	m.sent = append(m.sent, id)
	return nil
}

func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	m.failed[id] = reason
	return nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	m.read = append(m.read, id)
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	return 2, nil
}

func (m *mockNotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.deleted, nil
}

type mockUserLookup struct {
	users map[string]*models.User
}

func (m *mockUserLookup) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

type mockMailer struct {
	sent []mail.Message
	err  error
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockSMS struct {
	numbers  []string
	messages []string
	err      error
}

func (m *mockSMS) Send(ctx context.Context, number, message string) error {
	if m.err != nil {
		return m.err
	}
	m.numbers = append(m.numbers, number)
	m.messages = append(m.messages, message)
	return nil
}

func newNotificationFixture(mailer Mailer, sms SMSSender) (*NotificationService, *mockNotificationRepo) {
	repo := newMockNotificationRepo()
	phone := "09171234567"
	users := &mockUserLookup{users: map[string]*models.User{
		"user-1": {ID: "user-1", Email: "juan@example.com", FirstName: "Juan", LastName: "Dela Cruz", ContactNumber: &phone},
	}}
	svc := NewNotificationService(repo, users, mailer, sms, nil, NotificationConfig{MaxAttempts: 1})
	return svc, repo
}

func TestNotificationServicePortalSettlesImmediately(t *testing.T) {
	svc, repo := newNotificationFixture(nil, nil)

	n := &models.Notification{UserID: "user-1", Title: "Request Update", Message: "approved", Channel: models.ChannelPortal}
	require.NoError(t, svc.Notify(context.Background(), n))

	require.Len(t, repo.created, 1)
	assert.Equal(t, models.NotificationPending, repo.created[0].Status)
	assert.Equal(t, []string{n.ID}, repo.sent)
}

func TestNotificationServiceEmailDelivery(t *testing.T) {
	mailer := &mockMailer{}
	svc, repo := newNotificationFixture(mailer, nil)

	payload := deliveryPayload{
		Notification: models.Notification{ID: "notif-1", UserID: "user-1", Title: "Request Approved", Message: "Your request has been approved.", Channel: models.ChannelEmail},
		Email:        "juan@example.com",
		Name:         "Juan Dela Cruz",
	}
	require.NoError(t, svc.handleDelivery(context.Background(), jobs.Job{ID: "notif-1", Payload: payload}))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "juan@example.com", mailer.sent[0].ToAddress)
	assert.Equal(t, []string{"notif-1"}, repo.sent)
}

func TestNotificationServiceEmailFailureSettlesFailed(t *testing.T) {
	mailer := &mockMailer{err: errors.New("sendgrid 500")}
	svc, repo := newNotificationFixture(mailer, nil)

	payload := deliveryPayload{
		Notification: models.Notification{ID: "notif-1", UserID: "user-1", Channel: models.ChannelEmail},
		Email:        "juan@example.com",
	}
	// The delivery error settles the row; it never propagates.
	require.NoError(t, svc.handleDelivery(context.Background(), jobs.Job{ID: "notif-1", Payload: payload}))
	assert.Equal(t, "sendgrid 500", repo.failed["notif-1"])
	assert.Empty(t, repo.sent)
}

func TestNotificationServiceSMSNotConfigured(t *testing.T) {
	svc, repo := newNotificationFixture(nil, nil)

	payload := deliveryPayload{
		Notification: models.Notification{ID: "notif-1", UserID: "user-1", Message: "ready", Channel: models.ChannelSMS},
		Phone:        "09171234567",
	}
	require.NoError(t, svc.handleDelivery(context.Background(), jobs.Job{ID: "notif-1", Payload: payload}))
	assert.Equal(t, "SMS service not configured", repo.failed["notif-1"])
}

func TestNotificationServiceSMSWithoutPhoneSettlesFailed(t *testing.T) {
	sms := &mockSMS{}
	svc, repo := newNotificationFixture(nil, sms)

	payload := deliveryPayload{
		Notification: models.Notification{ID: "notif-1", UserID: "user-1", Message: "ready", Channel: models.ChannelSMS},
	}
	require.NoError(t, svc.handleDelivery(context.Background(), jobs.Job{ID: "notif-1", Payload: payload}))
	assert.Equal(t, "user phone number not found", repo.failed["notif-1"])
	assert.Empty(t, sms.numbers)
}

func TestNotificationServiceSMSDelivery(t *testing.T) {
	sms := &mockSMS{}
	svc, repo := newNotificationFixture(nil, sms)

	payload := deliveryPayload{
		Notification: models.Notification{ID: "notif-1", UserID: "user-1", Message: "Your document is ready for pickup.", Channel: models.ChannelSMS},
		Phone:        "09171234567",
	}
	require.NoError(t, svc.handleDelivery(context.Background(), jobs.Job{ID: "notif-1", Payload: payload}))

	require.Len(t, sms.messages, 1)
	assert.True(t, strings.HasPrefix(sms.messages[0], "LNHS Portal: "))
	assert.Equal(t, []string{"notif-1"}, repo.sent)
}

func TestFormatSMSTruncation(t *testing.T) {
	long := strings.Repeat("a", 200)
	formatted := FormatSMS(long)
	assert.Len(t, formatted, 140)
	assert.True(t, strings.HasSuffix(formatted, "..."))
	assert.True(t, strings.HasPrefix(formatted, "LNHS Portal: "))

	short := FormatSMS("ready")
	assert.Equal(t, "LNHS Portal: ready", short)
}

func TestFormatSMSTruncatesOnRuneBoundary(t *testing.T) {
	// A body of multi-byte runes must never be cut mid-sequence.
	formatted := FormatSMS(strings.Repeat("ñ", 120))
	assert.True(t, utf8.ValidString(formatted))
	assert.LessOrEqual(t, len(formatted), 140)
	assert.True(t, strings.HasSuffix(formatted, "..."))
}

func TestNotificationServiceMarkReadLenient(t *testing.T) {
	svc, _ := newNotificationFixture(nil, nil)
	// Unknown ids are a no-op, not an error.
	require.NoError(t, svc.MarkRead(context.Background(), "missing", "user-1"))
}

func TestNotificationServiceUnreadCount(t *testing.T) {
	svc, _ := newNotificationFixture(nil, nil)
	count, err := svc.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNotificationServiceCleanup(t *testing.T) {
	svc, repo := newNotificationFixture(nil, nil)
	repo.deleted = 7
	deleted, err := svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, deleted)
}
