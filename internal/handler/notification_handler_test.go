package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnhs-portal/docrequest-api/internal/middleware"
	"github.com/lnhs-portal/docrequest-api/internal/models"
	"github.com/lnhs-portal/docrequest-api/internal/service"
)

type fakeNotificationRepo struct {
	notifications []models.Notification
	read          []string
	readAllFor    string
	lastFilter    models.NotificationFilter
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeNotificationRepo) MarkSent(context.Context, string) error { return nil }

func (f *fakeNotificationRepo) MarkFailed(context.Context, string, string) error { return nil }

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id, _ string) error {
	f.read = append(f.read, id)
	return nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	f.readAllFor = userID
	return nil
}

func (f *fakeNotificationRepo) List(_ context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	f.lastFilter = filter
	var out []models.Notification
	for _, n := range f.notifications {
		if n.UserID == filter.UserID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakeUserLookup struct{}

func (fakeUserLookup) FindByID(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Email: "juan@example.com"}, nil
}

func newNotificationRouter(repo *fakeNotificationRepo, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewNotificationService(repo, fakeUserLookup{}, nil, nil, nil, service.NotificationConfig{})
	h := NewNotificationHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	router.GET("/notifications", h.List)
	router.GET("/notifications/unread-count", h.UnreadCount)
	router.PATCH("/notifications/:id/read", h.MarkRead)
	router.POST("/notifications/read-all", h.MarkAllRead)
	return router
}

func TestNotificationHandlerListOwnOnly(t *testing.T) {
	repo := &fakeNotificationRepo{notifications: []models.Notification{
		{ID: "n-1", UserID: "user-1", Title: "Request Received"},
		{ID: "n-2", UserID: "user-2", Title: "Request Approved"},
	}}
	router := newNotificationRouter(repo, studentClaims("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/notifications?unread=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", repo.lastFilter.UserID)
	assert.True(t, repo.lastFilter.UnreadOnly)

	var envelope struct {
		Data []models.Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "n-1", envelope.Data[0].ID)
}

func TestNotificationHandlerUnreadCount(t *testing.T) {
	now := time.Now()
	repo := &fakeNotificationRepo{notifications: []models.Notification{
		{ID: "n-1", UserID: "user-1"},
		{ID: "n-2", UserID: "user-1", ReadAt: &now},
		{ID: "n-3", UserID: "user-1"},
	}}
	router := newNotificationRouter(repo, studentClaims("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data["unread"])
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	repo := &fakeNotificationRepo{}
	router := newNotificationRouter(repo, studentClaims("user-1"))

	req := httptest.NewRequest(http.MethodPatch, "/notifications/n-9/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"n-9"}, repo.read)
}

func TestNotificationHandlerMarkAllRead(t *testing.T) {
	repo := &fakeNotificationRepo{}
	router := newNotificationRouter(repo, studentClaims("user-1"))

	req := httptest.NewRequest(http.MethodPost, "/notifications/read-all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-1", repo.readAllFor)
}

func TestNotificationHandlerRequiresAuth(t *testing.T) {
	router := newNotificationRouter(&fakeNotificationRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
