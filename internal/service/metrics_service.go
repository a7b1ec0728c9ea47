package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService registers Prometheus collectors for the API and the
// document request workflow.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	submissions   prometheus.Counter
	statusChanges *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_requests_submitted_total",
		Help: "Total number of document requests submitted",
	})

	statusChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "document_request_status_changes_total",
		Help: "Total number of status transitions by target status",
	}, []string{"status"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_delivered_total",
		Help: "Notification delivery outcomes by channel and result",
	}, []string{"channel", "result"})

	registry.MustRegister(requestDuration, requestTotal, submissions, statusChanges, notifications)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		submissions:     submissions,
		statusChanges:   statusChanges,
		notifications:   notifications,
	}
}

// Handler exposes the scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// GinMiddleware records per-route latency and volume.
func (m *MetricsService) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// RecordSubmission counts a new document request.
func (m *MetricsService) RecordSubmission() {
	m.submissions.Inc()
}

// RecordStatusChange counts a workflow transition.
func (m *MetricsService) RecordStatusChange(status string) {
	m.statusChanges.WithLabelValues(status).Inc()
}

// RecordNotification counts a delivery outcome.
func (m *MetricsService) RecordNotification(channel, result string) {
	m.notifications.WithLabelValues(channel, result).Inc()
}
