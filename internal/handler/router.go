package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lnhs-portal/docrequest-api/internal/middleware"
	"github.com/lnhs-portal/docrequest-api/internal/repository"
	"github.com/lnhs-portal/docrequest-api/internal/service"
	"github.com/lnhs-portal/docrequest-api/pkg/config"
	"github.com/lnhs-portal/docrequest-api/pkg/logger"
	corsmiddleware "github.com/lnhs-portal/docrequest-api/pkg/middleware/cors"
	reqidmiddleware "github.com/lnhs-portal/docrequest-api/pkg/middleware/requestid"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Config        *config.Config
	Logger        *zap.Logger
	Auth          *service.AuthService
	Users         *service.UserService
	DocumentTypes *service.DocumentTypeService
	Requests      *service.RequestService
	Notifications *service.NotificationService
	Reports       *service.ReportService
	Metrics       *service.MetricsService
	Activity      *repository.ActivityRepository
	FileHandler   *RequestHandler
}

// NewRouter assembles the gin engine with every route group mounted
// under the configured API prefix.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.GinMiddleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	authHandler := NewAuthHandler(deps.Auth)
	userHandler := NewUserHandler(deps.Users)
	docTypeHandler := NewDocumentTypeHandler(deps.DocumentTypes)
	requestHandler := deps.FileHandler
	notificationHandler := NewNotificationHandler(deps.Notifications)
	reportHandler := NewReportHandler(deps.Reports)

	api := r.Group(deps.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Signed token is the authorization; no JWT on this one.
	api.GET("/downloads", requestHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.Auth))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/change-password", authHandler.ChangePassword)

		authed.GET("/me", userHandler.Me)
		authed.PUT("/me", userHandler.UpdateMe)

		authed.GET("/document-types", docTypeHandler.List)
		authed.GET("/document-types/:id", docTypeHandler.Get)

		authed.POST("/requests", requestHandler.Submit)
		authed.GET("/requests", requestHandler.List)
		authed.GET("/requests/:id", requestHandler.Get)
		authed.GET("/requests/:id/history", requestHandler.History)
		authed.GET("/requests/:id/files", requestHandler.Files)
		authed.GET("/requests/:id/claim-slip", requestHandler.ClaimSlip)
		authed.GET("/files/:fileId", requestHandler.DownloadFile)
		authed.GET("/files/:fileId/link", requestHandler.FileLink)

		authed.GET("/notifications", notificationHandler.List)
		authed.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		authed.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
		authed.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	staff := api.Group("")
	staff.Use(middleware.JWT(deps.Auth), middleware.RequireStaff())
	{
		staff.PATCH("/requests/:id/status",
			middleware.Audit(deps.Activity, "request_status_updated"), requestHandler.UpdateStatus)
		staff.PATCH("/requests/:id/payment",
			middleware.Audit(deps.Activity, "request_payment_updated"), requestHandler.UpdatePayment)

		staff.GET("/reports/summary", reportHandler.Summary)
		staff.GET("/reports/export/:type", reportHandler.Export)
	}

	admin := api.Group("")
	admin.Use(middleware.JWT(deps.Auth), middleware.RequireAdmin())
	{
		admin.GET("/users", userHandler.List)
		admin.POST("/users", userHandler.Create)
		admin.GET("/users/:id", userHandler.Get)
		admin.PUT("/users/:id", userHandler.Update)
		admin.DELETE("/users/:id", userHandler.Deactivate)

		admin.POST("/document-types",
			middleware.Audit(deps.Activity, "document_type_created"), docTypeHandler.Create)
		admin.PUT("/document-types/:id",
			middleware.Audit(deps.Activity, "document_type_updated"), docTypeHandler.Update)
		admin.DELETE("/document-types/:id",
			middleware.Audit(deps.Activity, "document_type_deleted"), docTypeHandler.Delete)
	}

	return r
}
