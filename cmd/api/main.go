package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lnhs-portal/docrequest-api/internal/handler"
	"github.com/lnhs-portal/docrequest-api/internal/repository"
	"github.com/lnhs-portal/docrequest-api/internal/service"
	"github.com/lnhs-portal/docrequest-api/pkg/cache"
	"github.com/lnhs-portal/docrequest-api/pkg/config"
	"github.com/lnhs-portal/docrequest-api/pkg/database"
	"github.com/lnhs-portal/docrequest-api/pkg/logger"
	"github.com/lnhs-portal/docrequest-api/pkg/mail"
	"github.com/lnhs-portal/docrequest-api/pkg/sms"
	"github.com/lnhs-portal/docrequest-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Reports.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
			redisClient = nil
		}
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("upload storage init failed", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	docTypeRepo := repository.NewDocumentTypeRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	reportRepo := repository.NewReportRepository(db)

	metrics := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, activityRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lnhs-portal",
		Audience:           []string{"lnhs-portal"},
	})
	userService := service.NewUserService(userRepo, activityRepo, validate, logr)
	docTypeService := service.NewDocumentTypeService(docTypeRepo, activityRepo, validate, logr)

	var mailer service.Mailer
	if cfg.Email.SendgridAPIKey != "" {
		mailer = mail.NewSendgridMailer(cfg.Email)
	}
	var smsSender service.SMSSender
	if cfg.SMS.APIKey != "" {
		smsSender = sms.NewSemaphoreGateway(cfg.SMS)
	}

	notificationService := service.NewNotificationService(notificationRepo, userRepo, mailer, smsSender, logr, service.NotificationConfig{
		QueueWorkers:  cfg.Notifications.WorkerConcurrency,
		MaxAttempts:   3,
		RetryDelay:    5 * time.Second,
		RetentionDays: cfg.Notifications.RetentionDays,
	}).WithMetrics(metrics)

	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	requestService := service.NewRequestService(requestRepo, docTypeRepo, notificationService, activityRepo, uploadStore, validate, logr, service.RequestServiceConfig{
		TransitionMode:    cfg.Requests.TransitionMode,
		MaxQuantity:       cfg.Requests.MaxQuantity,
		MaxFileSizeBytes:  cfg.Uploads.MaxFileSizeBytes,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
		SchoolName:        "LNHS Registrar",
	}).WithMetrics(metrics).WithSigner(signer)

	reportService := service.NewReportService(reportRepo, docTypeRepo, activityRepo, redisClient, cfg.Reports.CacheTTL, logr)
	requestService = requestService.WithDashboard(reportService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService.Start(ctx)
	defer notificationService.Stop()

	go runRetentionSweep(ctx, notificationService, cfg.Notifications.CleanupInterval, logr)

	router := handler.NewRouter(handler.RouterDeps{
		Config:        cfg,
		Logger:        logr,
		Auth:          authService,
		Users:         userService,
		DocumentTypes: docTypeService,
		Requests:      requestService,
		Notifications: notificationService,
		Reports:       reportService,
		Metrics:       metrics,
		Activity:      activityRepo,
		FileHandler:   handler.NewRequestHandler(requestService, uploadStore),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// runRetentionSweep deletes old notifications on a fixed interval until
// the context is cancelled.
func runRetentionSweep(ctx context.Context, svc *service.NotificationService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := svc.Cleanup(ctx)
			if err != nil {
				logr.Sugar().Warnw("notification cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				logr.Sugar().Infow("notification cleanup", "deleted", deleted)
			}
		}
	}
}
