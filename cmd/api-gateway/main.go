package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-enrollment-api/api/swagger"
	"github.com/noah-isme/academy-enrollment-api/internal/gateway"
	"github.com/noah-isme/academy-enrollment-api/internal/handler"
	internalmiddleware "github.com/noah-isme/academy-enrollment-api/internal/middleware"
	"github.com/noah-isme/academy-enrollment-api/internal/models"
	"github.com/noah-isme/academy-enrollment-api/internal/repository"
	"github.com/noah-isme/academy-enrollment-api/internal/service"
	"github.com/noah-isme/academy-enrollment-api/pkg/cache"
	"github.com/noah-isme/academy-enrollment-api/pkg/config"
	"github.com/noah-isme/academy-enrollment-api/pkg/database"
	"github.com/noah-isme/academy-enrollment-api/pkg/export"
	"github.com/noah-isme/academy-enrollment-api/pkg/jobs"
	"github.com/noah-isme/academy-enrollment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-enrollment-api/pkg/middleware/requestid"
	"github.com/noah-isme/academy-enrollment-api/pkg/storage"
)

// @title Academy Enrollment API
// @version 1.0.0
// @description Checkout, payment webhooks, enrollments and seat inventory
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Specials.CacheTTL, logr, cacheRepo.Enabled())

	outbox := jobs.NewQueue("outbox", jobs.QueueConfig{
		Workers:    cfg.Outbox.Workers,
		BufferSize: cfg.Outbox.BufferSize,
		MaxRetries: cfg.Outbox.MaxRetries,
		RetryDelay: cfg.Outbox.RetryDelay,
		Logger:     logr,
		Observer:   metricsSvc.RecordOutboxTask,
	})

	payments := gateway.NewPaymentClient(cfg.Payments)
	crm := gateway.NewCRMClient(cfg.CRM)
	if !payments.Configured() {
		logr.Warn("card provider not configured; checkout will answer 503")
	}
	if !crm.Configured() {
		logr.Warn("crm not configured; coupons stay local")
	}

	courseRepo := repository.NewCourseRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	specialRepo := repository.NewSpecialRepository(db)
	userRepo := repository.NewUserRepository(db)

	validate := validator.New()

	seats := service.NewSeatLedger(scheduleRepo, metricsSvc, logr)
	compensation := service.NewCompensationService(outbox, crm, seats, logr)
	outbox.Start(ctx)

	pricing := service.NewPricingService(specialRepo)
	codes := service.NewCodeGenerator(cfg.Receipts.Prefix)
	reconciler := service.NewReconciliationService(enrollmentRepo, courseRepo, scheduleRepo, seats, pricing, codes, compensation, metricsSvc, logr)

	signer := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)
	pdfExporter := export.NewPDFExporter()

	checkoutSvc := service.NewCheckoutService(courseRepo, pricing, payments, validate, logr)
	webhookSvc := service.NewWebhookService(service.WebhookConfig{
		SignatureKey:     cfg.Payments.WebhookSignatureKey,
		NotificationURL:  cfg.Payments.WebhookURL,
		RequireSignature: cfg.Payments.RequireSignature,
	}, reconciler, metricsSvc, logr)
	specialsSvc := service.NewSpecialsService(specialRepo, crm, compensation, cacheSvc, cfg.Specials.CacheTTL, validate, logr)
	zelleSvc := service.NewZelleService(reconciler, signer, cfg.APIPrefix+"/receipts", validate, logr)
	receiptSvc := service.NewReceiptService(enrollmentRepo, signer, pdfExporter, cfg.Receipts.Organization, cfg.Receipts.Instructions)
	adminSvc := service.NewEnrollmentAdminService(enrollmentRepo, reconciler, seats, compensation, export.NewCSVExporter(), pdfExporter, validate, logr)
	authSvc := service.NewAuthService(userRepo, enrollmentRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		StudentTokenExpiry: cfg.JWT.StudentExpiration,
		Issuer:             "academy-enrollment-api",
	})

	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc, zelleSvc)
	webhookHandler := handler.NewWebhookHandler(webhookSvc, logr)
	specialsHandler := handler.NewSpecialsHandler(specialsSvc)
	receiptHandler := handler.NewReceiptHandler(receiptSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(adminSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
		"postgres": db,
		"redis":    handler.PingFunc(cacheRepo.Ping),
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	cors := corsmiddleware.New(cfg.CORS.AllowedOrigins)
	api.OPTIONS("/*path", cors)

	webhooks := api.Group("/webhooks")
	webhooks.POST("/payments", webhookHandler.Payments)
	webhooks.POST("/crm", webhookHandler.CRM)

	public := api.Group("")
	public.Use(cors)
	public.POST("/checkout", checkoutHandler.Checkout)
	public.POST("/enrollments/zelle", checkoutHandler.Zelle)
	public.GET("/specials", specialsHandler.Public)
	public.GET("/receipts/:token", receiptHandler.Download)
	public.POST("/auth/login", authHandler.Login)
	public.POST("/portal/login", authHandler.StudentLogin)

	portal := public.Group("/portal")
	portal.Use(internalmiddleware.JWT(authSvc), internalmiddleware.RequireRoles(models.RoleStudent))
	portal.GET("/me", authHandler.Me)

	admin := public.Group("/admin")
	admin.Use(internalmiddleware.JWT(authSvc), internalmiddleware.Staff())
	admin.GET("/enrollments", enrollmentHandler.List)
	admin.GET("/enrollments/:id", enrollmentHandler.Get)
	admin.POST("/enrollments", internalmiddleware.Audit(logr, "enrollment.create"), enrollmentHandler.Create)
	admin.PUT("/enrollments/:id", internalmiddleware.Audit(logr, "enrollment.update"), enrollmentHandler.Update)
	admin.DELETE("/enrollments/:id", internalmiddleware.Audit(logr, "enrollment.delete"), enrollmentHandler.Delete)
	admin.POST("/enrollments/:id/attendance", internalmiddleware.Audit(logr, "enrollment.attendance"), enrollmentHandler.Attendance)
	admin.GET("/schedules/:id", enrollmentHandler.GetSchedule)
	admin.POST("/schedules/:id/reconcile", internalmiddleware.Audit(logr, "schedule.reconcile"), enrollmentHandler.ReconcileSchedule)
	admin.GET("/schedules/:id/roster", enrollmentHandler.Roster)
	admin.GET("/specials", specialsHandler.List)
	admin.POST("/specials", internalmiddleware.Audit(logr, "special.create"), specialsHandler.Create)
	admin.DELETE("/specials/:code", internalmiddleware.Audit(logr, "special.deactivate"), specialsHandler.Deactivate)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	outbox.Stop()
}
