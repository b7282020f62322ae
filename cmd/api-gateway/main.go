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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/reside-labs/societygate-api/api/swagger"
	"github.com/reside-labs/societygate-api/internal/handler"
	"github.com/reside-labs/societygate-api/internal/middleware"
	"github.com/reside-labs/societygate-api/internal/models"
	"github.com/reside-labs/societygate-api/internal/repository"
	"github.com/reside-labs/societygate-api/internal/service"
	"github.com/reside-labs/societygate-api/pkg/cache"
	"github.com/reside-labs/societygate-api/pkg/config"
	"github.com/reside-labs/societygate-api/pkg/database"
	"github.com/reside-labs/societygate-api/pkg/jobs"
	"github.com/reside-labs/societygate-api/pkg/logger"
	corsmiddleware "github.com/reside-labs/societygate-api/pkg/middleware/cors"
	reqidmiddleware "github.com/reside-labs/societygate-api/pkg/middleware/requestid"
)

// @title SocietyGate API
// @version 1.0.0
// @description Residential society gate and visitor management
// @BasePath /api/v1
// @schemes http
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	societyRepo := repository.NewSocietyRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	visitorRepo := repository.NewVisitorRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	otpStore := repository.NewOTPStore(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.QueueSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	})
	notificationSvc.SetMetrics(metricsSvc)
	if cfg.Notifications.Enabled {
		notificationSvc.Start(ctx)
		defer notificationSvc.Stop()
	}

	authSvc := service.NewAuthService(userRepo, otpStore, nil, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "societygate-api",
		OTPTTL:             cfg.OTP.LoginTTL,
		OTPResendWindow:    cfg.OTP.ResendWindow,
	})

	visitorSvc := service.NewVisitorService(visitorRepo, unitRepo, userRepo, userRepo, logr,
		service.WithVisitorNotifier(notificationSvc),
		service.WithVisitorMetrics(metricsSvc),
		service.WithOTPTTL(cfg.OTP.VisitorTTL),
		service.WithActionTimeout(cfg.Visitors.ActionTimeout),
	)

	announcementSvc := service.NewAnnouncementService(announcementRepo, notificationSvc, userRepo, logr)
	issueSvc := service.NewIssueService(issueRepo, userRepo, notificationSvc, logr)

	societySvc := service.NewSocietyService(societyRepo, unitRepo, visitorRepo, issueRepo, cacheRepo, logr, cfg.Dashboard.CacheTTL)
	societySvc.SetMetrics(metricsSvc)

	exportSvc := service.NewExportService(visitorRepo, unitRepo, logr, cfg.Visitors.RegisterLimit)

	r := buildRouter(cfg, logr, routerDeps{
		metrics:       metricsSvc,
		auth:          authSvc,
		visitors:      visitorSvc,
		society:       societySvc,
		issues:        issueSvc,
		announcements: announcementSvc,
		notifications: notificationSvc,
		exports:       exportSvc,
		audit:         userRepo,
	})

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
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type routerDeps struct {
	metrics       *service.MetricsService
	auth          *service.AuthService
	visitors      *service.VisitorService
	society       *service.SocietyService
	issues        *service.IssueService
	announcements *service.AnnouncementService
	notifications *service.NotificationService
	exports       *service.ExportService
	audit         *repository.UserRepository
}

func buildRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(deps.auth)
	visitorHandler := handler.NewVisitorHandler(deps.visitors)
	societyHandler := handler.NewSocietyHandler(deps.society)
	issueHandler := handler.NewIssueHandler(deps.issues)
	announcementHandler := handler.NewAnnouncementHandler(deps.announcements)
	notificationHandler := handler.NewNotificationHandler(deps.notifications)
	exportHandler := handler.NewExportHandler(deps.exports)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/otp/request", authHandler.RequestOTP)
	auth.POST("/otp/verify", authHandler.VerifyOTP)
	auth.POST("/login", authHandler.StaffLogin)
	auth.POST("/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.auth))

	authed.POST("/auth/logout", authHandler.Logout)

	visitors := authed.Group("/visitors")
	visitors.GET("", visitorHandler.List)
	visitors.GET("/:id", visitorHandler.Get)
	visitors.POST("/pre-approve", middleware.RequireRoles(models.RoleResident), visitorHandler.PreApprove)
	visitors.POST("/:id/approve", middleware.RequireRoles(models.RoleResident), visitorHandler.Approve)
	visitors.POST("/:id/deny", middleware.RequireRoles(models.RoleResident), visitorHandler.Deny)
	visitors.POST("/:id/cancel", middleware.RequireRoles(models.RoleResident), visitorHandler.Cancel)
	visitors.POST("/request", middleware.RequireRoles(models.RoleGuard, models.RoleManager), visitorHandler.Request)
	visitors.POST("/:id/check-in", middleware.RequireRoles(models.RoleGuard, models.RoleManager), visitorHandler.CheckIn)
	visitors.POST("/:id/check-out", middleware.RequireRoles(models.RoleGuard, models.RoleManager), visitorHandler.CheckOut)
	visitors.POST("/check-in-by-code", middleware.RequireRoles(models.RoleGuard, models.RoleManager), visitorHandler.CheckInByOTP)
	visitors.POST("/walk-in", middleware.RequireRoles(models.RoleGuard, models.RoleManager), visitorHandler.WalkIn)

	society := authed.Group("/society")
	society.GET("", societyHandler.Get)
	society.GET("/blocks", societyHandler.Blocks)
	society.GET("/blocks/:id/units", societyHandler.Units)
	if cfg.Dashboard.Enabled {
		society.GET("/dashboard", middleware.RequireRoles(models.RoleManager), societyHandler.Dashboard)
	}

	issues := authed.Group("/issues")
	issues.GET("", issueHandler.List)
	issues.POST("", middleware.RequireRoles(models.RoleResident), issueHandler.Create)
	issues.PATCH("/:id/status", middleware.RequireRoles(models.RoleManager), issueHandler.UpdateStatus)

	announcements := authed.Group("/announcements")
	announcements.GET("", announcementHandler.List)
	announcements.POST("", middleware.RequireRoles(models.RoleManager), announcementHandler.Create)
	announcements.DELETE("/:id", middleware.RequireRoles(models.RoleManager), announcementHandler.Delete)

	notifications := authed.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.POST("/:id/read", notificationHandler.MarkRead)

	if cfg.Exports.Enabled {
		reports := authed.Group("/reports")
		reports.GET("/gate-register",
			middleware.RequireRoles(models.RoleManager),
			middleware.Audit(deps.audit, "EXPORT", "gate_register"),
			exportHandler.GateRegister)
	}

	return r
}
