package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/civicnet/civicconnect-api/api/swagger"
	"github.com/civicnet/civicconnect-api/internal/handler"
	"github.com/civicnet/civicconnect-api/internal/middleware"
	"github.com/civicnet/civicconnect-api/internal/models"
	"github.com/civicnet/civicconnect-api/internal/repository"
	"github.com/civicnet/civicconnect-api/internal/service"
	"github.com/civicnet/civicconnect-api/pkg/cache"
	"github.com/civicnet/civicconnect-api/pkg/config"
	"github.com/civicnet/civicconnect-api/pkg/database"
	"github.com/civicnet/civicconnect-api/pkg/jobs"
	"github.com/civicnet/civicconnect-api/pkg/logger"
	corsmiddleware "github.com/civicnet/civicconnect-api/pkg/middleware/cors"
	reqidmiddleware "github.com/civicnet/civicconnect-api/pkg/middleware/requestid"
)

// @title CivicConnect API
// @version 1.0.0
// @description Civic issue reporting platform with district administration
// @BasePath /api
// @schemes http https

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and otp storage degraded", "error", err)
		redisClient = nil
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	districtRepo := repository.NewDistrictRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	superAdminRepo := repository.NewSuperAdminRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	leaderboardRepo := repository.NewLeaderboardRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	sosRepo := repository.NewSOSRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Leaderboard.CacheTTL, logr, cfg.Leaderboard.CacheEnabled && redisClient != nil)

	geocodeService := service.NewGeocodeService(nil, logr, service.GeocodeConfig{
		BaseURL: cfg.Geocode.BaseURL,
		APIKey:  cfg.Geocode.APIKey,
		Timeout: cfg.Geocode.Timeout,
	})
	otpService := service.NewOTPService(cacheRepo, logr, service.OTPConfig{
		TTL:         cfg.OTP.TTL,
		MaxAttempts: cfg.OTP.MaxAttempts,
	})
	mailerService := service.NewMailerService(logr, service.MailerConfig{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	})

	notificationService := service.NewNotificationService(notificationRepo, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
	})

	authService := service.NewAuthService(userRepo, superAdminRepo, districtRepo, applicationRepo,
		geocodeService, otpService, mailerService, notificationService, nil, logr, service.AuthConfig{
			TokenSecret: cfg.JWT.Secret,
			TokenExpiry: cfg.JWT.Expiration,
			Issuer:      cfg.JWT.Issuer,
		})
	applicationService := service.NewApplicationService(applicationRepo, districtRepo, mailerService, logr)
	districtService := service.NewDistrictService(districtRepo, issueRepo, geocodeService, logr)
	userService := service.NewUserService(userRepo, districtRepo, notificationService, nil, logr)
	superAdminService := service.NewSuperAdminService(superAdminRepo, logr)
	issueService := service.NewIssueService(issueRepo, userRepo, leaderboardRepo, notificationService, nil, logr)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo, cacheService, logr, service.LeaderboardConfig{
		CacheTTL: cfg.Leaderboard.CacheTTL,
	})
	sosService := service.NewSOSService(sosRepo, districtRepo, nil, logr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService.Start(rootCtx)
	defer notificationService.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	districtHandler := handler.NewDistrictHandler(districtService)
	superAdminHandler := handler.NewSuperAdminHandler(superAdminService, applicationService)
	issueHandler := handler.NewIssueHandler(issueService)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	sosHandler := handler.NewSOSHandler(sosService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/district-admin/login", authHandler.DistrictAdminLogin)
		auth.POST("/super-admin/login", authHandler.SuperAdminLogin)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
	}

	users := api.Group("/users", middleware.JWT(authService))
	{
		users.GET("/me", userHandler.Me)
		users.PUT("/me", userHandler.UpdateProfile)
		users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), userHandler.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), "SELF"), userHandler.Get)
		users.GET("/:id/stats", middleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), "SELF"), userHandler.Stats)
		users.PUT("/:id/moderate", middleware.RequireRoles(models.RoleSuperAdmin),
			middleware.Audit(logr, "moderate_admin", "user"), userHandler.ModerateAdmin)
		users.PUT("/:id/active", middleware.RequireRoles(models.RoleSuperAdmin), userHandler.SetActive)
		users.DELETE("/:id", middleware.RBAC(string(models.RoleSuperAdmin), "SELF"), userHandler.Delete)
	}

	districts := api.Group("/districts")
	{
		districts.GET("", districtHandler.List)
		districts.GET("/resolve", districtHandler.Resolve)
		districts.GET("/resolve/by-coordinates", districtHandler.Resolve)
		districts.POST("/admin/login", authHandler.DistrictAdminLogin)
		districts.GET("/:id", districtHandler.Get)
		districts.GET("/:id/stats", districtHandler.Stats)

		protected := districts.Group("", middleware.JWT(authService))
		protected.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), districtHandler.Create)
		protected.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), districtHandler.Update)
		protected.PUT("/:id/verify", middleware.RequireRoles(models.RoleSuperAdmin), districtHandler.Verify)
		protected.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin), districtHandler.Delete)
		protected.GET("/:id/report", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), districtHandler.IssueReport)
	}

	issues := api.Group("/issues")
	{
		issues.GET("", issueHandler.List)
		issues.GET("/stats", issueHandler.Stats)
		issues.GET("/:id", issueHandler.Get)

		protected := issues.Group("", middleware.JWT(authService))
		protected.POST("", issueHandler.Create)
		protected.PUT("/:id/status", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), issueHandler.UpdateStatus)
		protected.POST("/:id/upvote", issueHandler.Upvote)
		protected.DELETE("/:id", issueHandler.Delete)
	}

	leaderboard := api.Group("/leaderboard")
	{
		leaderboard.GET("", leaderboardHandler.Top)
		leaderboard.GET("/me", middleware.JWT(authService), leaderboardHandler.Rank)
		leaderboard.POST("/award", middleware.JWT(authService),
			middleware.RequireRoles(models.RoleSuperAdmin), leaderboardHandler.Award)
		leaderboard.POST("/recompute", middleware.JWT(authService),
			middleware.RequireRoles(models.RoleSuperAdmin), leaderboardHandler.Recompute)
	}

	notifications := api.Group("/notifications", middleware.JWT(authService))
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PUT("/read-all", notificationHandler.MarkAllRead)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.DELETE("/:id", notificationHandler.Delete)
	}

	sos := api.Group("/sos")
	{
		sos.GET("", sosHandler.List)
		sos.GET("/:id", sosHandler.Get)

		protected := sos.Group("", middleware.JWT(authService))
		protected.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), sosHandler.Create)
		protected.PUT("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), sosHandler.Update)
		protected.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), sosHandler.Delete)
	}

	superAdmin := api.Group("/super-admin")
	{
		superAdmin.GET("/exists", superAdminHandler.Exists)

		protected := superAdmin.Group("", middleware.JWT(authService), middleware.RequireRoles(models.RoleSuperAdmin))
		protected.GET("/profile", superAdminHandler.Profile)
		protected.PUT("/profile", superAdminHandler.UpdateProfile)
		protected.GET("/metrics", metricsHandler.Snapshot)
		protected.GET("/applications", superAdminHandler.ListApplications)
		protected.GET("/applications/:id", superAdminHandler.GetApplication)
		protected.POST("/applications/:id/approve",
			middleware.Audit(logr, "approve_application", "application"), superAdminHandler.ApproveApplication)
		protected.POST("/applications/:id/reject",
			middleware.Audit(logr, "reject_application", "application"), superAdminHandler.RejectApplication)
	}

	// Paths the dashboard frontend still calls under /superadmin.
	superAdminCompat := api.Group("/superadmin")
	{
		superAdminCompat.POST("/create", authHandler.SuperAdminSignup)
		superAdminCompat.GET("/check", superAdminHandler.Exists)
		superAdminCompat.POST("/login", authHandler.SuperAdminLogin)

		protected := superAdminCompat.Group("", middleware.JWT(authService), middleware.RequireRoles(models.RoleSuperAdmin))
		protected.GET("/district-applications", superAdminHandler.ListApplications)
		protected.PUT("/district-applications/:id/decision",
			middleware.Audit(logr, "decide_application", "application"), superAdminHandler.DecideApplication)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
