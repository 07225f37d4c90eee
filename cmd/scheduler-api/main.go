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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/roadready/coachplan-api/api/swagger"
	"github.com/roadready/coachplan-api/internal/handler"
	"github.com/roadready/coachplan-api/internal/middleware"
	"github.com/roadready/coachplan-api/internal/models"
	"github.com/roadready/coachplan-api/internal/repository"
	"github.com/roadready/coachplan-api/internal/service"
	"github.com/roadready/coachplan-api/pkg/cache"
	"github.com/roadready/coachplan-api/pkg/config"
	"github.com/roadready/coachplan-api/pkg/database"
	"github.com/roadready/coachplan-api/pkg/jobs"
	"github.com/roadready/coachplan-api/pkg/logger"
	corsmiddleware "github.com/roadready/coachplan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/roadready/coachplan-api/pkg/middleware/requestid"
)

// @title CoachPlan API
// @version 1.0.0
// @description Coach availability, session scheduling and conflict detection service
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()
	metrics := service.NewMetricsService()

	availabilityRepo := repository.NewAvailabilityRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	coachRepo := repository.NewCoachRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)

	calendarSvc := service.NewCalendarService(
		availabilityRepo,
		sessionRepo,
		redisClient,
		metrics,
		logr,
		cfg.Calendar.CacheEnabled,
		cfg.Calendar.CacheTTL,
	)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, calendarSvc, validate, logr)
	conflictSvc := service.NewConflictService(sessionRepo, availabilityRepo, metrics, logr)
	notifier := service.NewNotifierService(service.NewLogDispatcher(logr), jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	sessionSvc := service.NewSessionService(service.SessionServiceParams{
		Store:              sessionRepo,
		Attendance:         attendanceRepo,
		Coaches:            coachRepo,
		Classrooms:         classroomRepo,
		Conflicts:          conflictSvc,
		Notifier:           notifier,
		Calendars:          calendarSvc,
		Metrics:            metrics,
		Validator:          validate,
		Logger:             logr,
		BlockHardConflicts: cfg.Conflicts.BlockHardConflicts,
	})
	exportSvc := service.NewExportService(sessionSvc, logr)
	authSvc := service.NewAuthService(cfg.JWT.Secret)

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc, exportSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier.Start(ctx)
	defer notifier.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		coaches := api.Group("/coaches/:id")
		coaches.GET("/availability", availabilityHandler.ListMonth)
		coaches.POST("/availability", middleware.RBAC(string(models.RoleAdmin), "SELF"), availabilityHandler.CreateRange)
		coaches.DELETE("/availability/:slotId", middleware.RBAC(string(models.RoleAdmin), "SELF"), availabilityHandler.Delete)
		coaches.GET("/calendar", calendarHandler.MonthView)
		coaches.GET("/calendar/export", calendarHandler.ExportMonth)

		sessions := api.Group("/sessions")
		sessions.GET("", sessionHandler.List)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleCoach), sessionHandler.Create)
		sessions.POST("/range", middleware.RequireRoles(models.RoleAdmin, models.RoleCoach), sessionHandler.CreateRange)
		sessions.POST("/conflicts", middleware.RequireRoles(models.RoleAdmin, models.RoleCoach), sessionHandler.CheckConflicts)
		sessions.POST("/:id/open", middleware.RequireRoles(models.RoleAdmin, models.RoleCoach), sessionHandler.Open)
		sessions.POST("/:id/close", middleware.RequireRoles(models.RoleAdmin, models.RoleCoach), sessionHandler.Close)
		sessions.POST("/:id/cancel", middleware.RequireRoles(models.RoleAdmin, models.RoleCoach), sessionHandler.Cancel)
		sessions.POST("/:id/attendance", sessionHandler.SignAttendance)
		sessions.GET("/:id/attendance", middleware.RequireRoles(models.RoleAdmin, models.RoleCoach), sessionHandler.ListAttendance)
		sessions.GET("/:id/attendance/export", middleware.RequireRoles(models.RoleAdmin, models.RoleCoach), sessionHandler.ExportAttendance)
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

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
