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

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/lock"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

// @title Timetable API
// @version 1.0.0
// @description Timetable generation and emergency rescheduling service.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	settings, err := service.TimetableSettingsFromConfig(cfg)
	if err != nil {
		return err
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			return err
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	checks := map[string]handler.Pinger{"postgres": db}

	var (
		cacheSvc    *service.CacheService
		notifier    *service.NotificationService
		redisClient *repository.CacheRepository
	)
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache and notifications", zap.Error(err))
	} else {
		redisClient = repository.NewCacheRepository(client, logr)
		defer redisClient.Close() //nolint:errcheck
		checks["redis"] = handler.PingFunc(redisClient.Ping)
		cacheSvc = service.NewCacheService(redisClient, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
		notifier = service.NewNotificationService(redisClient, service.NotificationConfig{
			Enabled:    cfg.Notifications.Enabled,
			Channel:    cfg.Notifications.Channel,
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.Retries,
			RetryDelay: time.Second,
		}, logr)
		notifier.Start(ctx)
		defer notifier.Stop()
	}

	entryRepo := repository.NewTimetableEntryRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	poolRepo := repository.NewSubjectFacultyRepository(db)
	syllabusRepo := repository.NewSyllabusRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		TokenTTL: cfg.JWT.TokenTTL,
	})
	timetableSvc := service.NewTimetableService(service.TimetableServiceDeps{
		Entries:    entryRepo,
		Subjects:   subjectRepo,
		Classrooms: classroomRepo,
		Pools:      poolRepo,
		Coverage:   syllabusRepo,
		Profiles:   profileRepo,
		Absences:   leaveRepo,
		Tx:         db,
		Locker:     lock.NewRunLocker(),
		Cache:      cacheSvc,
		Notifier:   notifier,
		Metrics:    metrics,
		Validator:  validate,
		Logger:     logr,
	}, settings)
	exportSvc := service.NewExportService(entryRepo, subjectRepo, classroomRepo, facultyRepo, validate, logr)
	leaveSvc := service.NewLeaveService(leaveRepo, facultyRepo, timetableSvc, db, notifier, validate, logr)

	if cfg.Reschedule.RetryEnabled {
		sweeper := service.NewRescheduleSweeper(leaveSvc, cfg.Reschedule.RetrySpec, time.Minute, logr)
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("start reschedule sweeper: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			sweeper.Stop(stopCtx)
		}()
	}

	timetableHandler := handler.NewTimetableHandler(timetableSvc, exportSvc)
	leaveHandler := handler.NewLeaveHandler(leaveSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)
	anyRole := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))
	{
		tt := api.Group("/timetable")
		tt.POST("/generate", adminOnly, timetableHandler.Generate)
		tt.GET("/entries", anyRole, timetableHandler.Entries)
		tt.GET("/entries/pending-review", adminOnly, timetableHandler.PendingReview)
		tt.GET("/export", anyRole, timetableHandler.Export)

		leaves := api.Group("/leaves")
		leaves.POST("", anyRole, leaveHandler.Submit)
		leaves.GET("", anyRole, leaveHandler.List)
		leaves.POST("/:id/review", adminOnly, leaveHandler.Review)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
