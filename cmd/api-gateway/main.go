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

	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/router"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/events"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

// @title Department Timetable API
// @version 1.0.0
// @description Books faculty, classes, rooms and subjects into weekly schedules without double-booking.
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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, scope cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher, err := events.Connect(cfg.Events, logr)
	if err != nil {
		logr.Warn("nats unavailable, schedule events disabled", zap.Error(err))
		publisher = events.NopPublisher{}
	}
	defer publisher.Close() //nolint:errcheck

	location, err := time.LoadLocation(cfg.Export.Timezone)
	if err != nil {
		logr.Warn("unknown timetable timezone, using UTC", zap.String("timezone", cfg.Export.Timezone), zap.Error(err))
		location = time.UTC
	}

	userRepo := repository.NewUserRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classRepo := repository.NewClassRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	validate := service.NewValidator()
	metrics := service.NewMetricsService()
	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scope.CacheTTL, logr, redisClient != nil)
	scopeSvc := service.NewScopeService(userRepo, cacheSvc, cfg.Scope.CacheTTL, logr)
	synchronizer := service.NewAssignmentSynchronizer(assignmentRepo, logr)

	conflictSvc := service.NewConflictService(scheduleRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, periodRepo, publisher, metrics, validate, logr)
	periodSvc := service.NewPeriodService(periodRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, synchronizer, validate, logr)
	teacherSvc := service.NewTeacherService(userRepo, synchronizer, scopeSvc, validate, logr)
	timetableSvc := service.NewTimetableService(scheduleRepo, periodRepo, service.TimetableConfig{Days: cfg.Export.Days, Location: location}, logr)

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	engine := router.Setup(cfg, logr, router.Dependencies{
		Tokens:   authSvc,
		Scope:    scopeSvc,
		Requests: metrics,
	}, router.Handlers{
		Conflict:  handler.NewConflictHandler(conflictSvc),
		Schedule:  handler.NewScheduleHandler(scheduleSvc),
		Period:    handler.NewPeriodHandler(periodSvc),
		Class:     handler.NewClassHandler(classSvc),
		Subject:   handler.NewSubjectHandler(subjectSvc),
		Teacher:   handler.NewTeacherHandler(teacherSvc),
		Timetable: handler.NewTimetableHandler(timetableSvc),
		Scope:     handler.NewScopeHandler(scopeSvc),
		Metrics:   handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
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
}
