package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Conflict  *handler.ConflictHandler
	Schedule  *handler.ScheduleHandler
	Period    *handler.PeriodHandler
	Class     *handler.ClassHandler
	Subject   *handler.SubjectHandler
	Teacher   *handler.TeacherHandler
	Timetable *handler.TimetableHandler
	Scope     *handler.ScopeHandler
	Metrics   *handler.MetricsHandler
}

// Dependencies are the cross-cutting collaborators of the middleware chain.
type Dependencies struct {
	Tokens   middleware.TokenValidator
	Scope    middleware.ScopeResolver
	Requests middleware.RequestObserver
}

// Setup builds the engine with the public endpoints at the root and the department-scoped
// API under cfg.APIPrefix.
func Setup(cfg *config.Config, logr *zap.Logger, deps Dependencies, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Requests))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.JWT(deps.Tokens), middleware.Scope(deps.Scope))

	readers := middleware.RequireRoles(models.RoleAdmin, models.RoleDean, models.RoleFaculty)
	managers := middleware.RequireRoles(models.RoleAdmin, models.RoleDean)

	api.GET("/me", readers, h.Scope.Me)
	api.POST("/check-conflict", managers, h.Conflict.Check)

	schedules := api.Group("/schedules")
	schedules.GET("", readers, h.Schedule.List)
	schedules.GET("/:id", readers, h.Schedule.Get)
	schedules.POST("", managers, h.Schedule.Create)
	schedules.PUT("/:id", managers, h.Schedule.Update)
	schedules.DELETE("/:id", managers, h.Schedule.Delete)

	timetable := api.Group("/timetable", readers)
	timetable.GET("", h.Timetable.Grid)
	timetable.GET("/export", h.Timetable.Export)

	periods := api.Group("/periods", managers)
	periods.GET("", h.Period.List)
	periods.GET("/next-number", h.Period.NextNumber)
	periods.GET("/:id", h.Period.Get)
	periods.POST("", h.Period.Create)
	periods.PUT("/:id", h.Period.Update)
	periods.DELETE("/:id", h.Period.Delete)

	classes := api.Group("/classes", managers)
	classes.GET("", h.Class.List)
	classes.GET("/:id", h.Class.Get)
	classes.POST("", h.Class.Create)
	classes.PUT("/:id", h.Class.Update)
	classes.DELETE("/:id", h.Class.Delete)
	classes.GET("/:id/teachers", h.Class.Teachers)
	classes.PUT("/:id/teachers", h.Class.ReplaceTeachers)

	subjects := api.Group("/subjects", managers)
	subjects.GET("", h.Subject.List)
	subjects.GET("/:id", h.Subject.Get)
	subjects.POST("", h.Subject.Create)
	subjects.PUT("/:id", h.Subject.Update)
	subjects.DELETE("/:id", h.Subject.Delete)

	teachers := api.Group("/teachers", managers)
	teachers.GET("", h.Teacher.List)
	teachers.GET("/:id", h.Teacher.Get)
	teachers.POST("", h.Teacher.Create)
	teachers.PUT("/:id", h.Teacher.Update)
	teachers.DELETE("/:id", h.Teacher.Delete)
	teachers.GET("/:id/subjects", h.Teacher.Subjects)
	teachers.PUT("/:id/subjects", h.Teacher.ReplaceSubjects)

	return r
}
