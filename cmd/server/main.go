package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/andikarf/school-core-api/api/swagger"
	"github.com/andikarf/school-core-api/internal/handler"
	"github.com/andikarf/school-core-api/internal/middleware"
	"github.com/andikarf/school-core-api/internal/models"
	"github.com/andikarf/school-core-api/internal/repository"
	"github.com/andikarf/school-core-api/internal/service"
	"github.com/andikarf/school-core-api/pkg/cache"
	"github.com/andikarf/school-core-api/pkg/config"
	"github.com/andikarf/school-core-api/pkg/database"
	"github.com/andikarf/school-core-api/pkg/logger"
	corsmiddleware "github.com/andikarf/school-core-api/pkg/middleware/cors"
	reqidmiddleware "github.com/andikarf/school-core-api/pkg/middleware/requestid"
)

// @title School Core API
// @version 1.0.0
// @description Timetable conflict engine and class/attendance session lifecycle.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	var redisCache *cache.Cache
	if cfg.Timetable.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, timetable cache disabled", "error", err)
		} else {
			redisCache = cache.New(client, logr)
			defer client.Close()
		}
	}

	validate := validator.New()

	termRepo := repository.NewTermRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	classSessionRepo := repository.NewClassSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	authzSvc := service.NewAuthzService(timetableRepo, userRepo)
	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	termSvc := service.NewTermService(termRepo, auditRepo, validate, logr)
	timetableSvc := service.NewTimetableService(service.TimetableServiceDeps{
		Repo:       timetableRepo,
		Sections:   sectionRepo,
		Subjects:   subjectRepo,
		Teachers:   teacherRepo,
		Terms:      termRepo,
		ActiveTerm: termRepo,
		Authz:      authzSvc,
		Audit:      auditRepo,
		Cache:      redisCache,
		CacheTTL:   cfg.Timetable.CacheTTL,
		Validator:  validate,
		Logger:     logr,
	})
	classSessionSvc := service.NewClassSessionService(classSessionRepo, timetableRepo, enrollmentRepo, termRepo, auditRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, termRepo, authzSvc, auditRepo, validate, logr)
	auditSvc := service.NewAuditService(auditRepo, logr)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	termHandler := handler.NewTermHandler(termSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	classSessionHandler := handler.NewClassSessionHandler(classSessionSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	terms := authed.Group("/terms")
	{
		terms.GET("", termHandler.List)
		terms.GET("/active", termHandler.Active)
		terms.POST("", middleware.RequireRoles(models.RoleAdmin), termHandler.Create)
		terms.POST("/:id/activate", middleware.RequireRoles(models.RoleAdmin), termHandler.Activate)
	}

	timetable := authed.Group("/timetable")
	{
		timetable.POST("/slots", middleware.RequireRoles(models.RoleAdmin), timetableHandler.AssignSlot)
		timetable.DELETE("/slots/:id", middleware.RequireRoles(models.RoleAdmin), timetableHandler.RemoveSlot)
		timetable.GET("/sections/:sectionId", timetableHandler.SectionTimetable)
		timetable.GET("/teachers/:teacherId", timetableHandler.TeacherTimetable)
	}

	staffOnly := middleware.RequireRoles(models.RoleTeacher, models.RolePrincipal, models.RoleAdmin)

	classSessions := authed.Group("/class-sessions")
	{
		classSessions.POST("/open", staffOnly, classSessionHandler.Open)
		classSessions.GET("/:id", classSessionHandler.Get)
	}

	attendance := authed.Group("/attendance")
	{
		attendance.POST("/sessions", staffOnly, attendanceHandler.CreateOrGet)
		attendance.POST("/sessions/:id/submit", staffOnly, attendanceHandler.Submit)
		attendance.GET("/sessions/:id", attendanceHandler.Get)
		attendance.GET("/sessions/:id/export", attendanceHandler.Export)
	}

	authed.GET("/audit", middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal), auditHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
