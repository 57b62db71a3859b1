package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-admin-api/api/swagger"
	"github.com/noah-isme/academy-admin-api/internal/handler"
	"github.com/noah-isme/academy-admin-api/internal/middleware"
	"github.com/noah-isme/academy-admin-api/internal/models"
	"github.com/noah-isme/academy-admin-api/internal/repository"
	"github.com/noah-isme/academy-admin-api/internal/service"
	"github.com/noah-isme/academy-admin-api/pkg/cache"
	"github.com/noah-isme/academy-admin-api/pkg/config"
	"github.com/noah-isme/academy-admin-api/pkg/database"
	"github.com/noah-isme/academy-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-admin-api/pkg/middleware/requestid"
)

// @title Academy Admin API
// @version 1.0.0
// @description Class batch lifecycle, enrollment and content scheduling service
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API stays up without Redis; cached reads fall through to the DB.
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	periodRepo := repository.NewAcademicPeriodRepository(db)
	batchRepo := repository.NewClassBatchRepository(db, metricsService)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db, metricsService)
	templateRepo := repository.NewContentTemplateRepository(db)
	scheduleRepo := repository.NewContentScheduleRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr, metricsService)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "academy-admin-api",
		Audience:           []string{"academy-admin"},
	})
	periodService := service.NewPeriodService(periodRepo, logr)
	batchService := service.NewClassBatchService(batchRepo, periodService, courseRepo, userRepo, userRepo, cacheRepo, cfg.Cache, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, batchRepo, userRepo, courseRepo, userRepo, cacheRepo, cfg.Cache, cfg.Enrollment, validate, logr)
	scheduleService := service.NewContentScheduleService(scheduleRepo, templateRepo, batchRepo, userRepo, cfg.Scheduling, validate, logr)
	studentService := service.NewStudentService(userRepo, logr)

	authHandler := handler.NewAuthHandler(authService)
	batchHandler := handler.NewClassBatchHandler(batchService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	scheduleHandler := handler.NewContentScheduleHandler(scheduleService)
	periodHandler := handler.NewPeriodHandler(periodService)
	studentHandler := handler.NewStudentHandler(studentService)
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

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
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
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	secured := api.Group("", middleware.JWT(authService))
	admin := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleInstructor)

	secured.GET("/class-batches", staff, batchHandler.List)
	secured.POST("/class-batches", admin, batchHandler.Create)
	secured.GET("/class-batches/:id", staff, batchHandler.Get)
	secured.PUT("/class-batches/:id", admin, batchHandler.Update)

	secured.GET("/class-batches/:id/enrollments", staff, enrollmentHandler.ListByClass)
	secured.POST("/class-batches/:id/enrollments", admin, enrollmentHandler.Enroll)

	secured.GET("/class-batches/:id/schedule-builder", staff, scheduleHandler.Builder)
	secured.PUT("/class-batches/:id/content-schedules", admin, scheduleHandler.Save)
	secured.DELETE("/class-batches/:id/content-schedules/:scheduleId", admin, scheduleHandler.Remove)

	secured.GET("/academic-periods", staff, periodHandler.List)
	secured.GET("/students", admin, studentHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
