package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	internalhandler "github.com/geison-bit/horarios-api/internal/handler"
	internalmiddleware "github.com/geison-bit/horarios-api/internal/middleware"
	"github.com/geison-bit/horarios-api/internal/repository"
	"github.com/geison-bit/horarios-api/internal/service"
	"github.com/geison-bit/horarios-api/pkg/cache"
	"github.com/geison-bit/horarios-api/pkg/config"
	"github.com/geison-bit/horarios-api/pkg/database"
	"github.com/geison-bit/horarios-api/pkg/logger"
	corsmiddleware "github.com/geison-bit/horarios-api/pkg/middleware/cors"
	reqidmiddleware "github.com/geison-bit/horarios-api/pkg/middleware/requestid"
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, serving reads uncached", "error", err)
		} else {
			defer redisClient.Close()
		}
	}

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	validate := validator.New()
	scheduleRepo := repository.NewScheduleRepository(db)

	generatorSvc := service.NewGeneratorService(scheduleRepo, validate, logr, cfg.Solver, metricsSvc)
	querySvc := service.NewScheduleQueryService(scheduleRepo, redisClient, cfg.Redis.CacheTTL, logr)

	jobStore := service.NewJobStore()
	jobSvc := service.NewJobService(generatorSvc, jobStore, logr, cfg.Jobs)
	jobSvc.Start(context.Background())
	defer jobSvc.Stop()

	scheduleHandler := internalhandler.NewScheduleHandler(generatorSvc, jobSvc, querySvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	r.POST("/generar-horario-general", scheduleHandler.Generate)
	r.POST("/generar-horario-general-job", scheduleHandler.GenerateJob)
	r.GET("/generar-horario-general-job/:job_id/events", scheduleHandler.JobEvents)
	r.GET("/horarios/:nivel", scheduleHandler.Latest)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server stopped", "error", err)
	}
}
