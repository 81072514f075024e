package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/attendance-api/api/swagger"
	"github.com/noah-isme/attendance-api/internal/handler"
	"github.com/noah-isme/attendance-api/internal/repository"
	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/pkg/cache"
	"github.com/noah-isme/attendance-api/pkg/config"
	"github.com/noah-isme/attendance-api/pkg/database"
	"github.com/noah-isme/attendance-api/pkg/logger"
)

// @title Attendance API
// @version 1.0.0
// @description Attendance eligibility calculator with calculation history
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.History.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
		checks["postgres"] = db.PingContext
	}

	var cacheRepo service.CacheRepository
	if cfg.Stats.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, stats cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			repo := repository.NewCacheRepository(client)
			cacheRepo = repo
			checks["redis"] = repo.Ping
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, cacheRepo != nil)

	var (
		recorder       service.CalculationRecorder
		historyHandler *handler.HistoryHandler
		historyWorker  *service.HistoryRecorder
	)
	if db != nil {
		calcRepo := repository.NewCalculationRepository(db, metrics)
		historyWorker = service.NewHistoryRecorder(calcRepo, cacheSvc, metrics, logr, service.HistoryRecorderConfig{
			Workers:    cfg.History.Workers,
			BufferSize: cfg.History.BufferSize,
			MaxRetries: cfg.History.Retries,
			RetryDelay: cfg.History.RetryDelay,
		})
		historyWorker.Start(context.Background())
		recorder = historyWorker

		historySvc := service.NewHistoryService(calcRepo, cacheSvc, cfg.Stats.CacheTTL, logr)
		exportSvc := service.NewExportService(historySvc, cfg.Exports.MaxRows, logr, nil, nil)
		historyHandler = handler.NewHistoryHandler(historySvc, exportSvc)
	}

	calculatorSvc := service.NewCalculatorService(service.NewCalculator(validate), metrics, recorder, cfg.Calculator.DefaultRequired, logr)
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metrics,
		Auth:           authSvc,
		Calculator:     handler.NewCalculatorHandler(calculatorSvc),
		Observer:       handler.NewMetricsHandler(metrics, checks),
		History:        historyHandler,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.Bool("history", historyHandler != nil),
			zap.Bool("stats_cache", cacheSvc.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if historyWorker != nil {
		historyWorker.Stop()
	}
	logr.Info("server stopped")
}
