package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/middleware"
	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendance-api/pkg/middleware/requestid"
)

// RouterConfig collects everything the HTTP surface is built from. History is
// optional; its routes are only mounted when set.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool

	Logger     *zap.Logger
	Metrics    *service.MetricsService
	Auth       middleware.TokenValidator
	Calculator *CalculatorHandler
	Observer   *MetricsHandler
	History    *HistoryHandler
}

// NewRouter wires middleware and routes onto a fresh engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.GET("/", cfg.Calculator.Index)
	r.POST("/calculate", cfg.Calculator.Calculate)

	r.GET("/health", cfg.Observer.Health)
	r.GET("/ready", cfg.Observer.Ready)
	r.GET("/metrics", cfg.Observer.Prometheus)

	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.Auth == nil {
		return r
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.Auth), middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	api.GET("/metrics/summary", cfg.Observer.Summary)

	if cfg.History != nil {
		calculations := api.Group("/calculations")
		calculations.GET("", cfg.History.List)
		calculations.GET("/stats", cfg.History.Stats)
		calculations.GET("/export", cfg.History.Export)
		calculations.GET("/:id", cfg.History.Get)
		calculations.GET("/:id/export", cfg.History.ExportOne)
	}
	return r
}
