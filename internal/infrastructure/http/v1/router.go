// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"gwin/internal/core/localized"
	"gwin/internal/domain"
	"gwin/internal/infrastructure/http/v1/handlers"
	"gwin/internal/infrastructure/http/v1/middleware"
	"gwin/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Factory opens the business objects of registered entities
	Factory *domain.Factory

	// DB is pinged by the readiness probe, nil when not configured
	DB handlers.Pinger

	// Logger for request logging
	Logger *logger.Logger

	// Language is used when a request carries no Accept-Language
	Language language.Tag

	// PageSize is used when a paged request names no page size
	PageSize int

	// Version is reported by /health/info
	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Language == language.Und {
		cfg.Language = localized.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}

	router := gin.New()

	// Global middleware (order matters!). Recovery stays inside Logger:
	// a panic unwinds every middleware above it.
	router.Use(middleware.Trace())
	router.Use(middleware.Session(cfg.Language))
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Factory, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	{
		registerMetaRoutes(v1, cfg)
		registerEntityRoutes(v1, cfg)
	}

	return router
}

// registerMetaRoutes registers metadata/schema endpoints.
func registerMetaRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	handler := handlers.NewMetadataHandler(handlers.NewBaseHandler(), cfg.Factory.Registry())
	meta := rg.Group("/meta")
	{
		meta.GET("", handler.ListEntities)
		meta.GET("/:name", handler.GetEntity)
	}
	rg.GET("/menu", handler.Menu)
}

// registerEntityRoutes registers the generic entity endpoints.
func registerEntityRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	handler := handlers.NewEntityHandler(handlers.NewBaseHandler(), cfg.Factory, cfg.PageSize)
	RegisterEntityRoutes(rg.Group("/entities/:entity"), handler)
}
