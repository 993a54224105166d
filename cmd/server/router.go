package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Skufu/AfyaChecker/internal/advisor"
	"github.com/Skufu/AfyaChecker/internal/catalog"
	"github.com/Skufu/AfyaChecker/internal/metrics"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies is everything the router needs. DB and Cache are nil when the
// corresponding backend is disabled.
type Dependencies struct {
	Catalog        *catalog.Catalog
	Advisor        *advisor.Service
	DB             HealthChecker
	Cache          HealthChecker
	Logger         *zap.Logger
	AllowedOrigins []string
	MaxBodyBytes   int64
	Metrics        bool
	// ServiceName enables otelgin spans when non-empty.
	ServiceName string
}

func setupRouter(deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	router := gin.New()
	router.Use(
		requestID(),
		requestLogger(log),
		recovery(log),
		limitBodySize(maxBody),
	)
	if mw := corsMiddleware(deps.AllowedOrigins, log); mw != nil {
		router.Use(mw)
	}
	if deps.ServiceName != "" {
		router.Use(otelgin.Middleware(deps.ServiceName))
	}
	if deps.Metrics {
		router.Use(metricsMiddleware())
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	h := &handlers{
		catalog: deps.Catalog,
		advisor: deps.Advisor,
		db:      deps.DB,
		cache:   deps.Cache,
		log:     log,
	}

	router.GET("/", h.welcome)
	router.GET("/healthz", h.healthz)
	router.GET("/health", h.health)
	router.GET("/readyz", h.readyz)
	router.POST("/analyze", h.analyze)
	router.GET("/models", h.models)

	api := router.Group("/api")
	api.GET("/symptoms", h.symptoms)
	api.POST("/score", h.score)
	api.POST("/report", h.report)
	api.POST("/chart", h.chart)

	return router
}
