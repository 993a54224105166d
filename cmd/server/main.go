package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/AfyaChecker/internal/advisor"
	"github.com/Skufu/AfyaChecker/internal/cache"
	"github.com/Skufu/AfyaChecker/internal/catalog"
	"github.com/Skufu/AfyaChecker/internal/config"
	"github.com/Skufu/AfyaChecker/internal/logger"
	"github.com/Skufu/AfyaChecker/internal/provider"
	"github.com/Skufu/AfyaChecker/internal/store"
	"github.com/Skufu/AfyaChecker/internal/tracing"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Telemetry.TracingEnabled,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	}, zlog)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			zlog.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	prov, err := provider.New(provider.Config{
		Name:        cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		Retry:       provider.RetryPolicy{MaxRetries: cfg.LLM.MaxRetries},
	}, zlog)
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}

	opts := advisor.Options{
		Catalog:  cat,
		Provider: prov,
		KeyEnv:   cfg.LLM.KeyEnv(),
		Timeout:  cfg.LLM.RequestTimeout,
		Logger:   zlog,
	}
	deps := Dependencies{
		Catalog:        cat,
		Logger:         zlog,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Metrics:        cfg.Telemetry.MetricsEnabled,
	}
	if cfg.Telemetry.TracingEnabled {
		deps.ServiceName = cfg.Telemetry.ServiceName
	}

	if cfg.Database.Enabled {
		pool, err := store.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		db := store.New(pool)
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		opts.Recorder = db
		deps.DB = db
	}

	if cfg.Redis.Enabled {
		rc := cache.New(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.CacheTTL,
		})
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			zlog.Warn("redis unavailable at start-up", zap.Error(err))
		}
		opts.Cache = rc
		deps.Cache = rc
	}

	deps.Advisor = advisor.NewService(opts)
	router := setupRouter(deps)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.LLM.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	zlog.Info("server listening",
		zap.String("port", cfg.Server.Port),
		zap.String("provider", prov.Name()),
		zap.String("model", prov.Model()),
		zap.String("version", version))
	return waitForShutdown(server, cfg.Server.ShutdownTimeout, errCh, zlog)
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func waitForShutdown(server *http.Server, timeout time.Duration, errCh <-chan error, zlog *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	zlog.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
