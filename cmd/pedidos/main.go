package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"pedidos/internal/backend"
	"pedidos/internal/cache"
	"pedidos/internal/cli"
	apphttp "pedidos/internal/http"
	applog "pedidos/internal/log"
	"pedidos/internal/services"
)

// pinger is implemented by stores with a live connection to check.
type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	reportCfg := services.DefaultReportConfig()
	reportCfg.Status = cfg.Policy()
	reportCfg.Locale = cfg.Locale
	reportCfg.DedupeByOrderID = cfg.DedupeByOrderID
	reportCfg.CacheTTL = cfg.CacheTTL
	reports := services.NewReportService(reportCfg, result.Store, result.Publisher, logger)

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache))
	reports.RegisterCaches(caches)
	caches.StartCleanup(time.Minute)

	opts := apphttp.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	}
	if p, ok := result.Store.(pinger); ok {
		opts.Ready = p.Ping
	}
	srv := apphttp.NewServer(":"+cfg.Port, reports, opts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	})

	amqpUp := false
	if c, ok := result.Publisher.(interface{ IsConnected() bool }); ok {
		amqpUp = c.IsConnected()
	}
	logger.Info("Starting pedidos server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		applog.FieldStatusPolicy, reportCfg.Status.String(),
		"amqp", amqpUp)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
