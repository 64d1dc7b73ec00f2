package main

import (
	"flag"
	"log"
	"time"

	"dripmate/config"
	"dripmate/controllers"
	"dripmate/services"
	"dripmate/storage"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("config: %s", err)
	}
	logger, err := services.NewLogger(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %s", err)
	}
	defer logger.Sync()

	flush, err := services.InitSentry(cfg.SentryDSN, cfg.Environment, "dripmate-web")
	if err != nil {
		logger.Warn("Sentry disabled", zap.Error(err))
	}
	defer flush()
	defer sentry.Recover()

	backend, err := storage.OpenSQLite(cfg.StatePath)
	if err != nil {
		logger.Fatal("Failed to open state", zap.String("path", cfg.StatePath), zap.Error(err))
	}
	defer backend.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	session := storage.NewSessionStore(backend, logger)
	client := services.NewAPIClient(cfg.BaseURL(), session,
		services.WithTimeout(cfg.HTTPTimeout),
		services.WithLogger(logger),
		services.WithMetrics(services.NewAPIMetrics(registry)),
	)
	analyzer, err := services.NewAnalysisCache(client, logger)
	if err != nil {
		logger.Fatal("Failed to initialize analysis cache", zap.Error(err))
	}
	defer analyzer.Close()

	e := controllers.SetupServer(controllers.App{
		UIHosts:  cfg.UIHosts,
		API:      client,
		Analyzer: analyzer,
		Session:  session,
		Prefs:    storage.NewPreferenceStore(backend, logger),
		Logger:   logger,
		Gatherer: registry,
	})
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	e.Server.ReadHeaderTimeout = 10 * time.Second

	logger.Info("Serving", zap.String("addr", cfg.WebAddr), zap.String("environment", cfg.Environment))
	if err := e.Start(cfg.WebAddr); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}
