package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aqualeads/crm-platform/internal/api/router"
	"github.com/aqualeads/crm-platform/internal/app/bootstrap"
	"github.com/aqualeads/crm-platform/internal/chat"
	appconfig "github.com/aqualeads/crm-platform/internal/config"
	"github.com/aqualeads/crm-platform/internal/flow"
	"github.com/aqualeads/crm-platform/internal/leads"
	"github.com/aqualeads/crm-platform/internal/observability/metrics"
	"github.com/aqualeads/crm-platform/internal/webchat"
	"github.com/aqualeads/crm-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting crm-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatbotMetrics := metrics.NewChatbotMetrics(registry)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	engine := chat.NewEngine(
		flow.Default(),
		stores.Sessions,
		stores.Messages,
		stores.Company,
		stores.Leads,
		logger,
		chat.WithTranscriptCache(chat.NewTranscriptCache(redisClient)),
		chat.WithMetrics(chatbotMetrics),
	)

	var reclaimer *chat.Reclaimer
	if cfg.ReclaimerEnabled {
		reclaimer = chat.NewReclaimer(
			stores.Sessions,
			engine.MaterializeLead,
			logger,
			chat.WithSweepInterval(cfg.ReclaimerInterval),
			chat.WithIdleThreshold(cfg.ReclaimerIdleAfter),
			chat.WithReclaimerMetrics(chatbotMetrics),
		)
		reclaimer.Start()
		defer reclaimer.Stop()
	}

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chat.NewHandler(engine, logger),
		WebchatHandler:     webchat.NewHandler(engine, logger),
		LeadsHandler:       leads.NewHandler(stores.Leads, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
