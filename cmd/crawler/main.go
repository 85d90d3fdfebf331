package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pagelens/crawler/internal/api"
	"github.com/pagelens/crawler/internal/clock/system"
	"github.com/pagelens/crawler/internal/config"
	"github.com/pagelens/crawler/internal/crawler"
	"github.com/pagelens/crawler/internal/id/uuid"
	"github.com/pagelens/crawler/internal/logging"
	"github.com/pagelens/crawler/internal/orchestrator"
	"github.com/pagelens/crawler/internal/progress"
	"github.com/pagelens/crawler/internal/progress/sinks"
	"github.com/pagelens/crawler/internal/ratelimit"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("init prometheus sink failed", zap.Error(err))
	}
	hub := progress.NewHub(
		progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
	)

	fetcher := crawler.NewFetcher(crawler.FetcherConfig{
		UserAgent:   cfg.Crawler.UserAgent,
		Timeout:     cfg.FetchTimeout(),
		MaxBodySize: cfg.HTTP.MaxBodyBytes,
	}, logger.Named("fetcher"))
	parser := crawler.NewParser()
	limiters := ratelimit.NewProvider(ratelimit.Config{
		Scope:     ratelimit.Scope(cfg.Limiter.Scope),
		GlobalRPS: cfg.Limiter.GlobalRPS,
	})
	robots := crawler.NewRobotsPolicy(cfg.Crawler.RespectRobots, cfg.Crawler.UserAgent, logger.Named("robots"))
	clock := system.New()

	manager := orchestrator.NewManager(
		fetcher,
		parser,
		limiters,
		robots,
		hub,
		clock,
		orchestrator.Config{WorkersPerJob: cfg.Crawler.WorkersPerJob},
		logger.Named("orchestrator"),
	)

	apiServer := api.NewServer(manager, uuid.New(), cfg, logger.Named("api"))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("orchestrator shutdown failed", zap.Error(err))
	}
	if err := hub.Close(shutdownCtx); err != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
}
