package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"StockIntel/internal/api"
	"StockIntel/internal/collector"
	"StockIntel/internal/config"
	"StockIntel/internal/observability"
	"StockIntel/internal/scheduler"
	"StockIntel/internal/service"
	"StockIntel/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.Info("StockIntel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config validation: %v", err)
	}
	level, _ := logrus.ParseLevel(cfg.Log.Level)
	logger.SetLevel(level)

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Info("StockIntel stopped")
}

// run wires the components and blocks until ctx is cancelled or the HTTP
// server fails. Everything opened here is released before it returns.
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Init store
	var st store.Store
	var err error
	if cfg.Database.PostgresDSN != "" {
		st, err = store.NewPostgresStore(ctx, cfg.Database.PostgresDSN, logger)
	} else {
		st, err = store.NewSQLiteStore(ctx, cfg.Database.SQLitePath, logger)
	}
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	// Init fetcher
	var fetcher collector.Fetcher
	if cfg.DataSource.BaseURL != "" {
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.FetchTimeout)
	} else {
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.FetchTimeout)
	}
	logger.WithField("source", fetcher.Name()).Info("data source selected")

	metrics := observability.NewMetrics("")
	col := collector.NewCollector(fetcher, st, collector.Options{
		Lookback:          cfg.DataSource.Lookback,
		RequestsPerSecond: cfg.DataSource.RequestsPerSecond,
		FetchTimeout:      cfg.DataSource.FetchTimeout,
	}, logger, metrics)
	svc := service.NewStockService(st, cfg.Cache.TTL, nil, metrics)

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, col, cfg.Symbols, logger, metrics)
	sched.OnComplete = func(r collector.RunReport) {
		if r.Inserted() > 0 {
			svc.InvalidateCaches()
		}
	}
	if err := sched.Register(cfg.Schedule.IngestCron); err != nil {
		return fmt.Errorf("register cron task: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if cfg.ShouldRunOnStart() {
		logger.Info("run_on_start enabled, ingesting now")
		go sched.RunNow()
	}

	// Init HTTP server
	srv := api.NewServer(api.Config{
		Addr:        cfg.Server.Addr,
		CORSOrigins: cfg.Server.CORSOrigins,
		Service:     svc,
		Metrics:     metrics,
		Logger:      logger,
	})
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("StockIntel is running. Press Ctrl+C to stop.")

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping...")
	case serveErr = <-errCh:
		if serveErr != nil {
			serveErr = fmt.Errorf("http server: %w", serveErr)
		}
	}
	// Cancelling first aborts an in-flight ingestion so sched.Stop returns.
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	return serveErr
}
