package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"StockIntel/internal/collector"
	"StockIntel/internal/observability"
)

// Ingester runs one ingestion pass over a symbol set.
type Ingester interface {
	LoadSymbols(ctx context.Context, symbols []string) collector.RunReport
}

// Scheduler triggers ingestion on a cron schedule and on demand. Runs never
// overlap within a process.
type Scheduler struct {
	cron     *cron.Cron
	ingester Ingester
	symbols  []string
	logger   *logrus.Logger
	metrics  *observability.Metrics
	ctx      context.Context

	runMu sync.Mutex

	// OnComplete, if set, is called after every run that was not skipped.
	OnComplete func(collector.RunReport)
}

// NewScheduler creates a new Scheduler. Runs use ctx, so cancelling it aborts
// an in-flight run. metrics may be nil.
func NewScheduler(ctx context.Context, ing Ingester, symbols []string, logger *logrus.Logger, metrics *observability.Metrics) *Scheduler {
	cronLogger := cron.PrintfLogger(logger.WithField("component", "cron"))
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		ingester: ing,
		symbols:  symbols,
		logger:   logger,
		metrics:  metrics,
		ctx:      ctx,
	}
}

// Register adds the ingestion task on spec (six fields, seconds first).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run("cron") }); err != nil {
		return fmt.Errorf("register ingest task: %w", err)
	}
	s.logger.WithField("cron", spec).Info("ingest task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for any running ingestion,
// cron-triggered or manual, to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.runMu.Lock()
	s.runMu.Unlock()
	s.logger.Info("scheduler stopped")
}

// RunNow executes ingestion immediately (RUN_ON_START or manual trigger).
// It reports false without running if another run is in progress.
func (s *Scheduler) RunNow() (collector.RunReport, bool) {
	return s.run("manual")
}

func (s *Scheduler) run(trigger string) (collector.RunReport, bool) {
	if !s.runMu.TryLock() {
		s.logger.WithField("trigger", trigger).Warn("ingestion already running, skipping")
		return collector.RunReport{}, false
	}
	defer s.runMu.Unlock()

	if s.metrics != nil {
		s.metrics.IngestRunsTotal.WithLabelValues(trigger).Inc()
	}
	s.logger.WithFields(logrus.Fields{
		"trigger": trigger,
		"symbols": len(s.symbols),
	}).Info("running ingestion")

	report := s.ingester.LoadSymbols(s.ctx, s.symbols)
	if s.OnComplete != nil {
		s.OnComplete(report)
	}
	return report, true
}
