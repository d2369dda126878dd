package scheduler

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockIntel/internal/collector"
	"StockIntel/internal/observability"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeIngester struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	mu      sync.Mutex
	symbols []string
}

func (f *fakeIngester) LoadSymbols(_ context.Context, symbols []string) collector.RunReport {
	f.calls.Add(1)
	f.mu.Lock()
	f.symbols = symbols
	f.mu.Unlock()
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		<-f.release
	}
	return collector.RunReport{Results: []collector.SymbolResult{{Symbol: symbols[0], Outcome: observability.OutcomeOK, Inserted: 3}}}
}

func TestRunNow_CallsIngesterAndHook(t *testing.T) {
	ing := &fakeIngester{}
	metrics := observability.NewMetrics("test")
	s := NewScheduler(context.Background(), ing, []string{"TCS"}, quietLogger(), metrics)

	var hooked collector.RunReport
	s.OnComplete = func(r collector.RunReport) { hooked = r }

	report, ran := s.RunNow()
	require.True(t, ran)
	assert.Equal(t, int32(1), ing.calls.Load())
	assert.Equal(t, []string{"TCS"}, ing.symbols)
	assert.Equal(t, 3, report.Inserted())
	assert.Equal(t, 3, hooked.Inserted())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.IngestRunsTotal.WithLabelValues("manual")))
}

func TestRunNow_NoOverlap(t *testing.T) {
	ing := &fakeIngester{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := NewScheduler(context.Background(), ing, []string{"TCS"}, quietLogger(), nil)

	done := make(chan bool)
	go func() {
		_, ran := s.RunNow()
		done <- ran
	}()
	<-ing.started

	_, ran := s.RunNow()
	assert.False(t, ran, "second run must be skipped while the first is in flight")

	close(ing.release)
	assert.True(t, <-done)
	assert.Equal(t, int32(1), ing.calls.Load())
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeIngester{}, []string{"TCS"}, quietLogger(), nil)
	assert.NoError(t, s.Register("0 30 18 * * 1-5"))
	assert.Error(t, s.Register("30 18 * *"))
}

func TestCronTriggersIngestion(t *testing.T) {
	ing := &fakeIngester{started: make(chan struct{}, 4)}
	s := NewScheduler(context.Background(), ing, []string{"TCS"}, quietLogger(), nil)
	require.NoError(t, s.Register("* * * * * *"))
	s.Start()
	defer s.Stop()

	select {
	case <-ing.started:
	case <-time.After(3 * time.Second):
		t.Fatal("cron did not trigger ingestion")
	}
}
