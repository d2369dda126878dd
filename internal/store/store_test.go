package store

import (
	"context"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockIntel/internal/calculator"
	"StockIntel/internal/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func ptr[T any](v T) *T {
	return &v
}

func enriched(n int) []model.EnrichedBar {
	bars := make([]model.Bar, n)
	start := model.NewDate(2024, 1, 1)
	for i := range bars {
		price := 100 + float64(i)
		bars[i] = model.Bar{
			Date: start.AddDays(i), Open: price, High: price + 2, Low: price - 1, Close: price + 1,
			Volume: ptr(float64(1000 * (i + 1))),
		}
	}
	return calculator.ComputeMetrics(bars)
}

// runStoreSuite exercises the behavior every backend must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("EnsureCompanyIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		first, err := s.EnsureCompany(ctx, "RELIANCE.NS")
		require.NoError(t, err)
		second, err := s.EnsureCompany(ctx, "RELIANCE.NS")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "RELIANCE", first.Name)
		assert.Equal(t, model.DefaultExchange, first.Exchange)

		companies, err := s.ListCompanies(ctx)
		require.NoError(t, err)
		assert.Len(t, companies, 1)
	})

	t.Run("EnsureCompanyConcurrent", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		ids := make([]int64, 8)
		errs := make([]error, 8)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				c, err := s.EnsureCompany(ctx, "TCS.NS")
				errs[i] = err
				if c != nil {
					ids[i] = c.ID
				}
			}(i)
		}
		wg.Wait()
		for i := range ids {
			require.NoError(t, errs[i])
			assert.Equal(t, ids[0], ids[i])
		}
		companies, err := s.ListCompanies(ctx)
		require.NoError(t, err)
		assert.Len(t, companies, 1)
	})

	t.Run("StoreHistoryIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		_, err := s.EnsureCompany(ctx, "INFY.NS")
		require.NoError(t, err)
		bars := enriched(10)

		n, err := s.StoreHistory(ctx, "INFY.NS", bars)
		require.NoError(t, err)
		assert.Equal(t, 10, n)

		n, err = s.StoreHistory(ctx, "INFY.NS", bars)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		count, err := s.CountBars(ctx, "INFY.NS")
		require.NoError(t, err)
		assert.Equal(t, 10, count)
	})

	t.Run("StoreHistoryKeepsExistingRows", func(t *testing.T) {
		s := newStore(t)
		bars := enriched(5)
		_, err := s.StoreHistory(ctx, "TCS.NS", bars[:3])
		require.NoError(t, err)

		changed := enriched(5)
		changed[0].Close = 999
		n, err := s.StoreHistory(ctx, "TCS.NS", changed)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := s.RecentBars(ctx, "TCS.NS", 30)
		require.NoError(t, err)
		require.Len(t, got, 5)
		assert.Equal(t, bars[0].Close, got[0].Close)
		assert.Nil(t, got[0].CompanyID, "company did not exist when the row was written")
	})

	t.Run("StoreHistoryIsAllOrNothing", func(t *testing.T) {
		s := newStore(t)
		bars := enriched(5)
		bars[2].Close = math.NaN()

		n, err := s.StoreHistory(ctx, "WIPRO.NS", bars)
		require.Error(t, err)
		assert.Equal(t, 0, n)

		count, err := s.CountBars(ctx, "WIPRO.NS")
		require.NoError(t, err)
		assert.Equal(t, 0, count, "rows before the bad one must be rolled back")

		n, err = s.StoreHistory(ctx, "WIPRO.NS", enriched(5))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})

	t.Run("RecentBarsAscendingAndLimited", func(t *testing.T) {
		s := newStore(t)
		c, err := s.EnsureCompany(ctx, "HDFCBANK.NS")
		require.NoError(t, err)
		_, err = s.StoreHistory(ctx, "HDFCBANK.NS", enriched(40))
		require.NoError(t, err)

		got, err := s.RecentBars(ctx, "HDFCBANK.NS", 30)
		require.NoError(t, err)
		require.Len(t, got, 30)
		assert.Equal(t, model.NewDate(2024, 1, 11), got[0].Date)
		assert.Equal(t, model.NewDate(2024, 2, 9), got[29].Date)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i-1].Date.Before(got[i].Date))
		}
		require.NotNil(t, got[0].CompanyID)
		assert.Equal(t, c.ID, *got[0].CompanyID)
		require.NotNil(t, got[0].Volume)
		require.NotNil(t, got[0].AdjustedClose)
		assert.Equal(t, got[0].Close, *got[0].AdjustedClose)
	})

	t.Run("DefaultsForMissingVolume", func(t *testing.T) {
		s := newStore(t)
		bars := enriched(1)
		bars[0].Volume = nil
		_, err := s.StoreHistory(ctx, "X.NS", bars)
		require.NoError(t, err)

		got, err := s.RecentBars(ctx, "X.NS", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].Volume)
		assert.Equal(t, 0.0, *got[0].Volume)
	})

	t.Run("Aggregates", func(t *testing.T) {
		s := newStore(t)
		_, err := s.StoreHistory(ctx, "ICICIBANK.NS", enriched(3))
		require.NoError(t, err)

		agg, err := s.Aggregates(ctx, "ICICIBANK.NS")
		require.NoError(t, err)
		require.NotNil(t, agg.High52w)
		require.NotNil(t, agg.Low52w)
		require.NotNil(t, agg.AvgClose)
		assert.InDelta(t, 103.0, *agg.High52w, 1e-9)
		assert.InDelta(t, 101.0, *agg.Low52w, 1e-9)
		assert.InDelta(t, 102.0, *agg.AvgClose, 1e-9)

		empty, err := s.Aggregates(ctx, "NONE.NS")
		require.NoError(t, err)
		assert.Nil(t, empty.High52w)
		assert.Nil(t, empty.AvgClose)

		has, err := s.HasBars(ctx, "NONE.NS")
		require.NoError(t, err)
		assert.False(t, has)
		has, err = s.HasBars(ctx, "ICICIBANK.NS")
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
