package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"StockIntel/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchDailyBars returns daily bars covering lookback (e.g. "1y"), oldest
	// first. No data is an empty slice, not an error.
	FetchDailyBars(ctx context.Context, symbol, lookback string) ([]model.Bar, error)
	Name() string
}

// newHTTPClient builds a client with an overall timeout and optional proxy.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
