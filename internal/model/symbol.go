package model

import "strings"

const (
	// MarketSuffix is the provider qualifier for the National Stock Exchange.
	MarketSuffix = ".NS"
	// DefaultExchange is recorded for companies created during ingestion.
	DefaultExchange = "NSE"
)

// NormalizeSymbol upper-cases a ticker and appends MarketSuffix if absent.
// Ingestion and every read path go through this one function.
func NormalizeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" || strings.HasSuffix(s, MarketSuffix) {
		return s
	}
	return s + MarketSuffix
}

// DisplayName strips MarketSuffix from a normalized symbol.
func DisplayName(symbol string) string {
	return strings.TrimSuffix(symbol, MarketSuffix)
}
