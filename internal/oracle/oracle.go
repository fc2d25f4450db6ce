// Package oracle defines the price-oracle contract both engines depend on
// and two implementations: an HTTP client against a market-monitor service
// and an in-memory fake for tests.
//
// Grounded on the teacher repo's internal/fetcher/coingecko.go (bounded
// HTTP client with context timeouts and a bounded retry loop) and
// internal/exchange/local.go (a symbol-keyed in-memory cache), generalized
// from candle-fetching to the two-method split spec.md asks for instead of
// one overloaded "scalar or map" call.
package oracle

import "context"

// Oracle yields the latest trade price per market.
type Oracle interface {
	GetLastTradeOf(ctx context.Context, market string) (float64, error)
	GetAllLastTrades(ctx context.Context) (map[string]float64, error)
}
