package oracle

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory settable Oracle used by engine tests.
type Fake struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewFake builds a Fake with no prices set.
func NewFake() *Fake {
	return &Fake{prices: make(map[string]float64)}
}

// Set records the last trade price for market.
func (f *Fake) Set(market string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[market] = price
}

func (f *Fake) GetLastTradeOf(ctx context.Context, market string) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	price, ok := f.prices[market]
	if !ok {
		return 0, fmt.Errorf("oracle: no price set for %s", market)
	}
	return price, nil
}

func (f *Fake) GetAllLastTrades(ctx context.Context) (map[string]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]float64, len(f.prices))
	for k, v := range f.prices {
		out[k] = v
	}
	return out, nil
}
