package ratelimit

import (
	"context"
	"sync"
	"time"

	"priceservice/internal/strategy"
)

// MinInterval wraps a strategy and enforces a minimum time between upstream
// calls. Concurrent callers wait until the interval has elapsed since the
// last call, or return early if the context is canceled.
type MinInterval struct {
	S        strategy.Strategy
	Interval time.Duration
	mu       sync.Mutex
	last     time.Time
}

func (m *MinInterval) Name() string { return m.S.Name() }

func (m *MinInterval) FetchPrice(ctx context.Context, symbol string) (*strategy.PriceData, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	pd, err := m.S.FetchPrice(ctx, symbol)
	m.stamp()
	return pd, err
}

func (m *MinInterval) FetchPrices(ctx context.Context, symbols []string) (map[string]strategy.PriceData, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	out, err := m.S.FetchPrices(ctx, symbols)
	m.stamp()
	return out, err
}

func (m *MinInterval) wait(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	wait := time.Until(m.last.Add(m.Interval))
	m.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MinInterval) stamp() {
	if m.Interval <= 0 {
		return
	}
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
}
