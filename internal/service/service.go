// Package service resolves current prices for ticker symbols across an
// ordered set of provider strategies, with a TTL cache in front and a
// per-provider circuit breaker for fault isolation.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"priceservice/internal/breaker"
	"priceservice/internal/cache"
	"priceservice/internal/strategy"
)

var (
	// ErrNoStrategies means the service was constructed without a single
	// usable strategy.
	ErrNoStrategies = errors.New("no price strategies available")
	// ErrInvalidSymbol flags malformed caller input, distinct from "no data".
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrNoSymbols flags an empty batch request.
	ErrNoSymbols = errors.New("no symbols requested")
)

var symbolRe = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-&]*$`)

type Options struct {
	CacheTTL         time.Duration // default 60s
	CacheMaxItems    int           // default 1000
	FailureThreshold int           // default breaker.DefaultFailureThreshold
	RecoveryTimeout  time.Duration // default breaker.DefaultRecoveryTimeout
	MaxWorkers       int           // default 5, bounds batch fan-out
	BatchTimeout     time.Duration // default 30s, overall batch deadline
	Logger           zerolog.Logger
}

// Service is the single entry point for price resolution. Strategies are
// tried in the order given at construction; the first success wins. The
// strategy list is fixed for the service's lifetime.
type Service struct {
	strategies   []strategy.Strategy
	cache        *cache.Cache[strategy.PriceData]
	breaker      *breaker.Breaker
	workers      int
	batchTimeout time.Duration
	sf           singleflight.Group
	log          zerolog.Logger
}

// New builds a service over the given strategies, most preferred first.
// Callers are expected to probe availability and pass only live strategies;
// an empty list is an error because the service would never resolve anything.
func New(opts Options, strategies ...strategy.Strategy) (*Service, error) {
	if len(strategies) == 0 {
		return nil, ErrNoStrategies
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 60 * time.Second
	}
	if opts.CacheMaxItems <= 0 {
		opts.CacheMaxItems = 1000
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 5
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 30 * time.Second
	}
	s := &Service{
		strategies:   strategies,
		cache:        cache.New[strategy.PriceData](opts.CacheTTL, opts.CacheMaxItems),
		breaker:      breaker.New(opts.FailureThreshold, opts.RecoveryTimeout),
		workers:      opts.MaxWorkers,
		batchTimeout: opts.BatchTimeout,
		log:          opts.Logger.With().Str("component", "price-service").Logger(),
	}
	s.log.Info().Strs("strategies", s.StrategyNames()).Msg("price service initialized")
	return s, nil
}

// GetPrice resolves one symbol. A nil result with a nil error means no
// provider could supply a price; callers must treat that as a normal outcome.
// An error is only returned for malformed input.
func (s *Service) GetPrice(ctx context.Context, symbol string) (*strategy.PriceData, error) {
	sym, err := checkSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if pd, ok := s.cache.Get(sym); ok {
		return &pd, nil
	}
	return s.fetchOne(ctx, sym), nil
}

// GetPrices resolves a batch. Duplicates are collapsed, cache hits are
// returned immediately and misses are fetched concurrently under the worker
// bound and the batch deadline. Symbols with no data from any source are
// simply absent from the result map.
func (s *Service) GetPrices(ctx context.Context, symbols []string) (map[string]strategy.PriceData, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	results := make(map[string]strategy.PriceData, len(symbols))
	var misses []string
	seen := make(map[string]struct{}, len(symbols))
	for _, raw := range symbols {
		if strategy.Normalize(raw) == "" {
			continue // blank entries are dropped
		}
		sym, err := checkSymbol(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		if pd, ok := s.cache.Get(sym); ok {
			results[sym] = pd
			continue
		}
		misses = append(misses, sym)
	}
	if len(seen) == 0 {
		return nil, ErrNoSymbols
	}
	if len(misses) == 0 {
		return results, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.batchTimeout)
	defer cancel()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, sym := range misses {
		sym := sym
		g.Go(func() error {
			// Per-symbol failure is absence, never a batch error.
			if pd := s.fetchOne(gctx, sym); pd != nil {
				mu.Lock()
				results[sym] = *pd
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// fetchOne walks the strategies in priority order for a single symbol,
// skipping providers with an open circuit and recording outcomes on the
// breaker. Concurrent callers asking for the same symbol are coalesced into
// one upstream pass.
func (s *Service) fetchOne(ctx context.Context, sym string) *strategy.PriceData {
	v, _, _ := s.sf.Do(sym, func() (any, error) {
		for _, st := range s.strategies {
			name := st.Name()
			if !s.breaker.IsClosed(name) {
				s.log.Debug().Str("strategy", name).Str("symbol", sym).Msg("circuit open, skipping")
				continue
			}
			if ctx.Err() != nil {
				return (*strategy.PriceData)(nil), nil
			}
			pd, err := st.FetchPrice(ctx, sym)
			if err != nil {
				s.breaker.RecordFailure(name)
				s.log.Warn().Err(err).Str("strategy", name).Str("symbol", sym).Msg("strategy failed")
				continue
			}
			if pd == nil {
				continue
			}
			s.breaker.RecordSuccess(name)
			s.cache.Set(sym, *pd)
			return pd, nil
		}
		return (*strategy.PriceData)(nil), nil
	})
	pd, _ := v.(*strategy.PriceData)
	return pd
}

// ValidateSymbol reports whether a symbol is well-formed and resolvable.
// The message is meant for direct display in a UI.
func (s *Service) ValidateSymbol(ctx context.Context, symbol string) (bool, string) {
	sym, err := checkSymbol(symbol)
	if err != nil {
		return false, err.Error()
	}
	pd, _ := s.GetPrice(ctx, sym)
	if pd == nil {
		return false, fmt.Sprintf("symbol %q not found by any provider", sym)
	}
	return true, "valid symbol"
}

// Stats is an observability snapshot of the service internals.
type Stats struct {
	CachedItems         int            `json:"cached_items"`
	CacheTTLSeconds     float64        `json:"cache_ttl_seconds"`
	AvailableStrategies []string       `json:"available_strategies"`
	BreakerFailures     map[string]int `json:"circuit_breaker_failures"`
}

func (s *Service) CacheStats() Stats {
	return Stats{
		CachedItems:         s.cache.Len(),
		CacheTTLSeconds:     s.cache.TTL().Seconds(),
		AvailableStrategies: s.StrategyNames(),
		BreakerFailures:     s.breaker.Failures(),
	}
}

func (s *Service) ClearCache() { s.cache.Clear() }

func (s *Service) StrategyNames() []string {
	names := make([]string, len(s.strategies))
	for i, st := range s.strategies {
		names[i] = st.Name()
	}
	return names
}

func checkSymbol(raw string) (string, error) {
	sym := strategy.Normalize(raw)
	if sym == "" {
		return "", fmt.Errorf("%w: empty symbol", ErrInvalidSymbol)
	}
	if !symbolRe.MatchString(sym) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
	}
	return sym, nil
}
