// Package synth serves deterministic synthetic quotes. It is the fallback of
// last resort and keeps the service usable offline, for development and in
// tests, without any live provider.
package synth

import (
	"context"
	"hash/fnv"
	"math"

	"priceservice/internal/strategy"
)

type Strategy struct {
	name string
}

func New() *Strategy { return &Strategy{name: "synthetic"} }

func (s *Strategy) Name() string { return s.name }

// FetchPrice derives a stable price from the symbol itself: the same symbol
// always quotes the same price, so downstream P/L math is reproducible.
func (s *Strategy) FetchPrice(_ context.Context, symbol string) (*strategy.PriceData, error) {
	sym := strategy.Normalize(symbol)
	if sym == "" {
		return nil, nil
	}

	h := fnv.New64a()
	h.Write([]byte(sym))
	v := h.Sum64()

	// Base in [50.00, 5049.99], intraday move in [-2%, +2%].
	previousClose := round2(50 + float64(v%500000)/100)
	drift := (float64((v>>32)%401) - 200) / 10000
	current := round2(previousClose * (1 + drift))

	pd, err := strategy.NewPriceData(sym, current, previousClose, s.name)
	if err != nil {
		return nil, nil
	}
	return &pd, nil
}

func (s *Strategy) FetchPrices(ctx context.Context, symbols []string) (map[string]strategy.PriceData, error) {
	return strategy.FetchSequential(ctx, s, symbols)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
