package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPrice is returned when a quote cannot be constructed because the
// price is not a positive finite number.
var ErrInvalidPrice = errors.New("invalid price")

// PriceData is the normalized quote shape returned by all strategies.
// A zero PreviousClose means the prior-session close is unknown; Change and
// ChangePercent are only derived when it is present and are never set
// independently.
type PriceData struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"current_price"`
	PreviousClose float64   `json:"previous_close,omitempty"`
	Change        float64   `json:"change,omitempty"`
	ChangePercent float64   `json:"change_percent,omitempty"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewPriceData validates and builds a PriceData. previousClose <= 0 is
// treated as unknown.
func NewPriceData(symbol string, current, previousClose float64, source string) (PriceData, error) {
	if current <= 0 || math.IsNaN(current) || math.IsInf(current, 0) {
		return PriceData{}, fmt.Errorf("%w: %s=%v", ErrInvalidPrice, symbol, current)
	}
	pd := PriceData{
		Symbol:       symbol,
		CurrentPrice: current,
		Source:       source,
		Timestamp:    time.Now().UTC(),
	}
	if previousClose > 0 && !math.IsNaN(previousClose) && !math.IsInf(previousClose, 0) {
		pd.PreviousClose = previousClose
		pd.Change = current - previousClose
		pd.ChangePercent = pd.Change / previousClose * 100
	}
	return pd, nil
}

// Strategy is one pluggable adapter for a specific upstream data source.
//
// FetchPrice returns (nil, nil) when the provider has no usable quote for the
// symbol; that is a normal outcome, not an error. A non-nil error means the
// provider itself misbehaved (timeout, malformed payload, rate limit) and is
// what the orchestrator records against the circuit breaker.
type Strategy interface {
	Name() string
	FetchPrice(ctx context.Context, symbol string) (*PriceData, error)
	FetchPrices(ctx context.Context, symbols []string) (map[string]PriceData, error)
}

// Normalize trims and upper-cases a ticker symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// FetchSequential is the batch implementation shared by adapters without a
// true batch upstream call: a loop over FetchPrice, skipping symbols that
// resolve to nothing. The first provider error aborts the loop.
func FetchSequential(ctx context.Context, s Strategy, symbols []string) (map[string]PriceData, error) {
	out := make(map[string]PriceData, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		pd, err := s.FetchPrice(ctx, sym)
		if err != nil {
			return out, err
		}
		if pd != nil {
			out[pd.Symbol] = *pd
		}
	}
	return out, nil
}

// FirstPositive scans candidate fields of a decoded payload in priority order
// and returns the first value that parses as a positive finite number.
// Upstream payloads are heterogeneous: numbers arrive as float64, json.Number
// or formatted strings (NSE uses "1,234.50").
func FirstPositive(fields map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}
		f, ok := asFloat(v)
		if ok && f > 0 && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case interface{ Float64() (float64, error) }: // json.Number
		f, err := x.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
