// Package nse fetches quotes directly from the NSE India quote API.
//
// NSE serves its quote endpoint only to clients that have picked up session
// cookies from the homepage first, so the strategy warms the session once
// before the first fetch. The wired http.Client must carry a cookie jar.
package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"priceservice/internal/strategy"
)

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	Name      string
	BaseURL   string
	UserAgent string
}

type Strategy struct {
	cfg    Config
	client HTTPClient
	log    zerolog.Logger

	warmOnce sync.Once
	warmErr  error
}

func New(cfg Config, client HTTPClient, log zerolog.Logger) *Strategy {
	if cfg.Name == "" {
		cfg.Name = "nse"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.nseindia.com"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) price-service/1.0"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Strategy{cfg: cfg, client: client, log: log.With().Str("strategy", cfg.Name).Logger()}
}

func (s *Strategy) Name() string { return s.cfg.Name }

// Probe warms the session and reports whether NSE is reachable.
func (s *Strategy) Probe(ctx context.Context) error {
	return s.warmup(ctx)
}

func (s *Strategy) warmup(ctx context.Context) error {
	s.warmOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL, nil)
		if err != nil {
			s.warmErr = err
			return
		}
		s.setHeaders(req)
		resp, err := s.client.Do(req)
		if err != nil {
			s.warmErr = fmt.Errorf("nse unreachable: %w", err)
			return
		}
		resp.Body.Close()
	})
	return s.warmErr
}

func (s *Strategy) FetchPrice(ctx context.Context, symbol string) (*strategy.PriceData, error) {
	sym := strategy.Normalize(symbol)
	if sym == "" {
		return nil, nil
	}
	if err := s.warmup(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/api/quote-equity?symbol=%s",
		strings.TrimRight(s.cfg.BaseURL, "/"), url.QueryEscape(exchangeSymbol(sym)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("nse: quote-equity %s -> %d", sym, resp.StatusCode)
	}

	var payload struct {
		PriceInfo map[string]any `json:"priceInfo"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("nse decode: %w", err)
	}
	if len(payload.PriceInfo) == 0 {
		return nil, nil
	}

	current, ok := strategy.FirstPositive(payload.PriceInfo,
		"lastPrice", "price", "ltp", "close", "currentPrice")
	if !ok {
		s.log.Debug().Str("symbol", sym).Msg("no usable price field")
		return nil, nil
	}
	previousClose, _ := strategy.FirstPositive(payload.PriceInfo,
		"previousClose", "prevClose", "pClose")

	pd, err := strategy.NewPriceData(sym, current, previousClose, s.cfg.Name)
	if err != nil {
		return nil, nil
	}
	return &pd, nil
}

func (s *Strategy) FetchPrices(ctx context.Context, symbols []string) (map[string]strategy.PriceData, error) {
	return strategy.FetchSequential(ctx, s, symbols)
}

func (s *Strategy) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/html")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", s.cfg.BaseURL)
}

// exchangeSymbol strips the Yahoo-style .NS suffix; the exchange API expects
// the bare scrip name.
func exchangeSymbol(sym string) string {
	return strings.TrimSuffix(sym, ".NS")
}
