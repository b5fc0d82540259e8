// Package yahoo fetches quotes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"priceservice/internal/strategy"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=yahoo.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	Name    string
	BaseURL string
	// DefaultSuffix is appended to symbols that carry no exchange suffix.
	// Yahoo expects e.g. RELIANCE.NS for NSE-listed instruments.
	DefaultSuffix string
	UserAgent     string
}

type Strategy struct {
	cfg    Config
	client HTTPClient
	log    zerolog.Logger
}

func New(cfg Config, client HTTPClient, log zerolog.Logger) *Strategy {
	if cfg.Name == "" {
		cfg.Name = "yahoo"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.DefaultSuffix == "" {
		cfg.DefaultSuffix = ".NS"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "price-service/1.0"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Strategy{cfg: cfg, client: client, log: log.With().Str("strategy", cfg.Name).Logger()}
}

func (s *Strategy) Name() string { return s.cfg.Name }

// Probe checks that the chart endpoint is reachable. Any HTTP response,
// including 4xx, counts as reachable; only transport failures disqualify the
// strategy.
func (s *Strategy) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.chartURL("RELIANCE.NS"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (s *Strategy) FetchPrice(ctx context.Context, symbol string) (*strategy.PriceData, error) {
	sym := strategy.Normalize(symbol)
	if sym == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.chartURL(s.upstreamSymbol(sym)), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Unknown symbols come back as 404; that is absence, not a provider fault.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("yahoo: %s -> %d", req.URL.Path, resp.StatusCode)
	}

	var api chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if api.Chart.Error != nil {
		if strings.EqualFold(api.Chart.Error.Code, "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("yahoo: %s: %s", api.Chart.Error.Code, api.Chart.Error.Description)
	}
	if len(api.Chart.Result) == 0 {
		return nil, nil
	}

	result := api.Chart.Result[0]
	current, ok := strategy.FirstPositive(result.Meta,
		"regularMarketPrice", "currentPrice", "lastPrice")
	if !ok {
		current, ok = lastClose(result)
	}
	if !ok {
		s.log.Debug().Str("symbol", sym).Msg("no usable price field")
		return nil, nil
	}
	previousClose, _ := strategy.FirstPositive(result.Meta,
		"regularMarketPreviousClose", "previousClose", "chartPreviousClose")

	pd, err := strategy.NewPriceData(sym, current, previousClose, s.cfg.Name)
	if err != nil {
		return nil, nil
	}
	return &pd, nil
}

func (s *Strategy) FetchPrices(ctx context.Context, symbols []string) (map[string]strategy.PriceData, error) {
	return strategy.FetchSequential(ctx, s, symbols)
}

func (s *Strategy) chartURL(symbol string) string {
	return fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d",
		strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(symbol))
}

// upstreamSymbol appends the default exchange suffix when the symbol has
// none. Symbols that already carry a suffix (RELIANCE.NS, 500325.BO) pass
// through untouched.
func (s *Strategy) upstreamSymbol(sym string) string {
	if strings.Contains(sym, ".") {
		return sym
	}
	return sym + s.cfg.DefaultSuffix
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       map[string]any `json:"meta"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// lastClose falls back to the most recent close in the intraday series when
// the meta block carries no live price.
func lastClose(r chartResult) (float64, bool) {
	for _, q := range r.Indicators.Quote {
		for i := len(q.Close) - 1; i >= 0; i-- {
			if q.Close[i] != nil && *q.Close[i] > 0 {
				return *q.Close[i], true
			}
		}
	}
	return 0, false
}
