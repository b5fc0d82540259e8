// Command fetch resolves prices for a set of symbols once and prints them as
// JSON. Useful for smoke-testing provider wiring without running the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"priceservice/internal/config"
	"priceservice/internal/httpx"
	"priceservice/internal/ratelimit"
	"priceservice/internal/service"
	"priceservice/internal/strategy"
	"priceservice/internal/strategy/nse"
	"priceservice/internal/strategy/synth"
	"priceservice/internal/strategy/yahoo"
)

func main() {
	_ = godotenv.Load()

	var symbolsCSV string
	var configPath string
	var timeout int
	var offline bool
	flag.StringVar(&symbolsCSV, "symbols", os.Getenv("SYMBOLS"), "comma-separated ticker symbols")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.IntVar(&timeout, "timeout", 15, "overall timeout seconds")
	flag.BoolVar(&offline, "offline", false, "use only the synthetic strategy")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal().Msg("no symbols provided; use -symbols RELIANCE.NS,TCS.NS")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if offline {
		cfg.NSE.Enabled = false
		cfg.Yahoo.Enabled = false
		cfg.Synth.Enabled = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	var strategies []strategy.Strategy
	if cfg.NSE.Enabled {
		jar, _ := cookiejar.New(nil)
		jarClient := &httpx.Client{HTTP: &http.Client{Timeout: httpClient.HTTP.Timeout, Transport: httpClient.HTTP.Transport, Jar: jar}}
		st := nse.New(nse.Config{BaseURL: cfg.NSE.Endpoint}, jarClient, log)
		if err := st.Probe(ctx); err != nil {
			log.Warn().Err(err).Msg("nse strategy unavailable")
		} else {
			var s strategy.Strategy = st
			if cfg.NSE.MinRequestIntervalMS > 0 {
				s = &ratelimit.MinInterval{S: s, Interval: time.Duration(cfg.NSE.MinRequestIntervalMS) * time.Millisecond}
			}
			strategies = append(strategies, s)
		}
	}
	if cfg.Yahoo.Enabled {
		st := yahoo.New(yahoo.Config{BaseURL: cfg.Yahoo.Endpoint, DefaultSuffix: cfg.Yahoo.DefaultSuffix}, httpClient, log)
		if err := st.Probe(ctx); err != nil {
			log.Warn().Err(err).Msg("yahoo strategy unavailable")
		} else {
			strategies = append(strategies, st)
		}
	}
	if cfg.Synth.Enabled {
		strategies = append(strategies, synth.New())
	}

	svc, err := service.New(service.Options{
		CacheTTL:     time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		MaxWorkers:   cfg.Fetch.MaxWorkers,
		BatchTimeout: time.Duration(timeout) * time.Second,
		Logger:       log,
	}, strategies...)
	if err != nil {
		log.Fatal().Err(err).Msg("service")
	}

	prices, err := svc.GetPrices(ctx, symbols)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch")
	}
	for _, sym := range symbols {
		if _, ok := prices[strategy.Normalize(sym)]; !ok {
			log.Warn().Str("symbol", sym).Msg("no price available")
		}
	}

	b, _ := json.MarshalIndent(prices, "", "  ")
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
