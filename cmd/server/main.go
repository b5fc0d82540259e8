package main

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
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

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

	probeCtx, probeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	strategies := buildStrategies(probeCtx, cfg, httpClient, log)
	probeCancel()

	svc, err := service.New(service.Options{
		CacheTTL:         time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		CacheMaxItems:    cfg.Cache.MaxItems,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  time.Duration(cfg.Breaker.RecoveryTimeoutSec) * time.Second,
		MaxWorkers:       cfg.Fetch.MaxWorkers,
		BatchTimeout:     time.Duration(cfg.Fetch.BatchTimeoutSec) * time.Second,
		Logger:           log,
	}, strategies...)
	if err != nil {
		log.Fatal().Err(err).Msg("service")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(newMux(svc))))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("server stopped")
}

// buildStrategies constructs the configured adapters in priority order,
// probing each once; adapters that fail the probe are excluded for the
// process lifetime.
func buildStrategies(ctx context.Context, cfg config.Config, httpClient *httpx.Client, log zerolog.Logger) []strategy.Strategy {
	var strategies []strategy.Strategy

	if cfg.NSE.Enabled {
		// NSE needs session cookies from its homepage before serving quotes.
		jar, _ := cookiejar.New(nil)
		jarClient := &httpx.Client{HTTP: &http.Client{
			Timeout:   httpClient.HTTP.Timeout,
			Transport: httpClient.HTTP.Transport,
			Jar:       jar,
		}}
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
		st := yahoo.New(yahoo.Config{
			BaseURL:       cfg.Yahoo.Endpoint,
			DefaultSuffix: cfg.Yahoo.DefaultSuffix,
		}, httpClient, log)
		if err := st.Probe(ctx); err != nil {
			log.Warn().Err(err).Msg("yahoo strategy unavailable")
		} else {
			var s strategy.Strategy = st
			if cfg.Yahoo.MaxRequestsPerMinute > 0 {
				rate := float64(cfg.Yahoo.MaxRequestsPerMinute) / 60.0
				burst := cfg.Yahoo.Burst
				if burst <= 0 {
					burst = 1
				}
				s = &ratelimit.TokenBucketStrategy{S: s, TB: ratelimit.NewTokenBucket(rate, burst)}
			}
			strategies = append(strategies, s)
		}
	}

	if cfg.Synth.Enabled {
		strategies = append(strategies, synth.New())
	}

	return strategies
}
