package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Cache struct {
	TTLSeconds int `json:"ttl_sec"`
	MaxItems   int `json:"max_items"`
}

type Breaker struct {
	FailureThreshold   int `json:"failure_threshold"`
	RecoveryTimeoutSec int `json:"recovery_timeout_sec"`
}

type Fetch struct {
	MaxWorkers      int `json:"max_workers"`
	BatchTimeoutSec int `json:"batch_timeout_sec"`
}

type NSE struct {
	Enabled              bool   `json:"enabled"`
	Endpoint             string `json:"endpoint"`
	MinRequestIntervalMS int    `json:"min_request_interval_ms"`
}

type Yahoo struct {
	Enabled              bool   `json:"enabled"`
	Endpoint             string `json:"endpoint"`
	DefaultSuffix        string `json:"default_suffix"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
	Burst                int    `json:"burst"`
}

type Synth struct {
	Enabled bool `json:"enabled"`
}

type Config struct {
	Server  Server  `json:"server"`
	Cache   Cache   `json:"cache"`
	Breaker Breaker `json:"breaker"`
	Fetch   Fetch   `json:"fetch"`
	NSE     NSE     `json:"nse"`
	Yahoo   Yahoo   `json:"yahoo"`
	Synth   Synth   `json:"synth"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Cache:  Cache{TTLSeconds: 60, MaxItems: 1000},
		Breaker: Breaker{
			FailureThreshold:   5,
			RecoveryTimeoutSec: 60,
		},
		Fetch: Fetch{MaxWorkers: 5, BatchTimeoutSec: 30},
		NSE: NSE{
			Enabled:              true,
			Endpoint:             "https://www.nseindia.com",
			MinRequestIntervalMS: 100,
		},
		Yahoo: Yahoo{
			Enabled:              true,
			Endpoint:             "https://query1.finance.yahoo.com",
			DefaultSuffix:        ".NS",
			MaxRequestsPerMinute: 120,
			Burst:                10,
		},
		Synth: Synth{Enabled: true},
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec)
	envInt("CACHE_TTL_SEC", &cfg.Cache.TTLSeconds)
	envInt("CACHE_MAX_ITEMS", &cfg.Cache.MaxItems)
	envInt("BREAKER_FAILURE_THRESHOLD", &cfg.Breaker.FailureThreshold)
	envInt("BREAKER_RECOVERY_TIMEOUT_SEC", &cfg.Breaker.RecoveryTimeoutSec)
	envInt("FETCH_MAX_WORKERS", &cfg.Fetch.MaxWorkers)
	envInt("FETCH_BATCH_TIMEOUT_SEC", &cfg.Fetch.BatchTimeoutSec)

	envBool("NSE_ENABLED", &cfg.NSE.Enabled)
	if v := os.Getenv("NSE_ENDPOINT"); v != "" {
		cfg.NSE.Endpoint = v
	}
	envInt("NSE_MIN_INTERVAL_MS", &cfg.NSE.MinRequestIntervalMS)

	envBool("YAHOO_ENABLED", &cfg.Yahoo.Enabled)
	if v := os.Getenv("YAHOO_ENDPOINT"); v != "" {
		cfg.Yahoo.Endpoint = v
	}
	if v := os.Getenv("YAHOO_DEFAULT_SUFFIX"); v != "" {
		cfg.Yahoo.DefaultSuffix = v
	}
	envInt("YAHOO_MAX_RPM", &cfg.Yahoo.MaxRequestsPerMinute)
	envInt("YAHOO_BURST", &cfg.Yahoo.Burst)

	envBool("SYNTH_ENABLED", &cfg.Synth.Enabled)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		var x int
		if _, err := fmt.Sscanf(v, "%d", &x); err == nil && x >= 0 {
			*dst = x
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			*dst = true
		case "0", "false", "no", "n":
			*dst = false
		}
	}
}
