// Package config loads the settings of the ctax tool from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/cryptotax"
	"github.com/etnz/cryptotax/price"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the tool configuration.
type Config struct {
	Env      string
	LogLevel string

	// Price providers
	CoinGeckoURL       string
	CoinGeckoAPIKey    string
	FXURL              string
	RateLimitPerMinute int

	// Price resolution
	CachePath      string // sqlite file for the durable price cache, empty for none
	RequestTimeout time.Duration
	Retries        int
	RetryBackoff   time.Duration

	// Engine
	Workers           int
	TransferWindow    time.Duration
	TransferTolerance decimal.Decimal

	// Rules
	WithdrawalsAreDisposals bool
}

// Load reads the configuration from the environment, after loading a .env
// file from the working directory when present.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv reads the configuration using getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Env:             get("CTAX_ENV", "development"),
		LogLevel:        get("CTAX_LOG_LEVEL", "info"),
		CoinGeckoURL:    get("CTAX_COINGECKO_URL", price.DefaultCoinGeckoURL),
		CoinGeckoAPIKey: get("CTAX_COINGECKO_API_KEY", ""),
		FXURL:           get("CTAX_FX_URL", price.DefaultFrankfurterURL),
		CachePath:       get("CTAX_CACHE_PATH", ""),
	}

	var err error
	if cfg.RateLimitPerMinute, err = parseInt("CTAX_RATE_LIMIT_PER_MINUTE", get("CTAX_RATE_LIMIT_PER_MINUTE", "30"), 0); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = parseDuration("CTAX_REQUEST_TIMEOUT", get("CTAX_REQUEST_TIMEOUT", "30s")); err != nil {
		return nil, err
	}
	if cfg.Retries, err = parseInt("CTAX_RETRIES", get("CTAX_RETRIES", "3"), 0); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = parseDuration("CTAX_RETRY_BACKOFF", get("CTAX_RETRY_BACKOFF", "500ms")); err != nil {
		return nil, err
	}
	if cfg.Workers, err = parseInt("CTAX_WORKERS", get("CTAX_WORKERS", strconv.Itoa(cryptotax.DefaultWorkers)), 1); err != nil {
		return nil, err
	}
	if cfg.TransferWindow, err = parseDuration("CTAX_TRANSFER_WINDOW", get("CTAX_TRANSFER_WINDOW", cryptotax.DefaultTransferWindow.String())); err != nil {
		return nil, err
	}
	tol := get("CTAX_TRANSFER_TOLERANCE", "0")
	if cfg.TransferTolerance, err = decimal.NewFromString(tol); err != nil || cfg.TransferTolerance.IsNegative() {
		return nil, fmt.Errorf("invalid CTAX_TRANSFER_TOLERANCE %q: want a non negative decimal", tol)
	}
	wd := get("CTAX_WITHDRAWALS_ARE_DISPOSALS", "false")
	if cfg.WithdrawalsAreDisposals, err = strconv.ParseBool(wd); err != nil {
		return nil, fmt.Errorf("invalid CTAX_WITHDRAWALS_ARE_DISPOSALS %q: want true or false", wd)
	}
	return cfg, nil
}

// Registry returns the supported jurisdictions with their configured rules.
func (c *Config) Registry() cryptotax.Registry {
	return cryptotax.NewRegistry(&cryptotax.Germany{WithdrawalsAreDisposals: c.WithdrawalsAreDisposals})
}

// LedgerOptions returns the ledger builder options.
func (c *Config) LedgerOptions() cryptotax.LedgerOptions {
	return cryptotax.LedgerOptions{TransferWindow: c.TransferWindow, TransferTolerance: c.TransferTolerance}
}

func parseInt(key, s string, min int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < min {
		return 0, fmt.Errorf("invalid %s %q: want an integer >= %d", key, s, min)
	}
	return n, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive duration like 30s", key, s)
	}
	return d, nil
}
