// Package cmd implements the ctax command line application.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/cryptotax"
	"github.com/etnz/cryptotax/config"
	"github.com/etnz/cryptotax/docs"
	"github.com/etnz/cryptotax/logger"
	"github.com/etnz/cryptotax/price"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
	"go.uber.org/zap"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&reportCmd{}, "tax")
	c.Register(&ledgerCmd{}, "tax")
	c.Register(&countriesCmd{}, "tax")

	c.Register(&priceCmd{}, "prices")

	c.Register(&topicCmd{}, "help")
}

// Completion describes the command line for shell completion.
func Completion() *complete.Command {
	countries := predict.Set(cryptotax.DefaultRegistry().Countries())
	ledgers := predict.Files("*.jsonl")
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"report": {
				Flags: map[string]complete.Predictor{
					"country": countries,
					"year":    predict.Something,
					"format":  predict.Set{"markdown", "json"},
					"o":       predict.Files("*"),
					"prices":  ledgers,
					"now":     predict.Something,

					"withdrawals-as-disposals": predict.Nothing,
				},
				Args: ledgers,
			},
			"ledger": {
				Args: ledgers,
			},
			"countries": {},
			"price": {
				Flags: map[string]complete.Predictor{
					"d":        predict.Something,
					"currency": predict.Set{"USD", "EUR"},
					"chain":    predict.Something,
					"address":  predict.Something,
				},
				Args: predict.Something,
			},
			"topic": {
				Args: predict.Set(append(docs.Names(), "*")),
			},
		},
	}
}

// setup loads the configuration and initializes the global logger.
func setup() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.Env, cfg.LogLevel)
	return cfg, logger.Get(), nil
}

// newResolver returns the price resolver of the configuration, or a resolver
// over a static price file when pricesFile is set. close releases the store.
func newResolver(cfg *config.Config, pricesFile string, log *zap.SugaredLogger) (r *price.Resolver, close func(), err error) {
	opts := price.Options{
		Timeout: cfg.RequestTimeout,
		Retries: cfg.Retries,
		Backoff: cfg.RetryBackoff,
		Log:     log,
	}
	if pricesFile != "" {
		f, err := os.Open(pricesFile)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		static, err := price.LoadStatic(f)
		if err != nil {
			return nil, nil, fmt.Errorf("loading prices %q: %w", pricesFile, err)
		}
		opts.Retries = 0
		return price.NewResolver(static, static, opts), func() {}, nil
	}

	close = func() {}
	if cfg.CachePath != "" {
		store, err := price.OpenSQLStore(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		opts.Store = store
		close = func() {
			if err := store.Close(); err != nil {
				log.Warnw("closing price store", "error", err)
			}
		}
	}
	gecko := price.NewCoinGecko(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey, cfg.RateLimitPerMinute)
	fx := price.NewFrankfurter(cfg.FXURL)
	return price.NewResolver(gecko, fx, opts), close, nil
}

// decodeFiles reads one batch per file. Each file name is the default source
// of its transactions.
func decodeFiles(names []string) (batches [][]cryptotax.Transaction, diagnostics []cryptotax.AuditEntry, err error) {
	for _, name := range names {
		f, err := os.Open(name)
		if err != nil {
			return nil, nil, err
		}
		source := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		txs, diags, err := cryptotax.DecodeTransactions(f, source)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		batches = append(batches, txs)
		diagnostics = append(diagnostics, diags...)
	}
	return batches, diagnostics, nil
}

// printMarkdown renders markdown for the terminal, or prints it raw when it
// cannot.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
