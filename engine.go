package cryptotax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/cryptotax/date"
	"go.uber.org/zap"
)

// DefaultWorkers bounds the concurrent price lookups and asset matchers.
const DefaultWorkers = 8

// Engine computes tax reports.
//
// Its zero value is not usable: Prices must be set. An Engine is safe for
// concurrent use when its PriceResolver is.
type Engine struct {
	Registry Registry      // defaults to DefaultRegistry()
	Prices   PriceResolver // required
	Ledger   LedgerOptions
	Workers  int              // defaults to DefaultWorkers
	Now      func() time.Time // report generation time, defaults to time.Now
	Log      *zap.SugaredLogger
}

// ComputeReport computes the report of a country for a year with the default
// engine settings.
func ComputeReport(ctx context.Context, prices PriceResolver, country string, year int, batches ...[]Transaction) (*TaxReport, error) {
	e := &Engine{Prices: prices}
	return e.ComputeReport(ctx, country, year, batches...)
}

// ComputeReport builds the ledger from the batches, prices and matches every
// transaction up to the end of year, and reports the transactions of year.
//
// Earlier transactions only feed the lot queues. An unknown country fails
// before anything else. Data problems never fail the computation, they are
// reported in the audit trail.
func (e *Engine) ComputeReport(ctx context.Context, country string, year int, batches ...[]Transaction) (*TaxReport, error) {
	registry := e.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	rules, err := registry.Lookup(country)
	if err != nil {
		return nil, err
	}
	if year <= 0 {
		return nil, fmt.Errorf("invalid tax year %d", year)
	}
	if e.Prices == nil {
		return nil, errors.New("no price resolver")
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	workers := e.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	log = log.With("country", rules.Country(), "year", year)

	opts := e.Ledger
	opts.Log = log
	ledger := BuildLedger(opts, batches...)

	period := date.Year(year)
	var scope, inYear []*Transaction
	for _, tx := range ledger.Transactions() {
		if !tx.Timestamp.Before(period.End()) {
			break
		}
		scope = append(scope, tx)
		if period.ContainsTime(tx.Timestamp) {
			inYear = append(inYear, tx)
		}
	}

	enricher := &Enricher{Prices: e.Prices, Currency: rules.Currency(), Workers: workers, Log: log}
	if err := enricher.Enrich(ctx, scope); err != nil {
		return nil, fmt.Errorf("enriching transactions: %w", err)
	}

	journal := newJournal(rules, log, scope)
	results, err := journal.match(ctx, rules, workers)
	if err != nil {
		return nil, fmt.Errorf("matching lots: %w", err)
	}
	merge(ledger, results, log)
	for _, tx := range scope {
		tx.settle(rules.Currency())
	}

	summary := Summarize(rules, year, inYear)
	log.Infow("report computed", "transactions", summary.TransactionCount, "net", summary.NetGainLoss.Decimal().String(), "taxable", summary.TaxableAmount.Decimal().String())
	return Assemble(rules, year, now(), summary, inYear, ledger.Diagnostics()), nil
}
