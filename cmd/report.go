package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/etnz/cryptotax"
	"github.com/etnz/cryptotax/renderer"
	"github.com/google/subcommands"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	country string
	year    int
	format  string
	output  string
	prices  string
	now     string

	withdrawalsAsDisposals bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "compute the crypto tax report of a year" }
func (*reportCmd) Usage() string {
	return `ctax report [-country DE] [-year <year>] [-format markdown|json] [-o <file>] [-prices <file>] [-withdrawals-as-disposals] <ledger.jsonl>...

  Computes the tax report of a year from one or more ledger files, one per
  wallet or exchange. Transactions of earlier years must be included: they
  build the lots disposed of during the year.

  Prices come from CoinGecko and Frankfurter unless -prices names a static
  price file. See 'ctax topic prices'.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.country, "country", "DE", "Tax jurisdiction, see 'ctax countries'.")
	f.IntVar(&c.year, "year", time.Now().Year()-1, "Tax year.")
	f.StringVar(&c.format, "format", "markdown", "Output format: markdown or json.")
	f.StringVar(&c.output, "o", "", "Write the report to a file instead of the terminal.")
	f.StringVar(&c.prices, "prices", "", "Static price file (JSONL) to use instead of the online providers.")
	f.StringVar(&c.now, "now", "", "Fixed generation time (RFC3339), for reproducible reports.")
	f.BoolVar(&c.withdrawalsAsDisposals, "withdrawals-as-disposals", false, "Dispose of withdrawals that match no deposit at market value, overrides CTAX_WITHDRAWALS_ARE_DISPOSALS.")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one ledger file is required")
		return subcommands.ExitUsageError
	}
	if c.format != "markdown" && c.format != "json" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}
	now := time.Now
	if c.now != "" {
		at, err := time.Parse(time.RFC3339, c.now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -now: %v\n", err)
			return subcommands.ExitUsageError
		}
		now = func() time.Time { return at }
	}

	cfg, log, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.withdrawalsAsDisposals {
		cfg.WithdrawalsAreDisposals = true
	}

	batches, diagnostics, err := decodeFiles(f.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	resolver, closeResolver, err := newResolver(cfg, c.prices, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing prices: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeResolver()

	opts := cfg.LedgerOptions()
	opts.Upstream = diagnostics
	engine := &cryptotax.Engine{
		Registry: cfg.Registry(),
		Prices:   resolver,
		Ledger:   opts,
		Workers:  cfg.Workers,
		Now:      now,
		Log:      log,
	}
	report, err := engine.ComputeReport(ctx, c.country, c.year, batches...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing report: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.output == "" {
		if c.format == "json" {
			err = report.WriteJSON(os.Stdout)
		} else {
			printMarkdown(renderer.ReportMarkdown(report))
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	out, err := os.Create(c.output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %q: %v\n", c.output, err)
		return subcommands.ExitFailure
	}
	defer out.Close()
	if c.format == "json" {
		err = report.WriteJSON(out)
	} else {
		_, err = io.WriteString(out, renderer.ReportMarkdown(report))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report to %q: %v\n", c.output, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Report written to %s\n", c.output)
	return subcommands.ExitSuccess
}
