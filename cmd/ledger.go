package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cryptotax"
	"github.com/google/subcommands"
)

// ledgerCmd checks ledger files without pricing them.
type ledgerCmd struct{}

func (*ledgerCmd) Name() string     { return "ledger" }
func (*ledgerCmd) Synopsis() string { return "check ledger files" }
func (*ledgerCmd) Usage() string {
	return `ctax ledger <ledger.jsonl>...

  Merges the ledger files and lists their sources, assets, skipped records,
  duplicates and possible internal transfers. No price is fetched.
`
}

func (c *ledgerCmd) SetFlags(f *flag.FlagSet) {}

func (c *ledgerCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one ledger file is required")
		return subcommands.ExitUsageError
	}
	cfg, log, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	batches, diagnostics, err := decodeFiles(f.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	opts := cfg.LedgerOptions()
	opts.Upstream = diagnostics
	opts.Log = log
	l := cryptotax.BuildLedger(opts, batches...)

	var b strings.Builder
	fmt.Fprint(&b, "# Ledger\n\n")
	fmt.Fprintf(&b, "%d transactions from %s.\n\n", l.Len(), strings.Join(l.Sources(), ", "))
	fmt.Fprint(&b, "## Assets\n\n")
	fmt.Fprintln(&b, "| Asset | Transactions |")
	fmt.Fprintln(&b, "|:---|---:|")
	for _, k := range l.Assets() {
		fmt.Fprintf(&b, "| %s | %d |\n", k, len(l.Asset(k)))
	}
	fmt.Fprint(&b, "\n## Diagnostics\n\n")
	for _, e := range l.Diagnostics() {
		fmt.Fprintf(&b, "* %s\n", e)
	}
	for _, tx := range l.Transactions() {
		for _, e := range tx.Audit() {
			fmt.Fprintf(&b, "* %s\n", e)
		}
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
