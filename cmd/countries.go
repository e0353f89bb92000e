package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
)

type countriesCmd struct {
	year int
}

func (*countriesCmd) Name() string     { return "countries" }
func (*countriesCmd) Synopsis() string { return "list supported tax jurisdictions" }
func (*countriesCmd) Usage() string {
	return `ctax countries [-year <year>]

  Lists the supported jurisdictions and the rules they apply for a year.
`
}

func (c *countriesCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", time.Now().Year()-1, "Tax year the rules are described for.")
}

func (c *countriesCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, _, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	registry := cfg.Registry()
	var b strings.Builder
	for _, code := range registry.Countries() {
		rules, _ := registry.Lookup(code)
		fmt.Fprintf(&b, "# %s: %s (%s)\n\n", code, rules.Name(), rules.Currency())
		for _, line := range rules.Describe(c.year) {
			fmt.Fprintf(&b, "* %s\n", line)
		}
		fmt.Fprintln(&b)
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
