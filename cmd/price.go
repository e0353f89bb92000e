package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/cryptotax"
	"github.com/etnz/cryptotax/date"
	"github.com/google/subcommands"
)

// priceCmd resolves one historical price, filling the price cache.
type priceCmd struct {
	day      string
	currency string
	chain    string
	address  string
	prices   string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "show the historical price of a token" }
func (*priceCmd) Usage() string {
	return `ctax price [-d <date>] [-currency EUR] [-chain <chain>] [-address <contract>] <symbol>

  Resolves the daily price of a token the way reports do, through the price
  cache. A fiat currency symbol shows its exchange rate.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.day, "d", date.FromTime(time.Now()).Add(-1).String(), "Day of the price (YYYY-MM-DD).")
	f.StringVar(&c.currency, "currency", "USD", "Currency to show the price in.")
	f.StringVar(&c.chain, "chain", "", "Chain of the token, 'fiat' for a currency.")
	f.StringVar(&c.address, "address", "", "Contract address of the token.")
	f.StringVar(&c.prices, "prices", "", "Static price file (JSONL) to use instead of the online providers.")
}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one symbol is required")
		return subcommands.ExitUsageError
	}
	day, err := date.Parse(c.day)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	currency := strings.ToUpper(c.currency)
	if !cryptotax.ValidCurrency(currency) {
		fmt.Fprintf(os.Stderr, "Error: unknown currency %q\n", c.currency)
		return subcommands.ExitUsageError
	}

	token := cryptotax.Token{Symbol: strings.ToUpper(f.Arg(0)), Chain: c.chain, Address: c.address}
	if token.Chain == "" && cryptotax.ValidCurrency(token.Symbol) {
		token = cryptotax.Fiat(token.Symbol)
	}

	cfg, log, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	resolver, closeResolver, err := newResolver(cfg, c.prices, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing prices: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeResolver()

	usd, err := resolver.Resolve(ctx, token, day.Time())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving price: %v\n", err)
		return subcommands.ExitFailure
	}
	value, err := resolver.Convert(ctx, usd, day.Time(), currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting to %s: %v\n", currency, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s %s %s %s\n", day, token, value.String(), currency)
	return subcommands.ExitSuccess
}
