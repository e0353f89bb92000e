package cryptotax

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/etnz/cryptotax/date"
	"github.com/shopspring/decimal"
)

var (
	BTC = Token{Symbol: "BTC", Chain: "bitcoin", Decimals: 8}
	ETH = Token{Symbol: "ETH", Chain: "ethereum", Decimals: 18}
	SOL = Token{Symbol: "SOL", Chain: "solana", Decimals: 9}
	EUR = Fiat("EUR")
)

// eur is a helper for test to create euro money from const
func eur(v float64) Money { return M(v, "EUR") }

// at parses a RFC3339 time or a date at noon UTC.
func at(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return date.MustParse(s).Time().Add(12 * time.Hour)
}

func tok(t Token) *Token { return &t }

// fakePrices is a PriceResolver over fixed daily USD prices, with USD worth
// one EUR unless a rate is set. It counts calls.
type fakePrices struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal // symbol|day
	rates  map[string]decimal.Decimal // day, USD to EUR
	calls  int
}

func newFakePrices() *fakePrices {
	return &fakePrices{prices: map[string]decimal.Decimal{}, rates: map[string]decimal.Decimal{}}
}

func (f *fakePrices) set(symbol, day string, usd float64) *fakePrices {
	f.prices[symbol+"|"+day] = decimal.NewFromFloat(usd)
	return f
}

func (f *fakePrices) Resolve(_ context.Context, token Token, at time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if token.IsFiat() {
		if token.Symbol == "USD" {
			return decimal.NewFromInt(1), nil
		}
		return decimal.NewFromInt(1).Div(f.rate(at)), nil
	}
	p, ok := f.prices[token.Symbol+"|"+date.FromTime(at).String()]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrPriceUnavailable, token)
	}
	return p, nil
}

func (f *fakePrices) Convert(_ context.Context, amountUSD decimal.Decimal, at time.Time, currency string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if currency == "USD" {
		return amountUSD, nil
	}
	return amountUSD.Mul(f.rate(at)), nil
}

func (f *fakePrices) rate(at time.Time) decimal.Decimal {
	if r, ok := f.rates[date.FromTime(at).String()]; ok {
		return r
	}
	return decimal.NewFromInt(1)
}

// txBuy returns a purchase of amount token paid with cost EUR.
func txBuy(id, ts string, token Token, amount, cost float64) Transaction {
	return Transaction{
		ID: id, Timestamp: at(ts), Type: Buy, Chain: token.Chain, Source: "exchange",
		TokenIn: tok(EUR), AmountIn: Q(cost),
		TokenOut: tok(token), AmountOut: Q(amount),
	}
}

// txSell returns a sale of amount token for proceeds EUR.
func txSell(id, ts string, token Token, amount, proceeds float64) Transaction {
	return Transaction{
		ID: id, Timestamp: at(ts), Type: Sell, Chain: token.Chain, Source: "exchange",
		TokenIn: tok(token), AmountIn: Q(amount),
		TokenOut: tok(EUR), AmountOut: Q(proceeds),
	}
}

// txReward returns a staking reward.
func txReward(id, ts string, token Token, amount float64) Transaction {
	return Transaction{
		ID: id, Timestamp: at(ts), Type: StakeReward, Chain: token.Chain, Source: "wallet",
		TokenOut: tok(token), AmountOut: Q(amount),
	}
}

// txOut returns an outgoing transfer from source.
func txOut(id, ts, source string, token Token, amount float64) Transaction {
	return Transaction{
		ID: id, Timestamp: at(ts), Type: Withdrawal, Chain: token.Chain, Source: source,
		TokenIn: tok(token), AmountIn: Q(amount),
	}
}

// txIn returns an incoming transfer to source.
func txIn(id, ts, source string, token Token, amount float64) Transaction {
	return Transaction{
		ID: id, Timestamp: at(ts), Type: Deposit, Chain: token.Chain, Source: source,
		TokenOut: tok(token), AmountOut: Q(amount),
	}
}
