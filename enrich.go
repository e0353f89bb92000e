package cryptotax

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PriceResolver gives historical prices.
//
// Implementations must be safe for concurrent use. A price that cannot be
// obtained is reported with an error wrapping ErrPriceUnavailable.
type PriceResolver interface {
	// Resolve returns the USD price of one unit of token at a time.
	Resolve(ctx context.Context, token Token, at time.Time) (decimal.Decimal, error)
	// Convert returns an USD amount in currency at a time.
	Convert(ctx context.Context, amountUSD decimal.Decimal, at time.Time, currency string) (decimal.Decimal, error)
}

// Enricher attaches prices to transactions.
type Enricher struct {
	Prices   PriceResolver
	Currency string // report currency
	Workers  int
	Log      *zap.SugaredLogger
}

// Enrich sets the USD and report currency prices of every leg of every
// transaction. Transactions are priced concurrently and independently.
//
// Legs without a price are left unset and flagged. Only a cancelled context
// is an error.
func (e *Enricher) Enrich(ctx context.Context, txs []*Transaction) error {
	log := e.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	g, ctx := errgroup.WithContext(ctx)
	if e.Workers > 0 {
		g.SetLimit(e.Workers)
	}
	for _, tx := range txs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.enrich(ctx, log, tx)
			return ctx.Err()
		})
	}
	return g.Wait()
}

func (e *Enricher) enrich(ctx context.Context, log *zap.SugaredLogger, tx *Transaction) {
	if tx.TokenIn != nil {
		tx.PriceInUSD, tx.PriceIn = e.price(ctx, log, tx, *tx.TokenIn, "token_in")
	}
	if tx.TokenOut != nil {
		tx.PriceOutUSD, tx.PriceOut = e.price(ctx, log, tx, *tx.TokenOut, "token_out")
	}
	if tx.HasFee() {
		var unit Money
		tx.FeePriceUSD, unit = e.price(ctx, log, tx, *tx.FeeToken, "fee_token")
		if unit.IsSet() {
			tx.FeeValue = unit.Mul(tx.Fee)
		}
	}
}

// price returns the USD unit price and the report currency unit price of
// token at the transaction time. Both are unset when unavailable.
func (e *Enricher) price(ctx context.Context, log *zap.SugaredLogger, tx *Transaction, token Token, leg string) (usd, local Money) {
	p, err := e.Prices.Resolve(ctx, token, tx.Timestamp)
	if err != nil {
		e.missing(log, tx, token, leg, err)
		return Money{}, Money{}
	}
	usd = M(p, "USD")
	if token.IsFiat() && strings.EqualFold(token.Symbol, e.Currency) {
		return usd, M(1, e.Currency)
	}
	c, err := e.Prices.Convert(ctx, p, tx.Timestamp, e.Currency)
	if err != nil {
		e.missing(log, tx, token, leg, err)
		return usd, Money{}
	}
	return usd, M(c, e.Currency)
}

func (e *Enricher) missing(log *zap.SugaredLogger, tx *Transaction, token Token, leg string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	log.Warnw("price unavailable", "id", tx.ID, "asset", token.Key(), "leg", leg, "error", err)
	tx.flag(AuditMissingPrice, "no %s price for %s (%s) on %s", e.Currency, token, leg, tx.Timestamp.Format(time.DateOnly))
}
