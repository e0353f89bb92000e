package price

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/cryptotax"
	"github.com/etnz/cryptotax/date"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PriceProvider fetches the USD price of a token on a day.
type PriceProvider interface {
	Price(ctx context.Context, token cryptotax.Token, day date.Date) (decimal.Decimal, error)
}

// RateProvider fetches how many units of to one unit of from is worth on a day.
type RateProvider interface {
	Rate(ctx context.Context, from, to string, day date.Date) (decimal.Decimal, error)
}

// Options tunes a Resolver.
type Options struct {
	Timeout time.Duration // per provider call, default 30s
	Retries int           // extra attempts after a failed call
	Backoff time.Duration // wait before the first retry, doubled on each retry
	Store   Store         // optional durable cache
	Log     *zap.SugaredLogger
}

// Resolver implements cryptotax.PriceResolver on top of providers.
type Resolver struct {
	prices PriceProvider
	rates  RateProvider
	opts   Options
	cache  *cache.Cache
	group  singleflight.Group
}

var _ cryptotax.PriceResolver = (*Resolver)(nil)

// NewResolver returns a resolver. rates may be nil when only USD is needed.
func NewResolver(prices PriceProvider, rates RateProvider, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	return &Resolver{
		prices: prices,
		rates:  rates,
		opts:   opts,
		// historical prices never change: no expiration, no janitor.
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func priceKey(token cryptotax.Token, day date.Date) string {
	return "price|" + string(token.Key()) + "|" + day.String()
}

func rateKey(from, to string, day date.Date) string {
	return "fx|" + from + "/" + to + "|" + day.String()
}

// Resolve returns the USD price of one unit of token on the UTC day of at.
func (r *Resolver) Resolve(ctx context.Context, token cryptotax.Token, at time.Time) (decimal.Decimal, error) {
	if token.IsFiat() {
		return r.Rate(ctx, token.Symbol, "USD", at)
	}
	day := date.FromTime(at)
	return r.lookup(ctx, priceKey(token, day), func(ctx context.Context) (decimal.Decimal, error) {
		if r.prices == nil {
			return decimal.Zero, fmt.Errorf("%w: no price provider", cryptotax.ErrPriceNotFound)
		}
		return r.prices.Price(ctx, token, day)
	})
}

// Rate returns how many units of to one unit of from is worth on the UTC
// day of at.
func (r *Resolver) Rate(ctx context.Context, from, to string, at time.Time) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	day := date.FromTime(at)
	return r.lookup(ctx, rateKey(from, to, day), func(ctx context.Context) (decimal.Decimal, error) {
		if r.rates == nil {
			return decimal.Zero, fmt.Errorf("%w: no rate provider", cryptotax.ErrPriceNotFound)
		}
		return r.rates.Rate(ctx, from, to, day)
	})
}

// Convert converts an USD amount to currency at the rate of the UTC day of at.
func (r *Resolver) Convert(ctx context.Context, amountUSD decimal.Decimal, at time.Time, currency string) (decimal.Decimal, error) {
	rate, err := r.Rate(ctx, "USD", currency, at)
	if err != nil {
		return decimal.Zero, err
	}
	return amountUSD.Mul(rate), nil
}

// lookup reads key from the caches or fetches it once, even when called
// concurrently for the same key. A key that failed after all retries keeps
// failing for the life of the resolver without calling the provider again.
func (r *Resolver) lookup(ctx context.Context, key string, fetch func(context.Context) (decimal.Decimal, error)) (decimal.Decimal, error) {
	if v, ok := r.cache.Get(key); ok {
		return cached(v)
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		// a concurrent flight may have completed since the first check.
		if v, ok := r.cache.Get(key); ok {
			return v, nil
		}
		if r.opts.Store != nil {
			v, ok, err := r.opts.Store.Get(ctx, key)
			if err != nil {
				r.opts.Log.Warnw("price store read failed", "key", key, "error", err)
			} else if ok {
				_ = r.cache.Add(key, v, cache.NoExpiration)
				return v, nil
			}
		}
		v, err := r.fetch(ctx, key, fetch)
		if err != nil {
			if ctx.Err() == nil {
				_ = r.cache.Add(key, err, cache.NoExpiration)
			}
			return nil, err
		}
		_ = r.cache.Add(key, v, cache.NoExpiration)
		if r.opts.Store != nil {
			if err := r.opts.Store.Put(ctx, key, v); err != nil {
				r.opts.Log.Warnw("price store write failed", "key", key, "error", err)
			}
		}
		return v, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return cached(v)
}

// cached unwraps a cache entry: a value or a remembered failure.
func cached(v any) (decimal.Decimal, error) {
	if err, ok := v.(error); ok {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// fetch calls the provider with a timeout per attempt and retries failures
// that may be transient.
func (r *Resolver) fetch(ctx context.Context, key string, fetch func(context.Context) (decimal.Decimal, error)) (decimal.Decimal, error) {
	var last error
	for attempt := 0; attempt <= r.opts.Retries; attempt++ {
		if attempt > 0 {
			wait := r.opts.Backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return decimal.Zero, ctx.Err()
			case <-time.After(wait):
			}
		}
		actx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		v, err := fetch(actx)
		cancel()
		if err == nil {
			return v, nil
		}
		last = err
		if ctx.Err() != nil {
			return decimal.Zero, ctx.Err()
		}
		if !retryable(err) {
			break
		}
		r.opts.Log.Debugw("price fetch failed", "key", key, "attempt", attempt+1, "error", err)
	}
	return decimal.Zero, fmt.Errorf("%w: %s: %w", cryptotax.ErrPriceUnavailable, key, last)
}

func retryable(err error) bool {
	if errors.Is(err, cryptotax.ErrPriceNotFound) {
		return false
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.Temporary()
	}
	return true
}
