package price

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/cryptotax"
	"github.com/etnz/cryptotax/date"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// DefaultCoinGeckoURL is the public CoinGecko API.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// coinGeckoIDs maps common symbols to CoinGecko coin ids. Other symbols are
// looked up by their lower case symbol.
var coinGeckoIDs = map[string]string{
	"SOL":   "solana",
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
	"BNB":   "binancecoin",
	"ADA":   "cardano",
	"DOT":   "polkadot",
}

// CoinGecko reads daily historical USD prices from the CoinGecko API.
type CoinGecko struct {
	BaseURL string
	APIKey  string            // demo API key, optional
	IDs     map[string]string // symbol to coin id overrides
	Client  *http.Client

	limiter *rate.Limiter
}

// NewCoinGecko returns a client limited to perMinute requests. Zero or less
// means no limit.
func NewCoinGecko(baseURL, apiKey string, perMinute int) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	return &CoinGecko{BaseURL: strings.TrimSuffix(baseURL, "/"), APIKey: apiKey, Client: new(http.Client), limiter: limiter}
}

// ID returns the CoinGecko coin id of a token.
func (c *CoinGecko) ID(token cryptotax.Token) string {
	symbol := strings.ToUpper(token.Symbol)
	if id, ok := c.IDs[symbol]; ok {
		return id
	}
	if id, ok := coinGeckoIDs[symbol]; ok {
		return id
	}
	return strings.ToLower(token.Symbol)
}

// Price returns the USD price of token on day.
func (c *CoinGecko) Price(ctx context.Context, token cryptotax.Token, day date.Date) (decimal.Decimal, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return decimal.Zero, err
		}
	}
	q := url.Values{}
	q.Set("date", day.Format("02-01-2006"))
	q.Set("localization", "false")
	if c.APIKey != "" {
		q.Set("x_cg_demo_api_key", c.APIKey)
	}
	addr := fmt.Sprintf("%s/coins/%s/history?%s", c.BaseURL, url.PathEscape(c.ID(token)), q.Encode())

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	var doc any
	if err := jwget(ctx, client, addr, &doc); err != nil {
		return decimal.Zero, fmt.Errorf("coingecko %s on %s: %w", token, day, err)
	}
	p, err := jdecimal(doc, "$.market_data.current_price.usd")
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko %s on %s: %w", token, day, err)
	}
	return p, nil
}
