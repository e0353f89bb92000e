package price

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/etnz/cryptotax/date"
	"github.com/shopspring/decimal"
)

// DefaultFrankfurterURL is the public Frankfurter API serving ECB reference rates.
const DefaultFrankfurterURL = "https://api.frankfurter.app"

// Frankfurter reads daily ECB exchange rates. On days without a reference
// rate it answers with the previous business day.
type Frankfurter struct {
	BaseURL string
	Client  *http.Client
}

// NewFrankfurter returns a client for baseURL, or the public API when empty.
func NewFrankfurter(baseURL string) *Frankfurter {
	if baseURL == "" {
		baseURL = DefaultFrankfurterURL
	}
	return &Frankfurter{BaseURL: strings.TrimSuffix(baseURL, "/"), Client: new(http.Client)}
}

// Rate returns how many units of to one unit of from is worth on day.
func (f *Frankfurter) Rate(ctx context.Context, from, to string, day date.Date) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	addr := fmt.Sprintf("%s/%s?%s", f.BaseURL, day, q.Encode())

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	var doc any
	if err := jwget(ctx, client, addr, &doc); err != nil {
		return decimal.Zero, fmt.Errorf("frankfurter %s/%s on %s: %w", from, to, day, err)
	}
	r, err := jdecimal(doc, "$.rates."+to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("frankfurter %s/%s on %s: %w", from, to, day, err)
	}
	return r, nil
}
