package price

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/etnz/cryptotax"
	"github.com/etnz/cryptotax/date"
	"github.com/shopspring/decimal"
)

// Static serves prices and rates from memory. It implements both
// PriceProvider and RateProvider.
type Static struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	rates  map[string]decimal.Decimal
}

// NewStatic returns an empty table.
func NewStatic() *Static {
	return &Static{prices: make(map[string]decimal.Decimal), rates: make(map[string]decimal.Decimal)}
}

// SetPrice records the USD price of an asset on a day. The asset is a symbol
// or a token key.
func (s *Static) SetPrice(asset string, day date.Date, usd decimal.Decimal) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[strings.ToUpper(asset)+"|"+day.String()] = usd
	return s
}

// SetRate records how many units of to one unit of from is worth on a day.
func (s *Static) SetRate(from, to string, day date.Date, rate decimal.Decimal) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[strings.ToUpper(from)+"/"+strings.ToUpper(to)+"|"+day.String()] = rate
	return s
}

// Price looks the token up by key, then by symbol.
func (s *Static) Price(_ context.Context, token cryptotax.Token, day date.Date) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, asset := range []string{string(token.Key()), token.Symbol} {
		if p, ok := s.prices[strings.ToUpper(asset)+"|"+day.String()]; ok {
			return p, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s on %s", cryptotax.ErrPriceNotFound, token, day)
}

// Rate returns the recorded rate, or the inverse of the reverse rate.
func (s *Static) Rate(_ context.Context, from, to string, day date.Date) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rates[from+"/"+to+"|"+day.String()]; ok {
		return r, nil
	}
	if r, ok := s.rates[to+"/"+from+"|"+day.String()]; ok && !r.IsZero() {
		return decimal.NewFromInt(1).Div(r), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s/%s on %s", cryptotax.ErrPriceNotFound, from, to, day)
}

// staticLine is one line of a price file: either a price or a rate.
type staticLine struct {
	Date  date.Date       `json:"date"`
	Asset string          `json:"asset"`
	USD   decimal.Decimal `json:"usd"`
	From  string          `json:"from"`
	To    string          `json:"to"`
	Rate  decimal.Decimal `json:"rate"`
}

// LoadStatic reads a JSON Lines price file:
//
//	{"date":"2023-06-01","asset":"SOL","usd":"20.5"}
//	{"date":"2023-06-01","from":"USD","to":"EUR","rate":"0.93"}
func LoadStatic(r io.Reader) (*Static, error) {
	s := NewStatic()
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var l staticLine
		if err := json.Unmarshal([]byte(line), &l); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		switch {
		case l.Asset != "":
			s.SetPrice(l.Asset, l.Date, l.USD)
		case l.From != "" && l.To != "":
			s.SetRate(l.From, l.To, l.Date, l.Rate)
		default:
			return nil, fmt.Errorf("line %d: neither an asset price nor a rate", n)
		}
	}
	return s, scanner.Err()
}
