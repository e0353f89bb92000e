package cryptotax

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Treatment is what happens to one leg of a transaction in its asset's lot
// queue.
type Treatment int

const (
	// Ignore leaves the lot queue untouched.
	Ignore Treatment = iota
	// Acquire opens a lot at market value.
	Acquire
	// Earn opens a lot at market value and counts that value as income.
	Earn
	// Dispose consumes lots first-in first-out and realizes a gain or loss.
	Dispose
	// Relocate moves lots to the paired transfer's source, keeping their cost
	// basis and acquisition time.
	Relocate
)

func (t Treatment) String() string {
	switch t {
	case Ignore:
		return "ignore"
	case Acquire:
		return "acquire"
	case Earn:
		return "earn"
	case Dispose:
		return "dispose"
	case Relocate:
		return "relocate"
	default:
		return "unknown"
	}
}

// Classification is the tax treatment of a transaction before lot matching.
type Classification struct {
	Category Category
	Outgoing Treatment // token_in leg
	Incoming Treatment // token_out leg
	Note     string    // recorded in the audit trail when set
}

// Holding is the treatment of a matched lot slice given its holding period.
type Holding struct {
	// Exempt slices are ignored: neither their gain is taxable nor their
	// loss deductible.
	Exempt bool
}

// TaxableTotals are the inputs of the taxable amount.
type TaxableTotals struct {
	Gains  Money // sum of taxable gains
	Losses Money // sum of deductible losses, positive
	Income Money // staking income
}

// Rules is a country tax rule set.
type Rules interface {
	// Country is the ISO 3166 alpha-2 code of the jurisdiction.
	Country() string
	Name() string
	// Currency is the currency the report is computed in.
	Currency() string

	// Classify returns the treatment of a transaction.
	Classify(tx *Transaction) Classification
	// HoldingRule returns the treatment of a slice held for days.
	HoldingRule(days int) Holding
	// AggregateTaxable combines the year totals into the taxable amount.
	AggregateTaxable(year int, totals TaxableTotals) Money

	// Describe lists the rule parameters applied for a year, in plain text.
	Describe(year int) []string
}

// Registry holds the rule sets by country code.
type Registry map[string]Rules

// NewRegistry returns a registry with the given rule sets.
func NewRegistry(rules ...Rules) Registry {
	r := make(Registry)
	for _, x := range rules {
		r.Register(x)
	}
	return r
}

// DefaultRegistry returns a registry with all the built-in rule sets.
func DefaultRegistry() Registry { return NewRegistry(NewGermany()) }

// Register adds or replaces a rule set.
func (r Registry) Register(rules Rules) { r[strings.ToUpper(rules.Country())] = rules }

// Lookup returns the rules for a country code, case insensitive.
func (r Registry) Lookup(country string) (Rules, error) {
	rules, ok := r[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedJurisdiction, country, strings.Join(r.Countries(), ", "))
	}
	return rules, nil
}

// Countries returns the sorted supported country codes.
func (r Registry) Countries() []string {
	codes := lo.Keys(r)
	slices.Sort(codes)
	return codes
}
