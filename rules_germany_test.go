package cryptotax

import (
	"errors"
	"strings"
	"testing"
)

func TestGermany_Classify(t *testing.T) {
	paired := txOut("o", "2023-05-01", "exchange", BTC, 1)
	paired.PairedWith = "i"
	swap := Transaction{ID: "sw", Timestamp: at("2023-05-01"), Type: Swap, Source: "dex",
		TokenIn: tok(ETH), AmountIn: Q(1), TokenOut: tok(SOL), AmountOut: Q(50)}

	tests := []struct {
		name string
		g    *Germany
		tx   Transaction
		want Classification
		note bool
	}{
		{
			name: "buy with fiat",
			tx:   txBuy("b", "2023-05-01", BTC, 1, 100),
			want: Classification{Category: CategoryAcquisition, Incoming: Acquire},
		},
		{
			name: "sell for fiat",
			tx:   txSell("s", "2023-05-01", BTC, 1, 100),
			want: Classification{Category: CategoryTaxableDisposal, Outgoing: Dispose},
		},
		{
			name: "swap",
			tx:   swap,
			want: Classification{Category: CategoryTaxableDisposal, Outgoing: Dispose, Incoming: Acquire},
		},
		{
			name: "staking reward",
			tx:   txReward("r", "2023-05-01", ETH, 0.1),
			want: Classification{Category: CategoryIncome, Incoming: Earn},
		},
		{
			name: "paired transfer",
			tx:   paired,
			want: Classification{Category: CategoryTransfer, Outgoing: Relocate},
		},
		{
			name: "unpaired deposit",
			tx:   txIn("i", "2023-05-01", "wallet", BTC, 1),
			want: Classification{Category: CategoryAcquisition, Incoming: Acquire},
			note: true,
		},
		{
			name: "unpaired withdrawal",
			tx:   txOut("o", "2023-05-01", "wallet", BTC, 1),
			want: Classification{Category: CategoryTransfer},
			note: true,
		},
		{
			name: "unpaired withdrawal as disposal",
			g:    &Germany{WithdrawalsAreDisposals: true},
			tx:   txOut("o", "2023-05-01", "wallet", BTC, 1),
			want: Classification{Category: CategoryTaxableDisposal, Outgoing: Dispose},
			note: true,
		},
		{
			name: "fiat deposit",
			tx:   txIn("f", "2023-05-01", "exchange", EUR, 1000),
			want: Classification{Category: CategoryTransfer},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := tc.g
			if g == nil {
				g = NewGermany()
			}
			got := g.Classify(&tc.tx)
			if (got.Note != "") != tc.note {
				t.Errorf("Classify() note = %q, want note %v", got.Note, tc.note)
			}
			got.Note = ""
			if got != tc.want {
				t.Errorf("Classify() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestGermany_AggregateTaxable(t *testing.T) {
	tests := []struct {
		name string
		year int
		t    TaxableTotals
		want Money
	}{
		{name: "below 2023 limit", year: 2023, t: TaxableTotals{Gains: eur(599.99)}, want: eur(0)},
		{name: "at 2023 limit", year: 2023, t: TaxableTotals{Gains: eur(600)}, want: eur(600)},
		{name: "2024 limit", year: 2024, t: TaxableTotals{Gains: eur(999)}, want: eur(0)},
		{name: "above 2024 limit", year: 2024, t: TaxableTotals{Gains: eur(1500), Losses: eur(200)}, want: eur(1300)},
		{name: "net loss", year: 2023, t: TaxableTotals{Gains: eur(100), Losses: eur(800)}, want: eur(0)},
		{name: "income below limit", year: 2023, t: TaxableTotals{Income: eur(255)}, want: eur(0)},
		{name: "income and sales", year: 2023, t: TaxableTotals{Gains: eur(700), Income: eur(300)}, want: eur(1000)},
		{name: "limits are separate", year: 2023, t: TaxableTotals{Gains: eur(500), Income: eur(200)}, want: eur(0)},
		{name: "unset totals", year: 2023, want: eur(0)},
	}
	g := NewGermany()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.AggregateTaxable(tc.year, tc.t); !got.Equal(tc.want) {
				t.Errorf("AggregateTaxable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGermany_Describe(t *testing.T) {
	tests := []struct {
		name   string
		g      *Germany
		year   int
		want   []string
		absent string
	}{
		{
			name:   "defaults",
			g:      NewGermany(),
			year:   2023,
			want:   []string{"more than 365 days", "in 2023", "§ 22 Nr. 3 EStG", "not added to the private sales gain", "are not disposals"},
			absent: "are disposals",
		},
		{
			name: "withdrawals as disposals",
			g:    &Germany{WithdrawalsAreDisposals: true},
			year: 2024,
			want: []string{"in 2024", "unmatched outgoing transfers are disposals"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text := strings.Join(tc.g.Describe(tc.year), "\n")
			for _, w := range tc.want {
				if !strings.Contains(text, w) {
					t.Errorf("Describe(%d) misses %q:\n%s", tc.year, w, text)
				}
			}
			if tc.absent != "" && strings.Contains(text, tc.absent) {
				t.Errorf("Describe(%d) contains %q:\n%s", tc.year, tc.absent, text)
			}
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := DefaultRegistry()
	for _, code := range []string{"DE", "de"} {
		rules, err := r.Lookup(code)
		if err != nil || rules.Country() != "DE" {
			t.Errorf("Lookup(%q) = %v, %v, want Germany", code, rules, err)
		}
	}
	if _, err := r.Lookup("XX"); !errors.Is(err, ErrUnsupportedJurisdiction) {
		t.Errorf("Lookup(XX) error = %v, want ErrUnsupportedJurisdiction", err)
	}
}
