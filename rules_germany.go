package cryptotax

import "fmt"

// germanHoldingPeriod is the number of days after which a private sale is
// no longer taxable (§ 23 Abs. 1 Nr. 2 EStG).
const germanHoldingPeriod = 365

// Germany implements the German rules for private crypto holdings.
type Germany struct {
	// WithdrawalsAreDisposals treats outgoing transfers with no matching
	// incoming transfer as disposals at market value. By default they are
	// transfers out of the tracked wallets and their lots are kept.
	WithdrawalsAreDisposals bool
}

// NewGermany returns the German rule set with default options.
func NewGermany() *Germany { return &Germany{} }

func (g *Germany) Country() string  { return "DE" }
func (g *Germany) Name() string     { return "Germany" }
func (g *Germany) Currency() string { return "EUR" }

func (g *Germany) Classify(tx *Transaction) Classification {
	out, in := Ignore, Ignore
	if tx.TokenIn != nil && !tx.TokenIn.IsFiat() {
		out = Dispose
	}
	if tx.TokenOut != nil && !tx.TokenOut.IsFiat() {
		in = Acquire
	}

	switch tx.Type {
	case StakeReward:
		return Classification{Category: CategoryIncome, Incoming: Earn}

	case Buy, Sell, Swap:
		if out == Dispose {
			return Classification{Category: CategoryTaxableDisposal, Outgoing: Dispose, Incoming: in}
		}
		return Classification{Category: CategoryAcquisition, Incoming: in}
	}

	// Deposit, Withdrawal and Transfer.
	if tx.PairedWith != "" {
		if out == Dispose {
			out = Relocate
		}
		return Classification{Category: CategoryTransfer, Outgoing: out}
	}
	if tx.IsIncomingTransfer() {
		if in == Ignore {
			return Classification{Category: CategoryTransfer}
		}
		return Classification{
			Category: CategoryAcquisition,
			Incoming: Acquire,
			Note:     "incoming transfer without a matching outgoing transfer, acquired at market value",
		}
	}
	if out == Ignore {
		return Classification{Category: CategoryTransfer}
	}
	if g.WithdrawalsAreDisposals {
		return Classification{
			Category: CategoryTaxableDisposal,
			Outgoing: Dispose,
			Note:     "outgoing transfer without a matching incoming transfer, disposed at market value",
		}
	}
	return Classification{
		Category: CategoryTransfer,
		Note:     "outgoing transfer without a matching incoming transfer, lots kept",
	}
}

// HoldingRule exempts slices held for more than a year.
func (g *Germany) HoldingRule(days int) Holding {
	return Holding{Exempt: days > germanHoldingPeriod}
}

// AggregateTaxable applies the exemption limits (Freigrenze) to the private
// sales net gain and to the staking income. Below its limit an amount is not
// taxable at all, at or above it is taxable in full. A net loss counts as
// zero.
func (g *Germany) AggregateTaxable(year int, t TaxableTotals) Money {
	zero := M(0, g.Currency())
	sales := zero.Add(t.Gains).Sub(t.Losses)
	if !sales.GreaterThanOrEqual(germanSalesLimit(year)) {
		sales = zero
	}
	income := zero.Add(t.Income)
	if !income.GreaterThanOrEqual(germanIncomeLimit) {
		income = zero
	}
	return sales.Add(income)
}

func (g *Germany) Describe(year int) []string {
	lines := []string{
		fmt.Sprintf("DE: FIFO per asset, disposals held more than %d days are exempt and their losses are not deductible", germanHoldingPeriod),
		"DE: staking rewards are income at market value on receipt and start a new holding period",
		fmt.Sprintf("DE: private sales are taxable only when the net gain reaches %s in %d", germanSalesLimit(year), year),
		fmt.Sprintf("DE: staking income is taxable only when it reaches %s (§ 22 Nr. 3 EStG), a limit of its own: it is not added to the private sales gain", germanIncomeLimit),
	}
	if g.WithdrawalsAreDisposals {
		lines = append(lines, "DE: unmatched outgoing transfers are disposals")
	} else {
		lines = append(lines, "DE: unmatched outgoing transfers are not disposals")
	}
	return lines
}

// germanSalesLimit is the private sales exemption limit (§ 23 Abs. 3 EStG).
func germanSalesLimit(year int) Money {
	if year >= 2024 {
		return M(1000, "EUR")
	}
	return M(600, "EUR")
}

// germanIncomeLimit is the other income exemption limit (§ 22 Nr. 3 EStG).
var germanIncomeLimit = M(256, "EUR")
