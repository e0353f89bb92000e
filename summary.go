package cryptotax

// TaxSummary holds the year totals, in the report currency.
type TaxSummary struct {
	TotalGains       Money // taxable gains
	TotalLosses      Money // deductible losses, positive
	NetGainLoss      Money
	StakingRewards   Money
	TaxableAmount    Money
	TransactionCount int // including unpriced transactions
}

// Summarize totals the matched slices and the income of txs. Exempt slices
// are left out of both gains and losses. Unpriced transactions have no slice
// and no income but are counted.
func Summarize(rules Rules, year int, txs []*Transaction) TaxSummary {
	zero := M(0, rules.Currency())
	gains, losses, income := zero, zero, zero
	for _, tx := range txs {
		for _, m := range tx.Matches {
			if m.Exempt {
				continue
			}
			switch {
			case m.GainLoss.IsPositive():
				gains = gains.Add(m.GainLoss)
			case m.GainLoss.IsNegative():
				losses = losses.Add(m.GainLoss.Abs())
			}
		}
		if tx.Income.IsSet() {
			income = income.Add(tx.Income)
		}
	}
	return TaxSummary{
		TotalGains:       gains,
		TotalLosses:      losses,
		NetGainLoss:      gains.Sub(losses),
		StakingRewards:   income,
		TaxableAmount:    rules.AggregateTaxable(year, TaxableTotals{Gains: gains, Losses: losses, Income: income}),
		TransactionCount: len(txs),
	}
}

func (s TaxSummary) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("total_gains", s.TotalGains)
	w.Append("total_losses", s.TotalLosses)
	w.Append("net_gain_loss", s.NetGainLoss)
	w.Append("staking_rewards", s.StakingRewards)
	w.Append("taxable_amount", s.TaxableAmount)
	w.Append("transaction_count", s.TransactionCount)
	return w.MarshalJSON()
}
