package renderer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/etnz/cryptotax"
)

// ReportMarkdown renders a tax report to markdown.
func ReportMarkdown(r *cryptotax.TaxReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tax Report %s %d\n\n", r.Country, r.Year)
	fmt.Fprintf(&b, "Generated on %s, amounts in %s.\n\n", r.GeneratedAt.Format(time.RFC3339), r.Currency)

	s := r.Summary
	fmt.Fprint(&b, "## Summary\n\n")
	fmt.Fprintln(&b, "| | Amount |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Taxable gains | %s |\n", s.TotalGains)
	fmt.Fprintf(&b, "| Deductible losses | %s |\n", s.TotalLosses)
	fmt.Fprintf(&b, "| Net gain/loss | %s |\n", s.NetGainLoss.SignedString())
	fmt.Fprintf(&b, "| Staking rewards | %s |\n", s.StakingRewards)
	fmt.Fprintf(&b, "| **Taxable amount** | **%s** |\n", s.TaxableAmount)
	fmt.Fprintf(&b, "| Transactions | %d |\n\n", s.TransactionCount)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Disposals\n\n")
		fmt.Fprintln(w, "| Date | Transaction | Asset | Amount | Proceeds | Cost Basis | Gain/Loss | Days | |")
		fmt.Fprintln(w, "|:---|:---|:---|---:|---:|---:|---:|---:|:---|")
		rows := 0
		for _, tx := range r.Transactions {
			for _, m := range tx.Matches {
				rows++
				fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s | %d | %s |\n",
					tx.Timestamp.Format(time.DateOnly),
					tx.ID,
					symbol(m),
					m.Amount,
					m.Proceeds,
					m.CostBasis,
					m.GainLoss.SignedString(),
					m.HoldingPeriodDays,
					markers(m),
				)
			}
		}
		fmt.Fprintln(w)
		return rows > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Income\n\n")
		fmt.Fprintln(w, "| Date | Transaction | Asset | Amount | Value |")
		fmt.Fprintln(w, "|:---|:---|:---|---:|---:|")
		rows := 0
		for _, tx := range r.Transactions {
			if !tx.Income.IsSet() {
				continue
			}
			rows++
			token, amount, _ := tx.Incoming()
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n", tx.Timestamp.Format(time.DateOnly), tx.ID, token, amount, tx.Income)
		}
		fmt.Fprintln(w)
		return rows > 0
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Audit Trail\n\n")
		for _, e := range r.AuditTrail {
			fmt.Fprintf(w, "* %s\n", e)
		}
		return len(r.AuditTrail) > 0
	})

	return b.String()
}

func symbol(m cryptotax.LotMatch) string {
	if m.Symbol != "" {
		return m.Symbol
	}
	return string(m.Asset)
}

// markers lists the flags of a slice.
func markers(m cryptotax.LotMatch) string {
	var flags []string
	if m.Exempt {
		flags = append(flags, "exempt")
	}
	if m.AssumedBasis {
		flags = append(flags, "assumed basis")
	}
	if m.Fee {
		flags = append(flags, "fee")
	}
	return strings.Join(flags, ", ")
}
