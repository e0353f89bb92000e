package cryptotax

import (
	"cmp"
	"encoding/json"
	"io"
	"slices"
	"time"
)

// TaxReport is the outcome of a tax computation for one country and year.
type TaxReport struct {
	Country      string
	Year         int
	Currency     string
	GeneratedAt  time.Time
	Summary      TaxSummary
	Transactions []*Transaction // the year's transactions in ledger order
	AuditTrail   []AuditEntry
}

// Assemble builds the report. The audit trail starts with the rule and
// ledger level entries, followed by the entries of each transaction in
// ledger order.
func Assemble(rules Rules, year int, generatedAt time.Time, summary TaxSummary, txs []*Transaction, diagnostics []AuditEntry) *TaxReport {
	r := &TaxReport{
		Country:      rules.Country(),
		Year:         year,
		Currency:     rules.Currency(),
		GeneratedAt:  generatedAt.UTC(),
		Summary:      summary,
		Transactions: txs,
	}
	for _, line := range rules.Describe(year) {
		r.AuditTrail = append(r.AuditTrail, AuditEntry{Kind: AuditPolicy, Message: line})
	}
	r.AuditTrail = append(r.AuditTrail, diagnostics...)
	for _, tx := range txs {
		entries := tx.Audit()
		slices.SortStableFunc(entries, func(a, b AuditEntry) int { return cmp.Compare(kindOrder[a.Kind], kindOrder[b.Kind]) })
		r.AuditTrail = append(r.AuditTrail, entries...)
	}
	return r
}

// Flagged returns the audit entries of a transaction.
func (r *TaxReport) Flagged(id string) []AuditEntry {
	var entries []AuditEntry
	for _, e := range r.AuditTrail {
		if e.TransactionID == id {
			entries = append(entries, e)
		}
	}
	return entries
}

func (r *TaxReport) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("country", r.Country)
	w.Append("year", r.Year)
	w.Append("currency", r.Currency)
	w.Append("generated_at", r.GeneratedAt.Format(time.RFC3339))
	w.Append("summary", r.Summary)
	txs := r.Transactions
	if txs == nil {
		txs = []*Transaction{}
	}
	w.Append("transactions", txs)
	trail := r.AuditTrail
	if trail == nil {
		trail = []AuditEntry{}
	}
	w.Append("audit_trail", trail)
	return w.MarshalJSON()
}

// WriteJSON writes the indented JSON report.
func (r *TaxReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
