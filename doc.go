// Package cryptotax computes tax reports from cryptocurrency transactions.
//
// A holder's activity arrives as batches of transactions from several wallets
// and exchange accounts. The package turns them into a tax report for one
// jurisdiction and one year:
//   - Ledger: batches are validated, deduplicated and ordered by time into a
//     single canonical ledger, with possible internal transfers paired.
//   - Enrichment: every transaction gets historical USD prices and the
//     report-currency equivalent at its own timestamp.
//   - Matching: disposals consume acquisition lots first-in first-out, one
//     independent queue per asset, producing cost basis, proceeds, gain and
//     holding period for each matched slice.
//   - Rules: a country rule set classifies transactions, decides which slices
//     are exempt and combines the totals into a taxable amount.
//   - Report: totals, the enriched transactions and an audit trail of every
//     assumption made along the way.
//
// Missing data never aborts a report. Unpriced transactions, oversold assets
// and skipped records are reported in the audit trail instead.
package cryptotax
