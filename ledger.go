package cryptotax

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTransferWindow is the default maximum delay between the two sides
// of a possible internal transfer.
const DefaultTransferWindow = 24 * time.Hour

// LedgerOptions tunes the ledger builder.
type LedgerOptions struct {
	// TransferWindow is the maximum delay between an outgoing and an incoming
	// transfer for them to be paired as an internal transfer.
	TransferWindow time.Duration
	// TransferTolerance is the maximum relative difference between the
	// amount sent and the amount received of a pair. Zero means equal.
	TransferTolerance decimal.Decimal

	// Upstream are diagnostics of records that never reached the builder,
	// like undecodable lines. They are reported with the ledger's own.
	Upstream []AuditEntry

	Log *zap.SugaredLogger
}

func (o LedgerOptions) withDefaults() LedgerOptions {
	if o.TransferWindow <= 0 {
		o.TransferWindow = DefaultTransferWindow
	}
	if o.TransferTolerance.IsNegative() {
		o.TransferTolerance = decimal.Zero
	}
	if o.Log == nil {
		o.Log = zap.NewNop().Sugar()
	}
	return o
}

// Ledger is the canonical, deduplicated and time ordered list of the
// holder's transactions.
//
// Transactions are ordered by (timestamp, ingestion sequence). Per asset
// views keep that order.
type Ledger struct {
	transactions []*Transaction
	assets       map[AssetKey][]*Transaction
	diagnostics  []AuditEntry
}

// BuildLedger merges batches of transactions into a Ledger.
//
// Records that fail validation are skipped and duplicates (same source,
// chain and native id) are dropped, keeping the first seen. Both are reported
// in Diagnostics. Input batches are not modified.
func BuildLedger(opts LedgerOptions, batches ...[]Transaction) *Ledger {
	opts = opts.withDefaults()
	l := &Ledger{assets: make(map[AssetKey][]*Transaction)}
	l.diagnostics = append(l.diagnostics, AuditEntry{
		Kind:    AuditPolicy,
		Message: "possible internal transfers: opposite transfers of the same asset between two sources within " + opts.TransferWindow.String() + ", relative amount tolerance " + opts.TransferTolerance.String(),
	})
	l.diagnostics = append(l.diagnostics, opts.Upstream...)

	seen := make(map[uuid.UUID]string)
	seq := 0
	for _, batch := range batches {
		for i := range batch {
			tx := batch[i]
			seq++
			tx.Sequence = seq
			tx.Timestamp = tx.Timestamp.UTC()
			tx.audit = nil

			if err := tx.Validate(); err != nil {
				opts.Log.Warnw("skipping invalid transaction", "id", tx.ID, "source", tx.Source, "error", err)
				l.diagnostics = append(l.diagnostics, AuditEntry{TransactionID: tx.ID, Kind: AuditSkippedInput, Message: err.Error()})
				continue
			}
			fp := tx.Fingerprint()
			if first, dup := seen[fp]; dup {
				opts.Log.Debugw("dropping duplicate transaction", "id", tx.ID, "first", first)
				l.diagnostics = append(l.diagnostics, AuditEntry{TransactionID: tx.ID, Kind: AuditDuplicate, Message: "duplicate of " + first + " from " + tx.Source})
				continue
			}
			seen[fp] = tx.ID
			l.transactions = append(l.transactions, &tx)
		}
	}

	slices.SortStableFunc(l.transactions, func(a, b *Transaction) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Sequence, b.Sequence)
	})
	for _, tx := range l.transactions {
		for _, k := range tx.Assets() {
			l.assets[k] = append(l.assets[k], tx)
		}
	}
	n := l.pairTransfers(opts)
	opts.Log.Infow("ledger built", "transactions", len(l.transactions), "assets", len(l.assets), "dropped", len(l.diagnostics)-1, "paired_transfers", n)
	return l
}

// pairTransfers flags outgoing and incoming transfers of the same asset,
// between two different sources, that are close enough in time and amount to
// be the same movement between the holder's own wallets. Each transfer is
// paired at most once, greedily in ledger order.
func (l *Ledger) pairTransfers(opts LedgerOptions) int {
	pairs := 0
	for _, key := range l.Assets() {
		txs := l.assets[key]
		for _, out := range txs {
			if !out.IsOutgoingTransfer() || out.PairedWith != "" || out.TokenIn.Key() != key {
				continue
			}
			for _, in := range txs {
				if !in.IsIncomingTransfer() || in.PairedWith != "" || in.TokenOut.Key() != key {
					continue
				}
				if in.Source == out.Source || !withinWindow(out.Timestamp, in.Timestamp, opts.TransferWindow) {
					continue
				}
				if !sameAmount(out.AmountIn, in.AmountOut, opts.TransferTolerance) {
					continue
				}
				out.PairedWith, in.PairedWith = in.ID, out.ID
				out.flag(AuditInternalTransfer, "sent to %s as %s", in.Source, in.ID)
				in.flag(AuditInternalTransfer, "received from %s as %s", out.Source, out.ID)
				pairs++
				break
			}
		}
	}
	return pairs
}

func withinWindow(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}

// sameAmount reports whether received is within tolerance of sent, relative to sent.
func sameAmount(sent, received Quantity, tolerance decimal.Decimal) bool {
	diff := sent.value.Sub(received.value).Abs()
	return diff.LessThanOrEqual(sent.value.Mul(tolerance))
}

// Transactions returns the ordered transactions.
func (l *Ledger) Transactions() []*Transaction { return l.transactions }

// Len returns the number of transactions kept in the ledger.
func (l *Ledger) Len() int { return len(l.transactions) }

// Assets returns the sorted keys of all non fiat assets in the ledger.
func (l *Ledger) Assets() []AssetKey {
	keys := lo.Keys(l.assets)
	slices.Sort(keys)
	return keys
}

// Asset returns the ordered transactions touching an asset on any leg.
func (l *Ledger) Asset(key AssetKey) []*Transaction { return l.assets[key] }

// Sources returns the sorted distinct sources of the ledger.
func (l *Ledger) Sources() []string {
	sources := lo.Uniq(lo.Map(l.transactions, func(tx *Transaction, _ int) string { return tx.Source }))
	slices.Sort(sources)
	return sources
}

// Diagnostics returns the ledger level audit entries: the transfer pairing
// policy, skipped records and dropped duplicates.
func (l *Ledger) Diagnostics() []AuditEntry { return l.diagnostics }
