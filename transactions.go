package cryptotax

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TxType is the kind of a transaction.
type TxType string

const (
	Buy         TxType = "BUY"
	Sell        TxType = "SELL"
	Swap        TxType = "SWAP"
	Transfer    TxType = "TRANSFER"
	StakeReward TxType = "STAKE_REWARD"
	Deposit     TxType = "DEPOSIT"
	Withdrawal  TxType = "WITHDRAWAL"
)

// TxTypes lists all known transaction types.
var TxTypes = []TxType{Buy, Sell, Swap, Transfer, StakeReward, Deposit, Withdrawal}

// Category is the tax treatment of a transaction.
type Category string

const (
	CategoryAcquisition     Category = "acquisition"
	CategoryTaxableDisposal Category = "taxable_disposal"
	CategoryExemptDisposal  Category = "tax_exempt_disposal"
	CategoryIncome          Category = "taxable_income"
	CategoryTransfer        Category = "non_taxable_transfer"
)

// Transaction is one economic event of the holder.
//
// TokenIn/AmountIn is the asset leaving the holder, TokenOut/AmountOut the
// asset entering. The first block of fields is the input. The other blocks are
// written once, by enrichment and by matching.
type Transaction struct {
	ID        string    `validate:"required"`
	NativeID  string    // native identifier at the source, defaults to ID
	Timestamp time.Time `validate:"required"`
	Type      TxType    `validate:"required,tx_type"`
	Chain     string
	Source    string `validate:"required"`
	TokenIn   *Token `validate:"omitempty"`
	AmountIn  Quantity
	TokenOut  *Token `validate:"omitempty"`
	AmountOut Quantity
	Fee       Quantity
	FeeToken  *Token `validate:"omitempty"`

	// Sequence is the ingestion order, assigned by the ledger.
	Sequence int `validate:"-"`

	// Enrichment: USD unit prices and their report currency equivalent.
	PriceInUSD  Money `validate:"-"`
	PriceOutUSD Money `validate:"-"`
	FeePriceUSD Money `validate:"-"`
	PriceIn     Money `validate:"-"`
	PriceOut    Money `validate:"-"`
	FeeValue    Money `validate:"-"`

	// Tax treatment.
	Category          Category   `validate:"-"`
	CostBasis         Money      `validate:"-"`
	Proceeds          Money      `validate:"-"`
	GainLoss          Money      `validate:"-"`
	HoldingPeriodDays int        `validate:"-"`
	Income            Money      `validate:"-"`
	Matches           []LotMatch `validate:"-"`
	PairedWith        string     `validate:"-"`

	audit auditLog
}

// Audit returns the audit entries recorded for the transaction.
func (tx *Transaction) Audit() []AuditEntry { return append([]AuditEntry(nil), tx.audit...) }

func (tx *Transaction) flag(kind AuditKind, format string, args ...any) {
	tx.audit.add(tx.ID, kind, format, args...)
}

// Flagged reports whether a condition of that kind was recorded.
func (tx *Transaction) Flagged(kind AuditKind) bool { return tx.audit.has(kind) }

// Incoming returns the asset entering the holder, if any.
func (tx *Transaction) Incoming() (Token, Quantity, bool) {
	if tx.TokenOut == nil {
		return Token{}, Quantity{}, false
	}
	return *tx.TokenOut, tx.AmountOut, true
}

// HasFee reports whether the transaction carries a non zero fee.
func (tx *Transaction) HasFee() bool { return tx.FeeToken != nil && tx.Fee.IsPositive() }

// IsOutgoingTransfer reports whether tx moves an asset out of a source
// without a counter asset.
func (tx *Transaction) IsOutgoingTransfer() bool {
	return tx.Type == Withdrawal || (tx.Type == Transfer && tx.TokenIn != nil)
}

// IsIncomingTransfer reports whether tx moves an asset into a source without
// a counter asset.
func (tx *Transaction) IsIncomingTransfer() bool {
	return tx.Type == Deposit || (tx.Type == Transfer && tx.TokenOut != nil)
}

// Assets returns the keys of the non fiat assets touched by tx.
func (tx *Transaction) Assets() []AssetKey {
	var keys []AssetKey
	add := func(t *Token) {
		if t == nil || t.IsFiat() {
			return
		}
		k := t.Key()
		for _, x := range keys {
			if x == k {
				return
			}
		}
		keys = append(keys, k)
	}
	add(tx.TokenIn)
	add(tx.TokenOut)
	if tx.HasFee() {
		add(tx.FeeToken)
	}
	return keys
}

var fingerprintSpace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("cryptotax.transaction"))

// Fingerprint is the content identity used to drop duplicates: the same
// native transaction reported twice by the same source on the same chain.
func (tx *Transaction) Fingerprint() uuid.UUID {
	native := tx.NativeID
	if native == "" {
		native = tx.ID
	}
	return uuid.NewSHA1(fingerprintSpace, []byte(tx.Source+"\x00"+tx.Chain+"\x00"+native))
}

// transactionInput is the serialized form accepted from sources.
type transactionInput struct {
	ID        string    `json:"id"`
	NativeID  string    `json:"native_id"`
	Timestamp time.Time `json:"timestamp"`
	Type      TxType    `json:"type"`
	Chain     string    `json:"chain"`
	Source    string    `json:"source"`
	TokenIn   *Token    `json:"token_in"`
	AmountIn  Quantity  `json:"amount_in"`
	TokenOut  *Token    `json:"token_out"`
	AmountOut Quantity  `json:"amount_out"`
	Fee       Quantity  `json:"fee"`
	FeeToken  *Token    `json:"fee_token"`
}

// UnmarshalJSON reads the input fields only.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var in transactionInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*tx = Transaction{
		ID:        in.ID,
		NativeID:  in.NativeID,
		Timestamp: in.Timestamp,
		Type:      in.Type,
		Chain:     in.Chain,
		Source:    in.Source,
		TokenIn:   in.TokenIn,
		AmountIn:  in.AmountIn,
		TokenOut:  in.TokenOut,
		AmountOut: in.AmountOut,
		Fee:       in.Fee,
		FeeToken:  in.FeeToken,
	}
	return nil
}

// MarshalJSON writes the transaction with its enrichment and tax fields.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", tx.ID)
	w.Optional("native_id", tx.NativeID)
	w.Append("timestamp", tx.Timestamp.UTC().Format(time.RFC3339Nano))
	w.Append("type", tx.Type)
	w.Optional("chain", tx.Chain)
	w.Append("source", tx.Source)
	if tx.TokenIn != nil {
		w.Append("token_in", tx.TokenIn)
		w.Append("amount_in", tx.AmountIn)
	}
	if tx.TokenOut != nil {
		w.Append("token_out", tx.TokenOut)
		w.Append("amount_out", tx.AmountOut)
	}
	if tx.FeeToken != nil {
		w.Append("fee", tx.Fee)
		w.Append("fee_token", tx.FeeToken)
	}
	w.Optional("price_in_usd", tx.PriceInUSD)
	w.Optional("price_out_usd", tx.PriceOutUSD)
	w.Optional("fee_price_usd", tx.FeePriceUSD)
	w.Optional("price_in", tx.PriceIn)
	w.Optional("price_out", tx.PriceOut)
	w.Optional("fee_value", tx.FeeValue)
	w.Optional("category", tx.Category)
	w.Optional("cost_basis", tx.CostBasis)
	w.Optional("proceeds", tx.Proceeds)
	w.Optional("gain_loss", tx.GainLoss)
	if len(tx.Matches) > 0 {
		w.Append("holding_period_days", tx.HoldingPeriodDays)
	}
	w.Optional("income", tx.Income)
	w.Optional("matches", tx.Matches)
	w.Optional("paired_with", tx.PairedWith)
	if len(tx.audit) > 0 {
		notes := make([]string, len(tx.audit))
		for i, e := range tx.audit {
			notes[i] = fmt.Sprintf("%s: %s", e.Kind, e.Message)
		}
		w.Append("notes", notes)
	}
	return w.MarshalJSON()
}
