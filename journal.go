package cryptotax

import "go.uber.org/zap"

// event represents a single, atomic change of one asset's lot queue.
type event interface {
	transaction() *Transaction
}

// acquireLot adds a new lot.
type acquireLot struct {
	tx       *Transaction
	quantity Quantity
	cost     Money // total cost basis, unset when unknown
}

// disposeLot consumes lots and realizes their gain or loss.
type disposeLot struct {
	tx       *Transaction
	quantity Quantity
	proceeds Money // net of fees, unset when unpriced
	fee      bool  // pays the transaction fee in another asset
}

// relocateLot moves lots between the holder's sources.
type relocateLot struct {
	tx       *Transaction
	quantity Quantity
	from, to string
}

func (e acquireLot) transaction() *Transaction  { return e.tx }
func (e disposeLot) transaction() *Transaction  { return e.tx }
func (e relocateLot) transaction() *Transaction { return e.tx }

// Journal holds, for each asset, the ordered events derived from classified
// transactions.
type Journal struct {
	cur    string
	events map[AssetKey][]event
}

// newJournal classifies the transactions, in ledger order, and derives the
// lot events of every asset. It writes the category and income of each
// transaction.
func newJournal(rules Rules, log *zap.SugaredLogger, txs []*Transaction) *Journal {
	j := &Journal{cur: rules.Currency(), events: make(map[AssetKey][]event)}
	byID := make(map[string]*Transaction, len(txs))
	for _, tx := range txs {
		byID[tx.ID] = tx
	}
	for _, tx := range txs {
		c := rules.Classify(tx)
		tx.Category = c.Category
		if c.Note != "" {
			tx.flag(AuditClassification, "%s", c.Note)
		}
		j.record(tx, c, byID, log)
	}
	return j
}

func (j *Journal) append(key AssetKey, e event) { j.events[key] = append(j.events[key], e) }

func (j *Journal) record(tx *Transaction, c Classification, byID map[string]*Transaction, log *zap.SugaredLogger) {
	feePaid := !tx.HasFee()

	switch c.Outgoing {
	case Dispose:
		quantity := tx.AmountIn
		var proceeds Money
		if tx.PriceIn.IsSet() {
			proceeds = tx.PriceIn.Mul(tx.AmountIn)
		}
		if !feePaid && tx.FeeToken.Key() == tx.TokenIn.Key() {
			// fee units leave with the disposed ones and bring nothing.
			quantity = quantity.Add(tx.Fee)
			feePaid = true
		}
		if !feePaid && tx.FeeToken.IsFiat() && proceeds.IsSet() && tx.FeeValue.IsSet() {
			proceeds = proceeds.Sub(tx.FeeValue)
			feePaid = true
		}
		j.append(tx.TokenIn.Key(), disposeLot{tx: tx, quantity: quantity, proceeds: proceeds})

	case Relocate:
		to := ""
		if peer, ok := byID[tx.PairedWith]; ok {
			to = peer.Source
		}
		j.append(tx.TokenIn.Key(), relocateLot{tx: tx, quantity: tx.AmountIn, from: tx.Source, to: to})
	}

	switch c.Incoming {
	case Acquire, Earn:
		var cost Money
		if tx.PriceOut.IsSet() {
			cost = tx.PriceOut.Mul(tx.AmountOut)
			if c.Incoming == Earn {
				tx.Income = cost
			}
			if !feePaid && tx.FeeToken.IsFiat() && tx.FeeValue.IsSet() {
				cost = cost.Add(tx.FeeValue)
				feePaid = true
			}
		} else if c.Incoming == Earn {
			tx.flag(AuditMissingPrice, "income of %s %s excluded from staking income", tx.AmountOut, tx.TokenOut)
		}
		j.append(tx.TokenOut.Key(), acquireLot{tx: tx, quantity: tx.AmountOut, cost: cost})
	}

	if feePaid {
		return
	}
	if tx.FeeToken.IsFiat() {
		// a fiat fee with nothing to reduce or increase is only reported.
		return
	}
	var value Money
	if tx.FeeValue.IsSet() {
		value = tx.FeeValue
	}
	j.append(tx.FeeToken.Key(), disposeLot{tx: tx, quantity: tx.Fee, proceeds: value, fee: true})
	log.Debugw("fee disposal", "id", tx.ID, "asset", tx.FeeToken.Key(), "quantity", tx.Fee)
}
