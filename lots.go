package cryptotax

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/etnz/cryptotax/date"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TaxLot is a quantity of an asset acquired at one time for one cost.
type TaxLot struct {
	Asset         AssetKey
	TransactionID string // acquiring transaction, empty for assumed lots
	AcquiredAt    time.Time
	Location      string // source holding the units
	Remaining     Quantity
	Cost          Money // cost basis of the remaining quantity
	BasisKnown    bool
}

// LotMatch is the part of a disposal matched against one lot.
type LotMatch struct {
	Asset             AssetKey
	Symbol            string
	LotID             string // acquiring transaction, empty for assumed lots
	AcquiredAt        time.Time
	Amount            Quantity
	CostBasis         Money
	Proceeds          Money
	GainLoss          Money
	HoldingPeriodDays int
	Exempt            bool
	AssumedBasis      bool
	Fee               bool // disposal paying the fee of the transaction
}

func (m LotMatch) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("asset", m.Asset)
	w.Optional("symbol", m.Symbol)
	w.Optional("lot", m.LotID)
	w.Append("acquired_at", m.AcquiredAt.UTC().Format(time.RFC3339Nano))
	w.Append("amount", m.Amount)
	w.Append("cost_basis", m.CostBasis)
	w.Append("proceeds", m.Proceeds)
	w.Append("gain_loss", m.GainLoss)
	w.Append("holding_period_days", m.HoldingPeriodDays)
	w.Optional("exempt", m.Exempt)
	w.Optional("assumed_basis", m.AssumedBasis)
	w.Optional("fee", m.Fee)
	return w.MarshalJSON()
}

// lotQueue is the first-in first-out queue of open lots of one asset.
type lotQueue struct {
	asset AssetKey
	cur   string
	lots  []*TaxLot
}

func (q *lotQueue) push(l *TaxLot) { q.lots = append(q.lots, l) }

// balance returns the quantity held across all lots.
func (q *lotQueue) balance() Quantity {
	var sum Quantity
	for _, l := range q.lots {
		sum = sum.Add(l.Remaining)
	}
	return sum
}

// split cuts quantity out of l, which must hold more than quantity. The cost
// basis is shared pro rata and l keeps the rest.
func split(l *TaxLot, quantity Quantity) TaxLot {
	part := *l
	part.Remaining = quantity
	part.Cost = l.Cost.Mul(quantity).Div(l.Remaining)
	l.Remaining = l.Remaining.Sub(quantity)
	l.Cost = l.Cost.Sub(part.Cost)
	return part
}

// take removes quantity from the front of the queue. It returns the consumed
// lot parts, oldest first, and the quantity that no lot could cover.
func (q *lotQueue) take(quantity Quantity) (taken []TaxLot, missing Quantity) {
	need := quantity
	for len(q.lots) > 0 && need.IsPositive() {
		head := q.lots[0]
		if head.Remaining.GreaterThan(need) {
			taken = append(taken, split(head, need))
			return taken, Quantity{}
		}
		taken = append(taken, *head)
		need = need.Sub(head.Remaining)
		q.lots = q.lots[1:]
	}
	return taken, need
}

// relocate moves quantity held at from to the location to, oldest lots
// first. Lots keep their position, cost basis and acquisition time. It
// returns the quantity actually moved.
func (q *lotQueue) relocate(quantity Quantity, from, to string) Quantity {
	need := quantity
	for i := 0; i < len(q.lots) && need.IsPositive(); i++ {
		l := q.lots[i]
		if l.Location != from {
			continue
		}
		if l.Remaining.GreaterThan(need) {
			part := split(l, need)
			part.Location = to
			q.lots = slices.Insert(q.lots, i, &part)
			return quantity
		}
		l.Location = to
		need = need.Sub(l.Remaining)
	}
	return quantity.Sub(need)
}

// legResult is the outcome of one disposal.
type legResult struct {
	tx           *Transaction
	quantity     Quantity
	matches      []LotMatch
	assumed      Quantity // quantity matched against no lot
	unknownBasis []string // lots without a known cost basis
	unpriced     bool
	fee          bool
}

// dispose consumes the disposed quantity and splits the proceeds over the
// consumed lots pro rata, the last slice taking the rounding remainder so
// that slices sum exactly to the proceeds.
func (q *lotQueue) dispose(e disposeLot, rules Rules) legResult {
	taken, missing := q.take(e.quantity)
	leg := legResult{tx: e.tx, quantity: e.quantity, assumed: missing, fee: e.fee}
	if !e.proceeds.IsSet() {
		leg.unpriced = true
		return leg
	}
	if missing.IsPositive() {
		taken = append(taken, TaxLot{Asset: q.asset, AcquiredAt: e.tx.Timestamp, Remaining: missing, Cost: M(0, q.cur)})
	}

	symbol := ""
	if t := e.tx.TokenIn; t != nil && !e.fee {
		symbol = t.Symbol
	} else if t := e.tx.FeeToken; t != nil && e.fee {
		symbol = t.Symbol
	}

	allocated := M(0, q.cur)
	for i, lot := range taken {
		proceeds := e.proceeds.Mul(lot.Remaining).Div(e.quantity)
		if i == len(taken)-1 {
			proceeds = e.proceeds.Sub(allocated)
		}
		allocated = allocated.Add(proceeds)

		days := date.WholeDays(lot.AcquiredAt, e.tx.Timestamp)
		leg.matches = append(leg.matches, LotMatch{
			Asset:             q.asset,
			Symbol:            symbol,
			LotID:             lot.TransactionID,
			AcquiredAt:        lot.AcquiredAt,
			Amount:            lot.Remaining,
			CostBasis:         lot.Cost,
			Proceeds:          proceeds,
			GainLoss:          proceeds.Sub(lot.Cost),
			HoldingPeriodDays: days,
			Exempt:            rules.HoldingRule(days).Exempt,
			AssumedBasis:      !lot.BasisKnown,
			Fee:               e.fee,
		})
		if !lot.BasisKnown && lot.TransactionID != "" {
			leg.unknownBasis = append(leg.unknownBasis, lot.TransactionID)
		}
	}
	return leg
}

// assetResult is the outcome of matching one asset.
type assetResult struct {
	asset AssetKey
	legs  []legResult
	open  Quantity // balance left in the queue
	err   error
}

// matchAsset replays the events of one asset. It either fully succeeds or
// returns an error and no legs.
func matchAsset(key AssetKey, events []event, rules Rules, cur string) (res assetResult) {
	defer func() {
		if r := recover(); r != nil {
			res = assetResult{asset: key, err: &AssetError{Asset: key, Err: fmt.Errorf("%v", r)}}
		}
	}()
	q := &lotQueue{asset: key, cur: cur}
	res.asset = key
	for _, e := range events {
		switch e := e.(type) {
		case acquireLot:
			lot := &TaxLot{
				Asset:         key,
				TransactionID: e.tx.ID,
				AcquiredAt:    e.tx.Timestamp,
				Location:      e.tx.Source,
				Remaining:     e.quantity,
				Cost:          e.cost,
				BasisKnown:    e.cost.IsSet(),
			}
			if !lot.BasisKnown {
				lot.Cost = M(0, cur)
			}
			q.push(lot)
		case relocateLot:
			q.relocate(e.quantity, e.from, e.to)
		case disposeLot:
			res.legs = append(res.legs, q.dispose(e, rules))
		default:
			return assetResult{asset: key, err: &AssetError{Asset: key, Err: fmt.Errorf("unknown event %T", e)}}
		}
	}
	res.open = q.balance()
	return res
}

// match runs every asset of the journal concurrently, one worker per asset.
// Results are in asset key order.
func (j *Journal) match(ctx context.Context, rules Rules, workers int) ([]assetResult, error) {
	keys := lo.Keys(j.events)
	slices.Sort(keys)
	results := make([]assetResult, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = matchAsset(key, j.events[key], rules, j.cur)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// merge writes the asset results back into the transactions. An asset that
// failed flags every transaction touching it and contributes nothing.
func merge(l *Ledger, results []assetResult, log *zap.SugaredLogger) {
	for _, r := range results {
		if r.err != nil {
			log.Errorw("lot matching failed", "asset", r.asset, "error", r.err)
			for _, tx := range l.Asset(r.asset) {
				tx.flag(AuditAssetFailure, "lot matching failed for %s: %v", r.asset, r.err)
			}
			continue
		}
		log.Debugw("asset matched", "asset", r.asset, "disposals", len(r.legs), "open", r.open)
		for _, leg := range r.legs {
			tx := leg.tx
			tx.Matches = append(tx.Matches, leg.matches...)
			if leg.unpriced {
				tx.flag(AuditMissingPrice, "disposal of %s %s excluded from gains and losses", leg.quantity, r.asset)
			}
			if leg.assumed.IsPositive() {
				tx.flag(AuditAssumedBasis, "%s %s disposed beyond the known lots, matched at zero cost basis", leg.assumed, r.asset)
			}
			for _, id := range leg.unknownBasis {
				tx.flag(AuditAssumedBasis, "lot %s has no known cost basis, matched at zero", id)
			}
		}
	}
}

// settle totals the matches of a disposal and refines its category: a
// disposal whose own slices are all exempt is an exempt disposal.
func (tx *Transaction) settle(cur string) {
	if len(tx.Matches) == 0 {
		return
	}
	slices.SortStableFunc(tx.Matches, func(a, b LotMatch) int {
		switch {
		case a.Fee == b.Fee:
			return 0
		case b.Fee:
			return -1
		default:
			return 1
		}
	})
	cost, proceeds := M(0, cur), M(0, cur)
	days, exempt, main := -1, true, false
	for _, m := range tx.Matches {
		cost = cost.Add(m.CostBasis)
		proceeds = proceeds.Add(m.Proceeds)
		if m.Fee && main {
			continue
		}
		if !m.Fee {
			main = true
			exempt = exempt && m.Exempt
		}
		if days < 0 || m.HoldingPeriodDays < days {
			days = m.HoldingPeriodDays
		}
	}
	tx.CostBasis, tx.Proceeds, tx.GainLoss = cost, proceeds, proceeds.Sub(cost)
	tx.HoldingPeriodDays = days
	if tx.Category == CategoryTaxableDisposal && main && exempt {
		tx.Category = CategoryExemptDisposal
	}
}
