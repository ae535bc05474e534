package recorder

import (
	"github.com/shopspring/decimal"

	"tick2trade/order"
)

// fill is what has been booked for one order so far.
type fill struct {
	qty      decimal.Decimal
	notional decimal.Decimal
}

// PnL tracks the session position on the executable venue and marks it to
// the venue mid. Decimal arithmetic keeps repeated fills free of float
// drift.
type PnL struct {
	position decimal.Decimal
	cash     decimal.Decimal
	mark     decimal.Decimal
	open     map[uint64]fill
}

func NewPnL() *PnL {
	return &PnL{open: make(map[uint64]fill)}
}

// Mark sets the mark price from the top of book. A one-sided book marks
// to the side that is present.
func (p *PnL) Mark(bid, ask float64) {
	switch {
	case bid > 0 && ask > 0:
		p.mark = decimal.NewFromFloat(bid).Add(decimal.NewFromFloat(ask)).Div(decimal.NewFromInt(2))
	case bid > 0:
		p.mark = decimal.NewFromFloat(bid)
	case ask > 0:
		p.mark = decimal.NewFromFloat(ask)
	}
}

// OnOrder books the fill increment implied by an order's cumulative
// quantity and average price. It reports whether anything was filled.
// A terminal state closes seq.
func (p *PnL) OnOrder(seq uint64, side order.Side, state order.State, cumQty, avgPrice float64) bool {
	prev := p.open[seq]
	cum := decimal.NewFromFloat(cumQty)
	filled := false
	if dq := cum.Sub(prev.qty); dq.IsPositive() {
		notional := cum.Mul(decimal.NewFromFloat(avgPrice))
		dn := notional.Sub(prev.notional)
		if side == order.Buy {
			p.position = p.position.Add(dq)
			p.cash = p.cash.Sub(dn)
		} else {
			p.position = p.position.Sub(dq)
			p.cash = p.cash.Add(dn)
		}
		prev = fill{qty: cum, notional: notional}
		filled = true
	}

	if state.Terminal() {
		delete(p.open, seq)
	} else {
		p.open[seq] = prev
	}
	return filled
}

// Marked reports whether a mark price has been seen.
func (p *PnL) Marked() bool { return !p.mark.IsZero() }

// Position is the signed base quantity held.
func (p *PnL) Position() decimal.Decimal { return p.position }

// Cash is the quote balance change from fills.
func (p *PnL) Cash() decimal.Decimal { return p.cash }

// Total is cash plus the position marked to the last mid.
func (p *PnL) Total() decimal.Decimal {
	return p.cash.Add(p.position.Mul(p.mark))
}
