package engine

import "github.com/shopspring/decimal"

// CalculatePnL marks the position against the current book. A long closes at
// the best bid, a short at the best ask. The bool is false when that side is
// empty and there is no exit price.
func (p *Position) CalculatePnL(book *OrderBook) (decimal.Decimal, bool) {
	switch p.Side {
	case SideBuy:
		bid, ok := book.BestBid()
		if !ok {
			return decimal.Zero, false
		}
		return bid.Price.Sub(p.EntryPrice).Mul(p.Quantity), true
	case SideSell:
		ask, ok := book.BestAsk()
		if !ok {
			return decimal.Zero, false
		}
		return p.EntryPrice.Sub(ask.Price).Mul(p.Quantity), true
	}
	return decimal.Zero, false
}
