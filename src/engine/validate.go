package engine

import "github.com/shopspring/decimal"

// validateStructure checks ordering and uniqueness of each side, then the
// top of book. Only the best bid and best ask are compared: a deeper bid at
// or above the best ask is not reported.
func validateStructure(book *OrderBook) error {
	if err := checkSide(SideBuy, book.Bids); err != nil {
		return err
	}
	if err := checkSide(SideSell, book.Asks); err != nil {
		return err
	}

	bid, hasBid := book.BestBid()
	ask, hasAsk := book.BestAsk()
	if hasBid && hasAsk && bid.Price.GreaterThanOrEqual(ask.Price) {
		return &CrossedBookError{BestBid: bid.Price, BestAsk: ask.Price}
	}
	return nil
}

// checkSide scans adjacent pairs; an equal pair is a duplicate before it is
// an ordering problem.
func checkSide(side Side, levels []Level) error {
	for i := 1; i < len(levels); i++ {
		prev, cur := levels[i-1].Price, levels[i].Price
		if cur.Equal(prev) {
			return &DuplicatePriceError{Side: side, Price: prev}
		}
		if !inOrder(side, prev, cur) {
			return &UnsortedError{Side: side, Price: cur}
		}
	}
	return nil
}

// inOrder reports whether cur is a valid next price after prev: lower for
// bids, higher for asks.
func inOrder(side Side, prev, cur decimal.Decimal) bool {
	if side == SideBuy {
		return cur.LessThan(prev)
	}
	return cur.GreaterThan(prev)
}
