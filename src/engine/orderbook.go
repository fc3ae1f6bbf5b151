package engine

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Pilmik/order-book-parser/src/parser"
)

// DisplayDepth is how many levels per side String prints.
const DisplayDepth = 3

// OrderBook is a validated snapshot. Bids are strictly descending and asks
// strictly ascending, so index 0 of each side is the best price.
//
// An OrderBook is owned by a single caller; ExecuteMarketOrder mutates it.
type OrderBook struct {
	Bids []Level
	Asks []Level
}

// ParseOrderBook runs the full pipeline: recognize, extract, check structure
// and, when cfg is not nil, check instrument rules. It returns the first error
// met and no book on failure.
func ParseOrderBook(input string, cfg *InstrumentConfig) (*OrderBook, error) {
	tree, err := parser.Parse(input)
	if err != nil {
		var syntaxErr *parser.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ParseError{Err: syntaxErr}
		}
		return nil, err
	}

	book, err := extractBook(tree)
	if err != nil {
		return nil, err
	}

	if err := validateStructure(book); err != nil {
		return nil, err
	}

	if cfg != nil {
		if err := cfg.validateBook(book); err != nil {
			return nil, err
		}
	}

	return book, nil
}

func (ob *OrderBook) BestBid() (Level, bool) {
	if len(ob.Bids) == 0 {
		return Level{}, false
	}
	return ob.Bids[0], true
}

func (ob *OrderBook) BestAsk() (Level, bool) {
	if len(ob.Asks) == 0 {
		return Level{}, false
	}
	return ob.Asks[0], true
}

// Spread is best ask minus best bid; false if either side is empty.
func (ob *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, hasBid := ob.BestBid()
	ask, hasAsk := ob.BestAsk()
	if !hasBid || !hasAsk {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}

// Depth copies at most depth levels from the top of each side.
func (ob *OrderBook) Depth(depth int) (bids []Level, asks []Level) {
	return topLevels(ob.Bids, depth), topLevels(ob.Asks, depth)
}

func (ob *OrderBook) String() string {
	bids, asks := ob.Depth(DisplayDepth)

	var sb strings.Builder
	sb.WriteString("Order Book:\n")
	sb.WriteString("  ASKS (Top): ")
	writeLevels(&sb, asks)
	sb.WriteString("\n  BIDS (Top): ")
	writeLevels(&sb, bids)
	sb.WriteString("\n")
	return sb.String()
}

func topLevels(levels []Level, depth int) []Level {
	if depth < 0 {
		depth = 0
	}
	if depth > len(levels) {
		depth = len(levels)
	}
	out := make([]Level, depth)
	copy(out, levels[:depth])
	return out
}

func writeLevels(sb *strings.Builder, levels []Level) {
	sb.WriteString("[")
	for i, level := range levels {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(level.String())
	}
	sb.WriteString("]")
}
