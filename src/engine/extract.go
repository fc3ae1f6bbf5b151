package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Pilmik/order-book-parser/src/parser"
)

// extractBook turns number tokens into levels, keeping input order. Sorting
// is not its job; validateStructure rejects unsorted sides afterwards.
func extractBook(tree *parser.Tree) (*OrderBook, error) {
	if tree == nil {
		return nil, &MissingSectionError{Section: "Empty input"}
	}
	if tree.Bids == nil {
		return nil, &MissingSectionError{Section: parser.BidsLabel}
	}
	if tree.Asks == nil {
		return nil, &MissingSectionError{Section: parser.AsksLabel}
	}

	bids, err := extractLevels(tree.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := extractLevels(tree.Asks)
	if err != nil {
		return nil, err
	}
	return &OrderBook{Bids: bids, Asks: asks}, nil
}

func extractLevels(side *parser.Side) ([]Level, error) {
	levels := make([]Level, 0, len(side.Levels))
	for i, node := range side.Levels {
		// edge case: the recognizer always sets both tokens, hand-built trees may not
		if node.Price == nil {
			return nil, &MissingSectionError{Section: fmt.Sprintf("Missing price in %s level %d", side.Label, i+1)}
		}
		if node.Quantity == nil {
			return nil, &MissingSectionError{Section: fmt.Sprintf("Missing quantity in %s level %d", side.Label, i+1)}
		}

		price, err := parseNumber(node.Price)
		if err != nil {
			return nil, err
		}
		qty, err := parseNumber(node.Quantity)
		if err != nil {
			return nil, err
		}
		levels = append(levels, Level{Price: price, Quantity: qty})
	}
	return levels, nil
}

func parseNumber(n *parser.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(n.Text)
	if err != nil {
		return decimal.Decimal{}, &DecimalError{Text: n.Text, Pos: n.Pos, Err: err}
	}
	return d, nil
}
