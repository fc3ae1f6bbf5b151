package engine

import (
	"github.com/shopspring/decimal"
)

// VWAPPrecision is the number of fractional digits kept, beyond the scale of
// the consumed prices and quantities, when the entry price does not divide
// evenly.
const VWAPPrecision int32 = 16

// ExecuteMarketOrder fills an immediate-or-cancel market order against the
// opposite side: a buy takes asks from the lowest price up, a sell takes bids
// from the highest price down. Whatever cannot be filled is dropped, so a
// partial fill is a success.
//
// The walk runs on a cursor and the side is rewritten once at the end, so the
// book is left exactly as it was whenever an error is returned.
func (ob *OrderBook) ExecuteMarketOrder(side Side, quantity decimal.Decimal) (*Position, error) {
	if !quantity.IsPositive() {
		return nil, &InsufficientLiquidityError{Requested: quantity, Available: decimal.Zero}
	}

	levels := ob.opposite(side)
	if levels == nil {
		return nil, &InsufficientLiquidityError{Requested: quantity, Available: decimal.Zero}
	}
	book := *levels

	remainingQty := quantity
	totalCost := decimal.Zero
	filledQty := decimal.Zero
	fills := make([]Fill, 0, 4)
	priceScale, quantityScale := int32(0), int32(0)

	consumed := 0
	var leftover decimal.Decimal
	partialLevel := false

	for consumed < len(book) && remainingQty.IsPositive() {
		level := book[consumed]

		executionQty := level.Quantity
		if executionQty.GreaterThan(remainingQty) {
			executionQty = remainingQty
		}

		if executionQty.IsPositive() {
			totalCost = totalCost.Add(level.Price.Mul(executionQty))
			filledQty = filledQty.Add(executionQty)
			remainingQty = remainingQty.Sub(executionQty)
			fills = append(fills, Fill{Price: level.Price, Quantity: executionQty})
			if scale := -level.Price.Exponent(); scale > priceScale {
				priceScale = scale
			}
			if scale := -executionQty.Exponent(); scale > quantityScale {
				quantityScale = scale
			}
		}

		if executionQty.Equal(level.Quantity) {
			consumed++
			continue
		}

		leftover = level.Quantity.Sub(executionQty)
		partialLevel = true
		break
	}

	// edge case: nothing fillable, nothing touched
	if filledQty.IsZero() {
		return nil, &InsufficientLiquidityError{Requested: quantity, Available: decimal.Zero}
	}

	rest := book[consumed:]
	if partialLevel {
		rest[0].Quantity = leftover
	}
	*levels = rest

	return &Position{
		Side:       side,
		Requested:  quantity,
		Quantity:   filledQty,
		EntryPrice: vwap(totalCost, filledQty, priceScale, quantityScale),
		Fills:      fills,
	}, nil
}

func (ob *OrderBook) opposite(side Side) *[]Level {
	switch side {
	case SideBuy:
		return &ob.Asks
	case SideSell:
		return &ob.Bids
	}
	return nil
}

// vwap divides cost by quantity. An even division is exact at any scale; a
// repeating one keeps VWAPPrecision digits past the inputs' own scale.
func vwap(cost, quantity decimal.Decimal, priceScale, quantityScale int32) decimal.Decimal {
	return trimScale(cost.DivRound(quantity, VWAPPrecision+priceScale+quantityScale), priceScale)
}

// trimScale drops trailing fractional zeros but keeps at least minScale
// digits, so 505.0/5 prints as 101.0 rather than with VWAPPrecision zeros.
func trimScale(d decimal.Decimal, minScale int32) decimal.Decimal {
	for scale := -d.Exponent(); scale > minScale; scale-- {
		t := d.Truncate(scale - 1)
		if !t.Equal(d) {
			break
		}
		d = t
	}
	return d
}
