package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// InstrumentConfig holds the trading rules a snapshot must respect. A zero
// TickSize or LotStep disables that rule; a zero MinLot accepts any quantity.
type InstrumentConfig struct {
	TickSize decimal.Decimal
	MinLot   decimal.Decimal
	LotStep  decimal.Decimal
}

// NewInstrumentConfig converts each float to the shortest decimal that
// round-trips it, so 0.1 becomes exactly 0.1. NaN and infinities become zero.
func NewInstrumentConfig(tickSize, minLot, lotStep float64) InstrumentConfig {
	return InstrumentConfig{
		TickSize: decimalFromFloat(tickSize),
		MinLot:   decimalFromFloat(minLot),
		LotStep:  decimalFromFloat(lotStep),
	}
}

// NewInstrumentConfigFromStrings parses exact decimal text. Empty strings mean zero.
func NewInstrumentConfigFromStrings(tickSize, minLot, lotStep string) (InstrumentConfig, error) {
	var cfg InstrumentConfig
	fields := []struct {
		name string
		text string
		dst  *decimal.Decimal
	}{
		{"tick_size", tickSize, &cfg.TickSize},
		{"min_lot", minLot, &cfg.MinLot},
		{"lot_step", lotStep, &cfg.LotStep},
	}
	for _, f := range fields {
		if f.text == "" {
			continue
		}
		d, err := decimal.NewFromString(f.text)
		if err != nil {
			return InstrumentConfig{}, fmt.Errorf("instrument %s: %w", f.name, err)
		}
		if d.IsNegative() {
			return InstrumentConfig{}, fmt.Errorf("instrument %s: must not be negative, got %s", f.name, f.text)
		}
		*f.dst = d
	}
	return cfg, nil
}

func (c InstrumentConfig) String() string {
	return fmt.Sprintf("Tick=%s, MinLot=%s, Step=%s",
		FormatDecimal(c.TickSize), FormatDecimal(c.MinLot), FormatDecimal(c.LotStep))
}

// ValidateOrderQuantity applies the min-lot and lot-step rules to the amount
// of an incoming order.
func (c InstrumentConfig) ValidateOrderQuantity(qty decimal.Decimal) error {
	if qty.LessThan(c.MinLot) {
		return &MinLotError{Quantity: qty, MinLot: c.MinLot}
	}
	if !isMultiple(qty, c.LotStep) {
		return &LotStepError{Quantity: qty, LotStep: c.LotStep}
	}
	return nil
}

// validateBook walks bids then asks and stops at the first level that breaks
// a rule. Per level the order is tick size, min lot, lot step.
func (c InstrumentConfig) validateBook(book *OrderBook) error {
	for _, levels := range [][]Level{book.Bids, book.Asks} {
		for _, level := range levels {
			if !isMultiple(level.Price, c.TickSize) {
				return &TickSizeError{Price: level.Price, TickSize: c.TickSize}
			}
			if err := c.ValidateOrderQuantity(level.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}

func isMultiple(v, step decimal.Decimal) bool {
	// edge case: zero step means unconstrained, Mod would panic
	if step.IsZero() {
		return true
	}
	return v.Mod(step).IsZero()
}

func decimalFromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
