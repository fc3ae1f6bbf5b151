package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SideBuy):
		return SideBuy, nil
	case string(SideSell):
		return SideSell, nil
	}
	return "", fmt.Errorf("invalid side %q: must be BUY or SELL", s)
}

// Level is one price level of a snapshot. Decimals keep the scale they were
// written with, so "100.0" and "100" compare equal but print differently.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

func (l Level) String() string {
	return FormatDecimal(l.Price) + " x " + FormatDecimal(l.Quantity)
}

// Fill is the part of one level taken by a market order.
type Fill struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Position is the outcome of a market order. EntryPrice is the VWAP of Fills.
type Position struct {
	Side       Side
	Requested  decimal.Decimal
	Quantity   decimal.Decimal
	EntryPrice decimal.Decimal
	Fills      []Fill
}

// IsPartial reports whether the order ran out of liquidity before the
// requested quantity was reached.
func (p *Position) IsPartial() bool {
	return p.Quantity.LessThan(p.Requested)
}

// FormatDecimal prints d with the number of fractional digits it carries.
func FormatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
