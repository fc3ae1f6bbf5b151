package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Pilmik/order-book-parser/src/parser"
)

// Kind identifies which rule an engine error is about.
type Kind int

const (
	KindParse Kind = iota + 1
	KindDecimal
	KindMissingSection
	KindBidsUnsorted
	KindAsksUnsorted
	KindDuplicatePrice
	KindCrossedBook
	KindInvalidTickSize
	KindInvalidMinLot
	KindInvalidLotStep
	KindNotEnoughLiquidity
)

var kindNames = map[Kind]string{
	KindParse:              "ParseError",
	KindDecimal:            "DecimalError",
	KindMissingSection:     "MissingSection",
	KindBidsUnsorted:       "BidsUnsorted",
	KindAsksUnsorted:       "AsksUnsorted",
	KindDuplicatePrice:     "DuplicatePrice",
	KindCrossedBook:        "CrossedBook",
	KindInvalidTickSize:    "InvalidTickSize",
	KindInvalidMinLot:      "InvalidMinLot",
	KindInvalidLotStep:     "InvalidLotStep",
	KindNotEnoughLiquidity: "NotEnoughLiquidity",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// BookError is implemented by every error returned from this package.
type BookError interface {
	error
	Kind() Kind
}

// KindOf returns the kind of the first BookError in err's chain.
func KindOf(err error) (Kind, bool) {
	var be BookError
	if errors.As(err, &be) {
		return be.Kind(), true
	}
	return 0, false
}

type ParseError struct {
	Err *parser.SyntaxError
}

func (e *ParseError) Error() string {
	return "Failed to parse the input string: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }
func (e *ParseError) Kind() Kind    { return KindParse }

type DecimalError struct {
	Text string
	Pos  parser.Position
	Err  error
}

func (e *DecimalError) Error() string {
	return fmt.Sprintf("Failed to parse number %q at %s: %v", e.Text, e.Pos, e.Err)
}

func (e *DecimalError) Unwrap() error { return e.Err }
func (e *DecimalError) Kind() Kind    { return KindDecimal }

type MissingSectionError struct {
	Section string
}

func (e *MissingSectionError) Error() string {
	return "Missing required section: " + e.Section
}

func (e *MissingSectionError) Kind() Kind { return KindMissingSection }

// UnsortedError is BidsUnsorted for the buy side and AsksUnsorted for the
// sell side. Price is the later price of the offending pair.
type UnsortedError struct {
	Side  Side
	Price decimal.Decimal
}

func (e *UnsortedError) Error() string {
	if e.Side == SideBuy {
		return "Bids must be sorted descending (highest first). Found issue at price " + FormatDecimal(e.Price)
	}
	return "Asks must be sorted ascending (lowest first). Found issue at price " + FormatDecimal(e.Price)
}

func (e *UnsortedError) Kind() Kind {
	if e.Side == SideBuy {
		return KindBidsUnsorted
	}
	return KindAsksUnsorted
}

type DuplicatePriceError struct {
	Side  Side
	Price decimal.Decimal
}

func (e *DuplicatePriceError) Error() string {
	return "Duplicate price level found: " + FormatDecimal(e.Price)
}

func (e *DuplicatePriceError) Kind() Kind { return KindDuplicatePrice }

type CrossedBookError struct {
	BestBid decimal.Decimal
	BestAsk decimal.Decimal
}

func (e *CrossedBookError) Error() string {
	return fmt.Sprintf("Crossed book detected: Best Bid (%s) is >= Best Ask (%s)",
		FormatDecimal(e.BestBid), FormatDecimal(e.BestAsk))
}

func (e *CrossedBookError) Kind() Kind { return KindCrossedBook }

type TickSizeError struct {
	Price    decimal.Decimal
	TickSize decimal.Decimal
}

func (e *TickSizeError) Error() string {
	return fmt.Sprintf("Price %s is not a multiple of tick size %s",
		FormatDecimal(e.Price), FormatDecimal(e.TickSize))
}

func (e *TickSizeError) Kind() Kind { return KindInvalidTickSize }

type MinLotError struct {
	Quantity decimal.Decimal
	MinLot   decimal.Decimal
}

func (e *MinLotError) Error() string {
	return fmt.Sprintf("Quantity %s is less than minimum lot size %s",
		FormatDecimal(e.Quantity), FormatDecimal(e.MinLot))
}

func (e *MinLotError) Kind() Kind { return KindInvalidMinLot }

type LotStepError struct {
	Quantity decimal.Decimal
	LotStep  decimal.Decimal
}

func (e *LotStepError) Error() string {
	return fmt.Sprintf("Quantity %s is not a multiple of lot step %s",
		FormatDecimal(e.Quantity), FormatDecimal(e.LotStep))
}

func (e *LotStepError) Kind() Kind { return KindInvalidLotStep }

type InsufficientLiquidityError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf("Not enough liquidity to fill order. Requested: %s, Available: %s",
		FormatDecimal(e.Requested), FormatDecimal(e.Available))
}

func (e *InsufficientLiquidityError) Kind() Kind { return KindNotEnoughLiquidity }
