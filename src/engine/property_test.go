package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// drawBook builds a structurally valid book with prices in tenths.
func drawBook(t *rapid.T) (bids, asks []Level) {
	bestBid := rapid.IntRange(1, 5000).Draw(t, "bestBid")
	spread := rapid.IntRange(1, 50).Draw(t, "spread")

	price := bestBid
	for i := rapid.IntRange(0, 8).Draw(t, "bidCount"); i > 0 && price > 0; i-- {
		bids = append(bids, Level{
			Price:    decimal.New(int64(price), -1),
			Quantity: decimal.NewFromInt(int64(rapid.IntRange(0, 100).Draw(t, "bidQty"))),
		})
		price -= rapid.IntRange(1, 20).Draw(t, "bidStep")
	}

	price = bestBid + spread
	for i := rapid.IntRange(0, 8).Draw(t, "askCount"); i > 0; i-- {
		asks = append(asks, Level{
			Price:    decimal.New(int64(price), -1),
			Quantity: decimal.NewFromInt(int64(rapid.IntRange(0, 100).Draw(t, "askQty"))),
		})
		price += rapid.IntRange(1, 20).Draw(t, "askStep")
	}
	return bids, asks
}

func renderBook(bids, asks []Level) string {
	return "BIDS:" + renderLevels(bids) + ";ASKS:" + renderLevels(asks)
}

func renderLevels(levels []Level) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = FormatDecimal(l.Price) + "," + FormatDecimal(l.Quantity)
	}
	return strings.Join(parts, "|")
}

func sameLevels(a, b []Level) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Price.Equal(b[i].Price) || !a[i].Quantity.Equal(b[i].Quantity) {
			return false
		}
	}
	return true
}

func totalQuantity(levels []Level) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range levels {
		sum = sum.Add(l.Quantity)
	}
	return sum
}

func TestPropertySortedBooksRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bids, asks := drawBook(t)

		book, err := ParseOrderBook(renderBook(bids, asks), nil)
		if err != nil {
			t.Fatalf("valid book rejected: %v", err)
		}
		if !sameLevels(book.Bids, bids) || !sameLevels(book.Asks, asks) {
			t.Fatalf("levels changed: got %v / %v", book.Bids, book.Asks)
		}
	})
}

func TestPropertyAdjacentDuplicateRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bids, asks := drawBook(t)
		onBids := rapid.Bool().Draw(t, "onBids")

		levels := &asks
		if onBids {
			levels = &bids
		}
		if len(*levels) == 0 {
			return
		}
		i := rapid.IntRange(0, len(*levels)-1).Draw(t, "index")
		dup := (*levels)[i]
		*levels = append((*levels)[:i+1], append([]Level{dup}, (*levels)[i+1:]...)...)

		_, err := ParseOrderBook(renderBook(bids, asks), nil)
		var dupErr *DuplicatePriceError
		if !errors.As(err, &dupErr) {
			t.Fatalf("got %v, want DuplicatePrice", err)
		}
		if !dupErr.Price.Equal(dup.Price) {
			t.Fatalf("duplicate reported at %s, want %s", dupErr.Price, dup.Price)
		}
	})
}

func TestPropertyUnsortedRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bids, asks := drawBook(t)
		onBids := rapid.Bool().Draw(t, "onBids")

		levels := &asks
		want := KindAsksUnsorted
		if onBids {
			levels = &bids
			want = KindBidsUnsorted
		}
		if len(*levels) < 2 {
			return
		}
		i := rapid.IntRange(1, len(*levels)-1).Draw(t, "index")
		(*levels)[i-1], (*levels)[i] = (*levels)[i], (*levels)[i-1]

		_, err := ParseOrderBook(renderBook(bids, asks), nil)
		kind, ok := KindOf(err)
		if !ok || kind != want {
			t.Fatalf("got %v, want %s", err, want)
		}
		var unsorted *UnsortedError
		if !errors.As(err, &unsorted) {
			t.Fatalf("got %T, want *UnsortedError", err)
		}
		// the first bad pair is the swapped one
		if !unsorted.Price.Equal((*levels)[i].Price) {
			t.Fatalf("reported %s, want %s", unsorted.Price, (*levels)[i].Price)
		}
	})
}

func TestPropertyInstrumentRules(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bids, asks := drawBook(t)
		config := InstrumentConfig{
			TickSize: rapid.SampledFrom([]decimal.Decimal{dec("0"), dec("0.5"), dec("0.2"), dec("1")}).Draw(t, "tick"),
			MinLot:   rapid.SampledFrom([]decimal.Decimal{dec("0"), dec("1"), dec("10")}).Draw(t, "minLot"),
			LotStep:  rapid.SampledFrom([]decimal.Decimal{dec("0"), dec("1"), dec("5")}).Draw(t, "lotStep"),
		}

		var want Kind
	scan:
		for _, levels := range [][]Level{bids, asks} {
			for _, l := range levels {
				switch {
				case !config.TickSize.IsZero() && !l.Price.Mod(config.TickSize).IsZero():
					want = KindInvalidTickSize
				case l.Quantity.LessThan(config.MinLot):
					want = KindInvalidMinLot
				case !config.LotStep.IsZero() && !l.Quantity.Mod(config.LotStep).IsZero():
					want = KindInvalidLotStep
				default:
					continue
				}
				break scan
			}
		}

		_, err := ParseOrderBook(renderBook(bids, asks), &config)
		if want == 0 {
			if err != nil {
				t.Fatalf("compliant book rejected: %v", err)
			}
			return
		}
		kind, _ := KindOf(err)
		if kind != want {
			t.Fatalf("got %v, want %s", err, want)
		}
	})
}

func TestPropertyMarketOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bids, asks := drawBook(t)
		book, err := ParseOrderBook(renderBook(bids, asks), nil)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		side := rapid.SampledFrom([]Side{SideBuy, SideSell}).Draw(t, "side")
		qty := decimal.NewFromInt(int64(rapid.IntRange(1, 400).Draw(t, "qty")))

		opposite := asks
		if side == SideSell {
			opposite = bids
		}
		available := totalQuantity(opposite)

		position, err := book.ExecuteMarketOrder(side, qty)
		if err != nil {
			if kind, _ := KindOf(err); kind != KindNotEnoughLiquidity {
				t.Fatalf("unexpected error: %v", err)
			}
			if !available.IsZero() {
				t.Fatalf("rejected with %s available", available)
			}
			if !sameLevels(book.Bids, bids) || !sameLevels(book.Asks, asks) {
				t.Fatalf("book mutated on failure")
			}
			return
		}

		if position.Quantity.GreaterThan(qty) {
			t.Fatalf("filled %s > requested %s", position.Quantity, qty)
		}
		if !position.Quantity.Equal(decimal.Min(qty, available)) {
			t.Fatalf("filled %s, want min(%s, %s)", position.Quantity, qty, available)
		}

		cost, filled := decimal.Zero, decimal.Zero
		priceScale, quantityScale := int32(0), int32(0)
		for _, f := range position.Fills {
			cost = cost.Add(f.Price.Mul(f.Quantity))
			filled = filled.Add(f.Quantity)
			priceScale = max(priceScale, -f.Price.Exponent())
			quantityScale = max(quantityScale, -f.Quantity.Exponent())
		}
		if !filled.Equal(position.Quantity) {
			t.Fatalf("fills sum to %s, position says %s", filled, position.Quantity)
		}
		if !position.EntryPrice.Equal(cost.DivRound(filled, VWAPPrecision+priceScale+quantityScale)) {
			t.Fatalf("entry %s is not the VWAP of %v", position.EntryPrice, position.Fills)
		}

		after := book.Asks
		if side == SideSell {
			after = book.Bids
		}
		if !totalQuantity(after).Add(filled).Equal(available) {
			t.Fatalf("quantity not conserved")
		}
		if _, err := ParseOrderBook(renderBook(book.Bids, book.Asks), nil); err != nil {
			t.Fatalf("book invalid after execution: %v", err)
		}
	})
}

func TestMarketSellLeavesAsks(t *testing.T) {
	book, err := ParseOrderBook("BIDS:10,1|9,1;ASKS:11,1|12,1", nil)
	require.NoError(t, err)

	_, err = book.ExecuteMarketOrder(SideSell, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Len(t, book.Asks, 2)
	assert.Len(t, book.Bids, 1)
}
