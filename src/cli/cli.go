// Package cli implements the parse and credits subcommands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Pilmik/order-book-parser/src/engine"
)

const (
	Name    = "order-book-parser"
	Version = "0.1.0"
	Author  = "Mykhailo Pilat"
	License = "MIT"
)

var (
	// ErrInvalidBook is returned after the book error has been reported.
	ErrInvalidBook = errors.New("order book rejected")
	ErrTradeFailed = errors.New("trade failed")
)

func Credits(w io.Writer) {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "   Order Book Parser v%s\n", Version)
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Author:  %s\n", Author)
	fmt.Fprintf(w, "License: %s\n", License)
	fmt.Fprintln(w, "========================================")
}

type parseOptions struct {
	file     string
	tickSize float64
	minLot   float64
	lotStep  float64
	action   string
	amount   float64
}

// RunParse reads a snapshot file, validates it against the instrument given
// on the command line and optionally executes a market order against it.
func RunParse(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Reading file: %q\n", opts.file)
	content, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("could not read file %q: %w", opts.file, err)
	}

	config := engine.NewInstrumentConfig(opts.tickSize, opts.minLot, opts.lotStep)
	fmt.Fprintf(stdout, "Applying Config: %s\n", config)

	book, err := engine.ParseOrderBook(strings.TrimSpace(string(content)), &config)
	if err != nil {
		fmt.Fprintln(stderr, "\nError processing order book:")
		fmt.Fprintf(stderr, "   %v\n", err)
		fmt.Fprintln(stderr, "   Hint: Check if your file data complies with the tick/lot rules.")
		return ErrInvalidBook
	}

	fmt.Fprintln(stdout, "\nSuccessfully parsed and validated Order Book!")
	fmt.Fprintln(stdout, book)

	if opts.action == "" {
		return nil
	}

	side, err := engine.ParseSide(opts.action)
	if err != nil {
		return err
	}
	qty := decimal.NewFromFloat(opts.amount)
	if err := config.ValidateOrderQuantity(qty); err != nil {
		return err
	}
	return performTrade(stdout, stderr, book, side, qty)
}

func parseFlags(args []string, stderr io.Writer) (parseOptions, error) {
	var opts parseOptions
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.file, "file", "", "path to the input file containing order book data (required)")
	fs.StringVar(&opts.file, "f", "", "shorthand for --file")
	fs.Float64Var(&opts.tickSize, "tick-size", 0, "instrument tick size, e.g. 0.5 (required)")
	fs.Float64Var(&opts.minLot, "min-lot", 0, "instrument minimum lot size, e.g. 1.0 (required)")
	fs.Float64Var(&opts.lotStep, "lot-step", 0, "instrument lot step, e.g. 1.0 (required)")
	fs.StringVar(&opts.action, "action", "", "market order side: buy or sell (requires --amount)")
	fs.Float64Var(&opts.amount, "amount", 0, "amount to trade, must match min-lot and lot-step (requires --action)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["f"] {
		set["file"] = true
	}

	var missing []string
	for _, name := range []string{"file", "tick-size", "min-lot", "lot-step"} {
		if !set[name] {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return opts, fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	if set["action"] != set["amount"] {
		return opts, errors.New("--action and --amount must be given together")
	}
	if set["action"] {
		if _, err := engine.ParseSide(opts.action); err != nil {
			return opts, err
		}
	}
	for _, v := range []float64{opts.tickSize, opts.minLot, opts.lotStep, opts.amount} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return opts, fmt.Errorf("instrument values and amount must be finite and non-negative, got %v", v)
		}
	}
	return opts, nil
}

func performTrade(stdout, stderr io.Writer, book *engine.OrderBook, side engine.Side, qty decimal.Decimal) error {
	fmt.Fprintf(stdout, "\n--- Executing %s Market Order for %s ---\n", side, engine.FormatDecimal(qty))

	position, err := book.ExecuteMarketOrder(side, qty)
	if err != nil {
		fmt.Fprintf(stderr, "Trade Failed: %v\n", err)
		return ErrTradeFailed
	}

	if position.IsPartial() {
		fmt.Fprintf(stdout, "Result: Order Partially Filled (requested %s)\n", engine.FormatDecimal(position.Requested))
	} else {
		fmt.Fprintln(stdout, "Result: Order Filled!")
	}
	fmt.Fprintf(stdout, "  - Quantity:    %s\n", engine.FormatDecimal(position.Quantity))
	fmt.Fprintf(stdout, "  - Open price:  %s\n", engine.FormatDecimal(roundDP(position.EntryPrice, 4)))

	if pnl, ok := position.CalculatePnL(book); ok {
		fmt.Fprintf(stdout, "  - PnL:    %s\n", engine.FormatDecimal(roundDP(pnl, 2)))
	} else {
		fmt.Fprintln(stdout, "  - PnL:    N/A (Insufficient liquidity to calc exit)")
	}

	fmt.Fprintln(stdout, "\nUpdated Order Book State:")
	fmt.Fprintln(stdout, book)
	return nil
}

// roundDP rounds half to even to at most places digits, leaving shorter
// values at their own scale.
func roundDP(d decimal.Decimal, places int32) decimal.Decimal {
	if d.Exponent() >= -places {
		return d
	}
	return d.RoundBank(places)
}
