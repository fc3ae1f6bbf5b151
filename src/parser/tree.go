package parser

import "fmt"

// Rule names a production of the snapshot grammar:
//
//	integer     := digit+
//	number      := integer ("." integer)?
//	level       := number "," number
//	level_list  := (level)? ("|" level)*
//	bids_side   := "BIDS" ":" level_list
//	asks_side   := "ASKS" ":" level_list
//	order_book  := bids_side ";" asks_side
//
// Whitespace (space, tab, CR, LF) is skipped between tokens but never inside
// integer or number.
type Rule int

const (
	RuleInteger Rule = iota
	RuleNumber
	RuleLevel
	RuleLevelList
	RuleBidsSide
	RuleAsksSide
	RuleOrderBook
)

var ruleNames = [...]string{
	RuleInteger:   "integer",
	RuleNumber:    "number",
	RuleLevel:     "level",
	RuleLevelList: "level_list",
	RuleBidsSide:  "bids_side",
	RuleAsksSide:  "asks_side",
	RuleOrderBook: "order_book",
}

func (r Rule) String() string {
	if r < 0 || int(r) >= len(ruleNames) {
		return fmt.Sprintf("Rule(%d)", int(r))
	}
	return ruleNames[r]
}

// Position locates a byte in the input. Line and Column are 1-based; Column
// counts runes from the start of the line.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Number is the raw text of a number token, exactly as it appeared.
type Number struct {
	Text string
	Pos  Position
}

// Level is a "price,quantity" pair. Price and Quantity are nil only if the
// tree was built by hand; the recognizer always fills both.
type Level struct {
	Pos      Position
	Price    *Number
	Quantity *Number
}

// Side is one "LABEL:level_list" section. Levels keep their textual order.
type Side struct {
	Label  string
	Pos    Position
	Levels []Level
}

// Tree is the result of recognizing a complete order_book.
type Tree struct {
	Bids *Side
	Asks *Side
}
