// Package parser recognizes order book snapshot text such as
//
//	BIDS:100.0,10|99.5,5;ASKS:102.0,20|103.5,15
//
// and returns a Tree holding the raw number tokens of each side in textual
// order. It does not interpret numbers or check ordering; that belongs to the
// engine package.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	BidsLabel = "BIDS"
	AsksLabel = "ASKS"
)

const endOfInput = "end of input"

// Parse recognizes a complete order_book. Leading and trailing whitespace is
// allowed; anything else left over is a syntax error.
func Parse(input string) (*Tree, error) {
	r := newRecognizer(input)
	return r.orderBook()
}

// ParseRule checks that the whole input matches a single rule. The atomic
// rules (integer, number) do not skip leading whitespace.
func ParseRule(rule Rule, input string) error {
	r := newRecognizer(input)

	var follow []string
	var err error
	switch rule {
	case RuleInteger:
		err = r.integer(RuleInteger, "digit")
	case RuleNumber:
		_, err = r.number()
	case RuleLevel:
		r.skipSpace()
		_, err = r.level()
	case RuleLevelList:
		_, follow, err = r.levelList()
	case RuleBidsSide:
		_, follow, err = r.side(RuleBidsSide, BidsLabel)
	case RuleAsksSide:
		_, follow, err = r.side(RuleAsksSide, AsksLabel)
	case RuleOrderBook:
		_, err = r.orderBook()
		return err
	default:
		return fmt.Errorf("parser: unknown rule %s", rule)
	}
	if err != nil {
		return err
	}
	if rule == RuleInteger || rule == RuleNumber {
		if r.pos != len(r.src) {
			return r.fail(rule, endOfInput)
		}
		return nil
	}
	return r.end(rule, follow)
}

type recognizer struct {
	src       string
	pos       int
	line      int
	lineStart int
}

func newRecognizer(src string) *recognizer {
	return &recognizer{src: src, line: 1}
}

func (r *recognizer) orderBook() (*Tree, error) {
	bids, follow, err := r.side(RuleBidsSide, BidsLabel)
	if err != nil {
		return nil, err
	}
	if err := r.expect(RuleOrderBook, ';', follow...); err != nil {
		return nil, err
	}
	asks, follow, err := r.side(RuleAsksSide, AsksLabel)
	if err != nil {
		return nil, err
	}
	if err := r.end(RuleOrderBook, follow); err != nil {
		return nil, err
	}
	return &Tree{Bids: bids, Asks: asks}, nil
}

// side returns, besides the node, the tokens that could have extended the
// level list. They are merged into the caller's expectation on failure.
func (r *recognizer) side(rule Rule, label string) (*Side, []string, error) {
	r.skipSpace()
	start := r.here()
	if !strings.HasPrefix(r.src[r.pos:], label) {
		return nil, nil, r.fail(rule, strconv.Quote(label))
	}
	r.pos += len(label)

	if err := r.expect(rule, ':'); err != nil {
		return nil, nil, err
	}

	levels, follow, err := r.levelList()
	if err != nil {
		return nil, nil, err
	}
	return &Side{Label: label, Pos: start, Levels: levels}, follow, nil
}

func (r *recognizer) levelList() ([]Level, []string, error) {
	var levels []Level
	follow := []string{`"|"`}

	r.skipSpace()
	if isDigit(r.peek()) {
		lvl, err := r.level()
		if err != nil {
			return nil, nil, err
		}
		levels = append(levels, lvl)
	} else {
		follow = []string{"number", `"|"`}
	}

	for {
		r.skipSpace()
		if r.peek() != '|' {
			return levels, follow, nil
		}
		r.pos++

		// a separator must be followed by a complete level
		r.skipSpace()
		lvl, err := r.level()
		if err != nil {
			return nil, nil, err
		}
		levels = append(levels, lvl)
		follow = []string{`"|"`}
	}
}

func (r *recognizer) level() (Level, error) {
	start := r.here()
	price, err := r.number()
	if err != nil {
		return Level{}, err
	}
	if err := r.expect(RuleLevel, ','); err != nil {
		return Level{}, err
	}
	r.skipSpace()
	qty, err := r.number()
	if err != nil {
		return Level{}, err
	}
	return Level{Pos: start, Price: price, Quantity: qty}, nil
}

// number is atomic: no whitespace around the decimal point.
func (r *recognizer) number() (*Number, error) {
	start := r.here()
	if err := r.integer(RuleNumber, "number"); err != nil {
		return nil, err
	}
	if r.peek() == '.' {
		r.pos++
		if err := r.integer(RuleNumber, "digit"); err != nil {
			return nil, err
		}
	}
	return &Number{Text: r.src[start.Offset:r.pos], Pos: start}, nil
}

func (r *recognizer) integer(rule Rule, expected string) error {
	start := r.pos
	for r.pos < len(r.src) && isDigit(r.src[r.pos]) {
		r.pos++
	}
	if r.pos == start {
		return r.fail(rule, expected)
	}
	return nil
}

func (r *recognizer) expect(rule Rule, ch byte, follow ...string) error {
	r.skipSpace()
	if r.peek() == ch {
		r.pos++
		return nil
	}
	expected := make([]string, 0, len(follow)+1)
	expected = append(expected, follow...)
	expected = append(expected, strconv.Quote(string(ch)))
	return r.fail(rule, expected...)
}

func (r *recognizer) end(rule Rule, follow []string) error {
	r.skipSpace()
	if r.pos == len(r.src) {
		return nil
	}
	expected := make([]string, 0, len(follow)+1)
	expected = append(expected, follow...)
	expected = append(expected, endOfInput)
	return r.fail(rule, expected...)
}

func (r *recognizer) skipSpace() {
	for r.pos < len(r.src) {
		switch r.src[r.pos] {
		case '\n':
			r.pos++
			r.line++
			r.lineStart = r.pos
		case ' ', '\t', '\r':
			r.pos++
		default:
			return
		}
	}
}

func (r *recognizer) peek() byte {
	if r.pos >= len(r.src) {
		return 0
	}
	return r.src[r.pos]
}

// here is only called on positions reached by consuming ASCII, so the byte
// distance to the line start equals the column in runes.
func (r *recognizer) here() Position {
	return Position{Offset: r.pos, Line: r.line, Column: r.pos - r.lineStart + 1}
}

func (r *recognizer) fail(rule Rule, expected ...string) error {
	return &SyntaxError{
		Pos:      r.here(),
		Rule:     rule,
		Expected: expected,
		Found:    r.found(),
	}
}

func (r *recognizer) found() string {
	if r.pos >= len(r.src) {
		return endOfInput
	}
	ch, _ := utf8.DecodeRuneInString(r.src[r.pos:])
	return strconv.QuoteRune(ch)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
