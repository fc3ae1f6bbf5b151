package parser

import (
	"fmt"
	"strings"
)

// SyntaxError reports the first place where the input stopped matching the
// grammar, together with what would have been accepted there.
type SyntaxError struct {
	Pos      Position
	Rule     Rule
	Expected []string
	Found    string
}

func (e *SyntaxError) Error() string {
	var want string
	switch len(e.Expected) {
	case 0:
		want = "valid input"
	case 1:
		want = e.Expected[0]
	default:
		want = "one of " + strings.Join(e.Expected, ", ")
	}
	return fmt.Sprintf("%s: expected %s in %s, found %s", e.Pos, want, e.Rule, e.Found)
}
