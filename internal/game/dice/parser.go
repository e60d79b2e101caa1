package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expression is a parsed dice expression.
//
// Invariant: Count >= 0, Sides >= 1 when Count > 0. A constant such as "3"
// parses with Count == 0.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

var exprPattern = regexp.MustCompile(`^(?:(\d*)d(\d+))?([+-]?\d+)?$`)

// Parse parses "d20", "2d6", "1d4+1", "3d8-2" or a bare constant "3".
//
// Postcondition: returns a valid Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	m := exprPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}
	out := Expression{Raw: expr}
	if m[2] != "" {
		out.Count = 1
		if m[1] != "" {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return Expression{}, fmt.Errorf("dice: invalid die count in %q", expr)
			}
			out.Count = n
		}
		sides, err := strconv.Atoi(m[2])
		if err != nil || sides < 1 {
			return Expression{}, fmt.Errorf("dice: invalid die sides in %q", expr)
		}
		out.Sides = sides
	} else if m[3] != "" && (strings.HasPrefix(m[3], "+") || strings.HasPrefix(m[3], "-")) {
		return Expression{}, fmt.Errorf("dice: modifier without dice in %q", expr)
	}
	if m[3] != "" {
		mod, err := strconv.Atoi(m[3])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
		out.Modifier = mod
	}
	return out, nil
}

// MustParse parses expr and panics on error. Useful for package-level defaults.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// Min returns the smallest value the expression can produce.
func (e Expression) Min() int { return e.Count + e.Modifier }

// Max returns the largest value the expression can produce.
func (e Expression) Max() int { return e.Count*e.Sides + e.Modifier }
