// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package excel

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ValueKind classifies a live cell value seen by the evaluator.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindNumber
	KindOther
)

// Lookup returns the live value of the cell at (col, row), both 1-based.
type Lookup func(col, row int) (float64, ValueKind)

var (
	rangeFuncRe = regexp.MustCompile(`(?i)^\s*(SUM|AVERAGE|MAX|MIN)\s*\(\s*(\$?[A-Z]+\$?[0-9]+)\s*:\s*(\$?[A-Z]+\$?[0-9]+)\s*\)\s*$`)
	binaryRe    = regexp.MustCompile(`(?i)^\s*(\$?[A-Z]+\$?[0-9]+|[0-9]+(?:\.[0-9]+)?)\s*([-+*/])\s*(\$?[A-Z]+\$?[0-9]+|[0-9]+(?:\.[0-9]+)?)\s*$`)
)

// Evaluate computes a formula of one of two shapes: SUM, AVERAGE, MAX or
// MIN over a rectangular range, or one binary arithmetic operation between
// two operands that are cell references or numbers. Any other shape, a
// non-numeric operand, a malformed reference or division by zero reports
// false.
func Evaluate(formula string, lookup Lookup) (float64, bool) {
	expr := strings.TrimPrefix(strings.TrimSpace(formula), "=")
	if m := rangeFuncRe.FindStringSubmatch(expr); m != nil {
		return evalRange(strings.ToUpper(m[1]), m[2], m[3], lookup)
	}
	if m := binaryRe.FindStringSubmatch(expr); m != nil {
		return evalBinary(m[1], m[2], m[3], lookup)
	}
	return 0, false
}

func coords(ref string) (col, row int, ok bool) {
	col, row, err := excelize.CellNameToCoordinates(strings.ReplaceAll(ref, "$", ""))
	if err != nil {
		return 0, 0, false
	}
	return col, row, true
}

func evalRange(fn, from, to string, lookup Lookup) (float64, bool) {
	c1, r1, ok1 := coords(from)
	c2, r2, ok2 := coords(to)
	if !ok1 || !ok2 {
		return 0, false
	}
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	if r1 > r2 {
		r1, r2 = r2, r1
	}

	var values []float64
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			if v, kind := lookup(c, r); kind == KindNumber {
				values = append(values, v)
			}
		}
	}

	switch fn {
	case "SUM":
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total, true
	case "AVERAGE":
		if len(values) == 0 {
			return 0, false
		}
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total / float64(len(values)), true
	case "MAX", "MIN":
		if len(values) == 0 {
			return 0, true
		}
		out := values[0]
		for _, v := range values[1:] {
			if (fn == "MAX" && v > out) || (fn == "MIN" && v < out) {
				out = v
			}
		}
		return out, true
	}
	return 0, false
}

func operand(tok string, lookup Lookup) (float64, bool) {
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		return v, true
	}
	col, row, ok := coords(tok)
	if !ok {
		return 0, false
	}
	v, kind := lookup(col, row)
	switch kind {
	case KindEmpty:
		return 0, true
	case KindNumber:
		return v, true
	default:
		return 0, false
	}
}

func evalBinary(left, op, right string, lookup Lookup) (float64, bool) {
	a, ok := operand(left, lookup)
	if !ok {
		return 0, false
	}
	b, ok := operand(right, lookup)
	if !ok {
		return 0, false
	}
	switch op {
	case "+":
		return a + b, true
	case "-":
		return a - b, true
	case "*":
		return a * b, true
	case "/":
		if b == 0 {
			return 0, false
		}
		return a / b, true
	}
	return 0, false
}
