// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"bytes"
	"strconv"
)

// Content stream operand types.
type (
	pdfName   string
	pdfString []byte
	pdfArray  []any
	pdfDict   struct{}
	keyword   string
)

// operation is one content stream operator with its operands.
type operation struct {
	op   string
	args []any
}

func (o operation) num(i int) float64 {
	if i < len(o.args) {
		if f, ok := o.args[i].(float64); ok {
			return f
		}
	}
	return 0
}

// nums returns the last n numeric operands, or false if there are fewer.
func (o operation) nums(n int) ([]float64, bool) {
	if len(o.args) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i, a := range o.args[len(o.args)-n:] {
		f, ok := a.(float64)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func (o operation) str(i int) (pdfString, bool) {
	if i < len(o.args) {
		s, ok := o.args[i].(pdfString)
		return s, ok
	}
	return nil, false
}

// parseContent tokenizes a decoded page content stream into operations.
// Inline images are skipped; malformed tokens are dropped.
func parseContent(data []byte) []operation {
	l := &lexer{data: data}
	var ops []operation
	var stack []any
	for {
		tok, ok := l.next()
		if !ok {
			break
		}
		kw, isKW := tok.(keyword)
		if !isKW {
			stack = append(stack, tok)
			continue
		}
		if kw == "BI" {
			l.skipInlineImage()
			stack = nil
			continue
		}
		ops = append(ops, operation{op: string(kw), args: stack})
		stack = nil
	}
	return ops
}

type lexer struct {
	data []byte
	pos  int
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		if !isSpace(c) {
			return
		}
		l.pos++
	}
}

func (l *lexer) next() (any, bool) {
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return nil, false
		}
		c := l.data[l.pos]
		switch {
		case c == '(':
			l.pos++
			return l.literal(), true
		case c == '<' && l.peek(1) == '<':
			l.skipDict()
			return pdfDict{}, true
		case c == '<':
			l.pos++
			return l.hex(), true
		case c == '[':
			l.pos++
			return l.array(), true
		case c == '/':
			l.pos++
			return pdfName(l.regular()), true
		case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
			l.pos++
			continue
		}
		word := l.regular()
		if word == "" {
			l.pos++
			continue
		}
		if f, err := strconv.ParseFloat(word, 64); err == nil {
			return f, true
		}
		return keyword(word), true
	}
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.data) {
		return l.data[l.pos+off]
	}
	return 0
}

func (l *lexer) regular() string {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) array() pdfArray {
	var out pdfArray
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return out
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return out
		}
		tok, ok := l.next()
		if !ok {
			return out
		}
		if _, isKW := tok.(keyword); isKW {
			continue
		}
		out = append(out, tok)
	}
}

// literal reads a parenthesized string after the opening paren, honoring
// nesting and backslash escapes.
func (l *lexer) literal() pdfString {
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return out
			}
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; k++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

func (l *lexer) hex() pdfString {
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		c := l.data[l.pos]
		if v, ok := hexVal(c); ok {
			digits = append(digits, v)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, 0)
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = digits[2*i]<<4 | digits[2*i+1]
	}
	return out
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (l *lexer) skipDict() {
	depth := 0
	for l.pos < len(l.data) {
		switch {
		case l.data[l.pos] == '(':
			l.pos++
			l.literal()
			continue
		case l.data[l.pos] == '<' && l.peek(1) == '<':
			depth++
			l.pos += 2
			continue
		case l.data[l.pos] == '>' && l.peek(1) == '>':
			depth--
			l.pos += 2
			if depth == 0 {
				return
			}
			continue
		}
		l.pos++
	}
}

// skipInlineImage advances past "ID <data> EI".
func (l *lexer) skipInlineImage() {
	idx := bytes.Index(l.data[l.pos:], []byte("ID"))
	if idx < 0 {
		l.pos = len(l.data)
		return
	}
	l.pos += idx + 3
	for l.pos < len(l.data) {
		idx := bytes.Index(l.data[l.pos:], []byte("EI"))
		if idx < 0 {
			l.pos = len(l.data)
			return
		}
		at := l.pos + idx
		before := at == 0 || isSpace(l.data[at-1])
		after := at+2 >= len(l.data) || isSpace(l.data[at+2])
		l.pos = at + 2
		if before && after {
			return
		}
	}
}
