// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"bytes"
	"image/color"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/doc2md/internal/textnorm"
)

// matrix is a PDF affine transform [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n (apply m first, then n).
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func translate(x, y float64) matrix { return matrix{1, 0, 0, 1, x, y} }

// run is a piece of text shown at one position, in page space.
type run struct {
	x, y, end float64
	size      float64
	text      string
}

type point struct{ x, y float64 }

// segment is one path construction step in page space. Lines carry one
// point, cubic curves three, moves one.
type segment struct {
	op  byte // 'm', 'l', 'c', 'h'
	pts []point
}

// drawing is a painted path.
type drawing struct {
	segs        []segment
	fill        bool
	stroke      bool
	fillColor   color.RGBA
	strokeColor color.RGBA
	lineWidth   float64
}

// pageContent is what the interpreter recovers from one page.
type pageContent struct {
	runs     []run
	drawings []drawing
}

// textLen counts the non-space characters shown on the page.
func (p *pageContent) textLen() int {
	n := 0
	for _, r := range p.runs {
		n += utf8.RuneCountInString(strings.Join(strings.Fields(r.text), ""))
	}
	return n
}

type gstate struct {
	ctm         matrix
	fillColor   color.RGBA
	strokeColor color.RGBA
	lineWidth   float64
}

type interpreter struct {
	fonts   map[string]textDecoder
	font    textDecoder
	gs      gstate
	stack   []gstate
	tm, tlm matrix
	size    float64
	leading float64
	path    []segment
	out     pageContent
}

// advance approximates glyph width as half an em.
const advance = 0.5

// interpret replays content stream operations, collecting positioned text
// runs and painted paths. fonts maps font resource names to decoders; text
// in fonts it does not name is read as a single-byte encoding.
func interpret(ops []operation, fonts map[string]textDecoder) *pageContent {
	black := color.RGBA{A: 255}
	in := &interpreter{
		fonts: fonts,
		gs:   gstate{ctm: identity, fillColor: black, strokeColor: black, lineWidth: 1},
		tm:   identity,
		tlm:  identity,
		size: 12,
	}
	for _, op := range ops {
		in.exec(op)
	}
	return &in.out
}

func (in *interpreter) exec(op operation) {
	switch op.op {
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if n := len(in.stack); n > 0 {
			in.gs = in.stack[n-1]
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if v, ok := op.nums(6); ok {
			in.gs.ctm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}.mul(in.gs.ctm)
		}
	case "w":
		in.gs.lineWidth = op.num(0)
	case "g":
		in.gs.fillColor = gray(op.num(0))
	case "G":
		in.gs.strokeColor = gray(op.num(0))
	case "rg":
		if v, ok := op.nums(3); ok {
			in.gs.fillColor = rgb(v[0], v[1], v[2])
		}
	case "RG":
		if v, ok := op.nums(3); ok {
			in.gs.strokeColor = rgb(v[0], v[1], v[2])
		}
	case "k":
		if v, ok := op.nums(4); ok {
			in.gs.fillColor = cmyk(v[0], v[1], v[2], v[3])
		}
	case "K":
		if v, ok := op.nums(4); ok {
			in.gs.strokeColor = cmyk(v[0], v[1], v[2], v[3])
		}

	case "BT":
		in.tm, in.tlm = identity, identity
	case "Tf":
		if len(op.args) >= 2 {
			in.size = op.num(1)
			if name, ok := op.args[0].(pdfName); ok {
				in.font = in.fonts[string(name)]
			}
		}
	case "TL":
		in.leading = op.num(0)
	case "Td":
		in.moveLine(op.num(0), op.num(1))
	case "TD":
		in.leading = -op.num(1)
		in.moveLine(op.num(0), op.num(1))
	case "Tm":
		if v, ok := op.nums(6); ok {
			in.tlm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
			in.tm = in.tlm
		}
	case "T*":
		in.moveLine(0, -in.leading)
	case "Tj":
		if s, ok := op.str(0); ok {
			in.show(in.decode(s))
		}
	case "'":
		in.moveLine(0, -in.leading)
		if s, ok := op.str(0); ok {
			in.show(in.decode(s))
		}
	case "\"":
		in.moveLine(0, -in.leading)
		if s, ok := op.str(2); ok {
			in.show(in.decode(s))
		}
	case "TJ":
		if len(op.args) > 0 {
			if arr, ok := op.args[0].(pdfArray); ok {
				in.showArray(arr)
			}
		}

	case "m":
		if v, ok := op.nums(2); ok {
			in.path = append(in.path, segment{op: 'm', pts: in.points(v)})
		}
	case "l":
		if v, ok := op.nums(2); ok {
			in.path = append(in.path, segment{op: 'l', pts: in.points(v)})
		}
	case "c":
		if v, ok := op.nums(6); ok {
			in.path = append(in.path, segment{op: 'c', pts: in.points(v)})
		}
	case "v":
		if v, ok := op.nums(4); ok {
			cur := in.current()
			in.path = append(in.path, segment{op: 'c', pts: append([]point{cur}, in.points(v)...)})
		}
	case "y":
		if v, ok := op.nums(4); ok {
			pts := in.points(v)
			in.path = append(in.path, segment{op: 'c', pts: []point{pts[0], pts[1], pts[1]}})
		}
	case "h":
		in.path = append(in.path, segment{op: 'h'})
	case "re":
		if v, ok := op.nums(4); ok {
			x, y, w, h := v[0], v[1], v[2], v[3]
			in.path = append(in.path,
				segment{op: 'm', pts: in.points([]float64{x, y})},
				segment{op: 'l', pts: in.points([]float64{x + w, y})},
				segment{op: 'l', pts: in.points([]float64{x + w, y + h})},
				segment{op: 'l', pts: in.points([]float64{x, y + h})},
				segment{op: 'h'},
			)
		}
	case "S":
		in.paint(false, true, false)
	case "s":
		in.paint(false, true, true)
	case "f", "F", "f*":
		in.paint(true, false, false)
	case "B", "B*":
		in.paint(true, true, false)
	case "b", "b*":
		in.paint(true, true, true)
	case "n":
		in.path = nil
	}
}

func (in *interpreter) moveLine(tx, ty float64) {
	in.tlm = translate(tx, ty).mul(in.tlm)
	in.tm = in.tlm
}

func (in *interpreter) show(text string) {
	if text == "" {
		return
	}
	m := in.tm.mul(in.gs.ctm)
	x, y := m.apply(0, 0)
	w := float64(utf8.RuneCountInString(text)) * in.size * advance
	endX, _ := m.apply(w, 0)
	in.out.runs = append(in.out.runs, run{
		x:    x,
		y:    y,
		end:  endX,
		size: in.size * math.Hypot(m[2], m[3]),
		text: text,
	})
	in.tm = translate(w, 0).mul(in.tm)
}

// showArray handles TJ. Large negative kerning adjustments read as word
// spaces.
func (in *interpreter) showArray(arr pdfArray) {
	var b strings.Builder
	m := in.tm.mul(in.gs.ctm)
	x, y := m.apply(0, 0)
	width := 0.0
	for _, el := range arr {
		switch v := el.(type) {
		case pdfString:
			s := in.decode(v)
			b.WriteString(s)
			width += float64(utf8.RuneCountInString(s)) * in.size * advance
		case float64:
			width -= v / 1000 * in.size
			if v < -200 && b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
	}
	if b.Len() > 0 {
		endX, _ := m.apply(width, 0)
		in.out.runs = append(in.out.runs, run{
			x:    x,
			y:    y,
			end:  endX,
			size: in.size * math.Hypot(m[2], m[3]),
			text: b.String(),
		})
	}
	in.tm = translate(width, 0).mul(in.tm)
}

func (in *interpreter) points(v []float64) []point {
	out := make([]point, 0, len(v)/2)
	for i := 0; i+1 < len(v); i += 2 {
		x, y := in.gs.ctm.apply(v[i], v[i+1])
		out = append(out, point{x, y})
	}
	return out
}

func (in *interpreter) current() point {
	for i := len(in.path) - 1; i >= 0; i-- {
		if pts := in.path[i].pts; len(pts) > 0 {
			return pts[len(pts)-1]
		}
	}
	return point{}
}

func (in *interpreter) paint(fill, stroke, closePath bool) {
	if closePath {
		in.path = append(in.path, segment{op: 'h'})
	}
	if len(in.path) > 0 {
		scale := math.Sqrt(math.Abs(in.gs.ctm[0]*in.gs.ctm[3] - in.gs.ctm[1]*in.gs.ctm[2]))
		in.out.drawings = append(in.out.drawings, drawing{
			segs:        in.path,
			fill:        fill,
			stroke:      stroke,
			fillColor:   in.gs.fillColor,
			strokeColor: in.gs.strokeColor,
			lineWidth:   in.gs.lineWidth * scale,
		})
	}
	in.path = nil
}

func clamp01(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func gray(v float64) color.RGBA {
	c := clamp01(v)
	return color.RGBA{c, c, c, 255}
}

func rgb(r, g, b float64) color.RGBA {
	return color.RGBA{clamp01(r), clamp01(g), clamp01(b), 255}
}

func cmyk(c, m, y, k float64) color.RGBA {
	return rgb((1-c)*(1-k), (1-m)*(1-k), (1-y)*(1-k))
}

func (in *interpreter) decode(s pdfString) string {
	if in.font == nil || bytes.HasPrefix(s, []byte{0xFE, 0xFF}) {
		return decodeText(s)
	}
	if text := in.font.Decode(string(s)); utf8.ValidString(text) {
		return text
	}
	return decodeText(s)
}

// decodeText turns string operand bytes into text. UTF-16 strings carry a
// byte order mark; everything else is read as a single-byte encoding.
func decodeText(s pdfString) string {
	text, _ := textnorm.Decode(s, "windows-1252")
	return text
}
