// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"math"
	"sort"
	"strings"
)

// line is a set of runs sharing a baseline, left to right.
type line struct {
	y    float64
	size float64
	runs []run
}

// cell is a group of adjacent runs within a line.
type cell struct {
	x    float64
	text string
}

// groupLines orders runs top to bottom and merges runs whose baselines are
// within a fraction of the font size.
func groupLines(runs []run) []line {
	sorted := make([]run, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].y-sorted[j].y) > 0.01 {
			return sorted[i].y > sorted[j].y
		}
		return sorted[i].x < sorted[j].x
	})

	var lines []line
	for _, r := range sorted {
		if n := len(lines); n > 0 {
			last := &lines[n-1]
			if math.Abs(last.y-r.y) <= math.Max(2, 0.3*last.size) {
				last.runs = append(last.runs, r)
				last.size = math.Max(last.size, r.size)
				continue
			}
		}
		lines = append(lines, line{y: r.y, size: r.size, runs: []run{r}})
	}
	for i := range lines {
		sort.SliceStable(lines[i].runs, func(a, b int) bool { return lines[i].runs[a].x < lines[i].runs[b].x })
	}
	return lines
}

// cells splits a line wherever the horizontal gap between runs exceeds two
// ems.
func (l line) cells() []cell {
	var out []cell
	var b strings.Builder
	start, prevEnd := 0.0, 0.0
	for i, r := range l.runs {
		gap := r.x - prevEnd
		switch {
		case i == 0:
			start = r.x
		case gap > 2*math.Max(l.size, 1):
			out = append(out, cell{x: start, text: strings.TrimSpace(b.String())})
			b.Reset()
			start = r.x
		case gap > 0.1*l.size && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(r.text, " "):
			b.WriteByte(' ')
		}
		b.WriteString(r.text)
		if i == 0 || r.end > prevEnd {
			prevEnd = r.end
		}
	}
	if len(l.runs) > 0 {
		out = append(out, cell{x: start, text: strings.TrimSpace(b.String())})
	}
	return out
}

func (l line) text() string {
	cs := l.cells()
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		if c.text != "" {
			parts = append(parts, c.text)
		}
	}
	return strings.Join(parts, " ")
}

// aligned reports whether two lines have the same number of cells starting
// at the same columns.
func aligned(a, b []cell, tol float64) bool {
	if len(a) != len(b) || len(a) < 2 {
		return false
	}
	for i := range a {
		if math.Abs(a[i].x-b[i].x) > tol {
			return false
		}
	}
	return true
}

// rawTable is a detected grid of cell texts, first row first.
type rawTable [][]string

// layoutPage splits lines into detected tables and the remaining text.
// A table is two or more consecutive lines with at least two cells each,
// aligned on the same column starts. Paragraph breaks are inserted where
// the vertical gap exceeds 1.8 line heights.
func layoutPage(lines []line) ([]rawTable, string) {
	var tables []rawTable
	var text []string
	prevY, prevSize := 0.0, 0.0

	emit := func(l line) {
		if len(text) > 0 && prevY-l.y > 1.8*math.Max(prevSize, 1) {
			text = append(text, "")
		}
		text = append(text, l.text())
		prevY, prevSize = l.y, l.size
	}

	for i := 0; i < len(lines); {
		first := lines[i].cells()
		j := i + 1
		if len(first) >= 2 {
			tol := math.Max(3, 0.6*lines[i].size)
			for j < len(lines) && aligned(first, lines[j].cells(), tol) {
				j++
			}
		}
		if j-i >= 2 {
			var t rawTable
			for _, l := range lines[i:j] {
				var row []string
				for _, c := range l.cells() {
					row = append(row, c.text)
				}
				t = append(t, row)
			}
			tables = append(tables, t)
			prevY, prevSize = lines[j-1].y, lines[j-1].size
			i = j
			continue
		}
		emit(lines[i])
		i++
	}
	return tables, strings.Join(text, "\n")
}
