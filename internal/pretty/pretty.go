// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pretty normalizes the layout of generated Markdown without
// changing what it renders to.
package pretty

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

var (
	listRe    = regexp.MustCompile(`^\s*([-*+]|\d+\.)\s`)
	sepCellRe = regexp.MustCompile(`^:?-+:?$`)
)

// Format trims trailing whitespace, collapses runs of blank lines, aligns
// pipe tables, puts blank lines around headings, fences, tables and lists,
// and ends the text with exactly one newline. Fenced code is left as is
// apart from trailing whitespace. A leading YAML frontmatter block is kept
// verbatim. Format is idempotent.
func Format(markdown string) string {
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}

	head, body := splitFrontmatter(lines)
	body = alignTables(body)
	body = spaceBlocks(body)
	body = collapseBlanks(body)

	out := head
	if len(head) > 0 && len(body) > 0 {
		out = append(out, "")
	}
	out = append(out, body...)
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

func splitFrontmatter(lines []string) (head, body []string) {
	if len(lines) == 0 || lines[0] != "---" {
		return nil, lines
	}
	for i := 1; i < len(lines); i++ {
		if lines[i] == "---" {
			return append([]string{}, lines[:i+1]...), lines[i+1:]
		}
	}
	return nil, lines
}

func isFence(l string) bool { return strings.HasPrefix(strings.TrimSpace(l), "```") }

func isTableRow(l string) bool {
	return len(l) >= 2 && strings.HasPrefix(l, "|") && strings.HasSuffix(l, "|")
}

type kind int

const (
	kindText kind = iota
	kindBlank
	kindHeading
	kindFence
	kindTable
	kindList
)

// classify tags every line, marking fenced lines (delimiters included) as
// kindFence.
func classify(lines []string) []kind {
	kinds := make([]kind, len(lines))
	inFence := false
	for i, l := range lines {
		switch {
		case isFence(l):
			kinds[i] = kindFence
			inFence = !inFence
		case inFence:
			kinds[i] = kindFence
		case l == "":
			kinds[i] = kindBlank
		case strings.HasPrefix(l, "#"):
			kinds[i] = kindHeading
		case isTableRow(l):
			kinds[i] = kindTable
		case listRe.MatchString(l):
			kinds[i] = kindList
		case strings.HasPrefix(l, " ") && i > 0 && kinds[i-1] == kindList:
			kinds[i] = kindList
		}
	}
	return kinds
}

// spaceBlocks inserts a blank line wherever a heading, fence, table or list
// block touches a different block.
func spaceBlocks(lines []string) []string {
	kinds := classify(lines)
	out := make([]string, 0, len(lines))
	inFence := false
	for i, l := range lines {
		if i > 0 && needsGap(kinds[i-1], kinds[i], inFence, isFence(l)) {
			out = append(out, "")
		}
		if isFence(l) {
			inFence = !inFence
		}
		out = append(out, l)
	}
	return out
}

func needsGap(prev, cur kind, inFence, fence bool) bool {
	if prev == kindBlank || cur == kindBlank {
		return false
	}
	if fence && !inFence {
		return true
	}
	if inFence {
		return false
	}
	if prev == kindFence {
		return true
	}
	if prev == kindHeading || cur == kindHeading {
		return true
	}
	return prev != cur && (prev == kindTable || cur == kindTable || prev == kindList || cur == kindList)
}

// collapseBlanks drops leading blank lines and repeated blank lines outside
// fences.
func collapseBlanks(lines []string) []string {
	out := make([]string, 0, len(lines))
	inFence := false
	for _, l := range lines {
		if isFence(l) {
			inFence = !inFence
		}
		if !inFence && l == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, l)
	}
	return out
}

func alignTables(lines []string) []string {
	kinds := classify(lines)
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		if kinds[i] != kindTable {
			out = append(out, lines[i])
			i++
			continue
		}
		end := i
		for end < len(lines) && kinds[end] == kindTable {
			end++
		}
		out = append(out, alignTable(lines[i:end])...)
		i = end
	}
	return out
}

func alignTable(rows []string) []string {
	grid := make([][]string, len(rows))
	var widths []int
	for r, row := range rows {
		grid[r] = splitCells(row)
		for c, cell := range grid[r] {
			if c >= len(widths) {
				widths = append(widths, 0)
			}
			w := runewidth.StringWidth(cell)
			if sepCellRe.MatchString(cell) {
				w = 3
			}
			widths[c] = max(widths[c], w)
		}
	}

	out := make([]string, len(rows))
	for r, cells := range grid {
		var b strings.Builder
		b.WriteString("|")
		for c, cell := range cells {
			b.WriteString(" ")
			if sepCellRe.MatchString(cell) {
				b.WriteString(separator(cell, widths[c]))
			} else {
				b.WriteString(cell)
				b.WriteString(strings.Repeat(" ", widths[c]-runewidth.StringWidth(cell)))
			}
			b.WriteString(" |")
		}
		out[r] = b.String()
	}
	return out
}

func separator(cell string, width int) string {
	left := strings.HasPrefix(cell, ":")
	right := strings.HasSuffix(cell, ":")
	n := width
	if left {
		n--
	}
	if right {
		n--
	}
	s := strings.Repeat("-", max(n, 1))
	if left {
		s = ":" + s
	}
	if right {
		s += ":"
	}
	return s
}

// splitCells splits a row on pipes that are not backslash-escaped, keeping
// escapes in the cell text.
func splitCells(row string) []string {
	s := row[1 : len(row)-1]
	if strings.HasSuffix(s, `\`) {
		s += "|"
	}
	var cells []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		if r == '|' && !escaped {
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		escaped = r == '\\' && !escaped
		cur.WriteRune(r)
	}
	return append(cells, strings.TrimSpace(cur.String()))
}
