// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks generated Markdown for syntax problems. It works
// on the serialized string only.
package validate

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Severity grades an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding, with a 1-based line number when known.
type Issue struct {
	Severity Severity
	Line     int
	Message  string
	Context  string
}

func (i Issue) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", strings.ToUpper(string(i.Severity)))
	if i.Line > 0 {
		fmt.Fprintf(&b, " line %d:", i.Line)
	}
	b.WriteString(" " + i.Message)
	if i.Context != "" {
		fmt.Fprintf(&b, " (%s)", i.Context)
	}
	return b.String()
}

// Result holds every issue found.
type Result struct {
	Issues []Issue
}

// Valid reports whether no error-level issue was found.
func (r Result) Valid() bool { return len(r.Errors()) == 0 }

// Errors returns the error-level issues.
func (r Result) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-level issues.
func (r Result) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r Result) filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

const contextLen = 50

func clip(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > contextLen {
		return string(r[:contextLen])
	}
	return s
}

var (
	linkRe      = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	orderedRe   = regexp.MustCompile(`^\d+\.`)
	orderedOKRe = regexp.MustCompile(`^\d+\.(\s|$)`)
	bulletRe    = regexp.MustCompile(`^([-*+])\s`)
	sepCellRe   = regexp.MustCompile(`^:?-+:?$`)
)

// Validate runs every check over markdown. Lines inside fenced code blocks
// are exempt from the heading, table, link and list checks.
func Validate(markdown string) Result {
	lines := strings.Split(markdown, "\n")
	v := &validator{}
	inFence, fenceLine := false, 0
	var prose []int // indexes of lines outside fences

	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			if !inFence {
				fenceLine = i
			}
			inFence = !inFence
			continue
		}
		if !inFence {
			prose = append(prose, i)
		}
	}
	if inFence {
		v.add(SeverityError, fenceLine+1, "unclosed code block", lines[fenceLine])
	}

	v.tables(lines, prose)
	for _, i := range prose {
		v.heading(i+1, lines[i])
		v.links(i+1, lines[i])
		v.ordered(i+1, lines[i])
	}
	v.markers(lines, prose)
	return Result{Issues: v.issues}
}

type validator struct {
	issues []Issue
}

func (v *validator) add(s Severity, line int, msg, ctx string) {
	v.issues = append(v.issues, Issue{Severity: s, Line: line, Message: msg, Context: clip(ctx)})
}

func isTableRow(l string) bool {
	s := strings.TrimSpace(l)
	return len(s) >= 2 && strings.HasPrefix(s, "|") && strings.HasSuffix(s, "|")
}

// cells splits a table row on pipes not preceded by a backslash.
func cells(l string) []string {
	s := strings.TrimSpace(l)
	s = strings.TrimPrefix(s, "|")
	if strings.HasSuffix(s, "|") && !strings.HasSuffix(s, `\|`) {
		s = s[:len(s)-1]
	}
	var out []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	return append(out, strings.TrimSpace(cur.String()))
}

func isSeparator(l string) bool {
	for _, c := range cells(l) {
		if !sepCellRe.MatchString(c) {
			return false
		}
	}
	return true
}

// tables checks each run of consecutive table rows for a separator row and
// a consistent column count.
func (v *validator) tables(lines []string, prose []int) {
	for k := 0; k < len(prose); {
		i := prose[k]
		if !isTableRow(lines[i]) {
			k++
			continue
		}
		end := k
		for end < len(prose) && prose[end] == i+(end-k) && isTableRow(lines[prose[end]]) {
			end++
		}
		block := prose[k:end]
		k = end

		header := len(cells(lines[block[0]]))
		if len(block) < 2 || !isSeparator(lines[block[1]]) {
			v.add(SeverityWarning, block[0]+1, "table has no separator row", lines[block[0]])
			continue
		}
		if n := len(cells(lines[block[1]])); n != header {
			v.add(SeverityWarning, block[1]+1, fmt.Sprintf("table header has %d columns but separator has %d", header, n), lines[block[1]])
		}
		for _, r := range block[2:] {
			if n := len(cells(lines[r])); n != header {
				v.add(SeverityWarning, r+1, fmt.Sprintf("table row has %d columns but header has %d", n, header), lines[r])
			}
		}
	}
}

func (v *validator) heading(n int, l string) {
	s := strings.TrimSpace(l)
	if !strings.HasPrefix(s, "#") {
		return
	}
	level := len(s) - len(strings.TrimLeft(s, "#"))
	if level < len(s) && s[level] != ' ' {
		v.add(SeverityWarning, n, "heading should have a space after '#' markers", s)
	}
	if level > 6 {
		v.add(SeverityWarning, n, fmt.Sprintf("heading level %d exceeds maximum of 6", level), s)
	}
}

func (v *validator) links(n int, l string) {
	for _, m := range linkRe.FindAllStringSubmatch(l, -1) {
		if strings.TrimSpace(m[1]) == "" {
			v.add(SeverityWarning, n, "link has empty text", m[0])
		}
		if strings.TrimSpace(m[2]) == "" {
			v.add(SeverityWarning, n, "link has empty URL", m[0])
		}
	}
}

func (v *validator) ordered(n int, l string) {
	s := strings.TrimSpace(l)
	if orderedRe.MatchString(s) && !orderedOKRe.MatchString(s) {
		v.add(SeverityWarning, n, "ordered list item should have space after period", s)
	}
}

// markers flags a list whose consecutive items switch bullet characters.
func (v *validator) markers(lines []string, prose []int) {
	prev, prevLine := "", -2
	for _, i := range prose {
		m := bulletRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			if strings.TrimSpace(lines[i]) == "" || !strings.HasPrefix(lines[i], " ") {
				prev = ""
			}
			continue
		}
		if prev != "" && m[1] != prev && prevLine == i-1 {
			v.add(SeverityWarning, i+1, fmt.Sprintf("list marker %q differs from %q", m[1], prev), lines[i])
		}
		prev, prevLine = m[1], i
	}
}

// HeadingInfo is one heading in document order.
type HeadingInfo struct {
	Level int
	Text  string
	Line  int
}

// Outline parses markdown as GitHub-flavored Markdown and returns its
// headings. A leading YAML frontmatter block is skipped.
func Outline(markdown string) []HeadingInfo {
	body, offset := stripFrontmatter(markdown)
	src := []byte(body)
	doc := goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser().Parse(text.NewReader(src))

	var out []HeadingInfo
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		info := HeadingInfo{Level: h.Level}
		if lines := h.Lines(); lines.Len() > 0 {
			seg := lines.At(0)
			info.Text = strings.TrimSpace(string(seg.Value(src)))
			info.Line = offset + bytes.Count(src[:seg.Start], []byte("\n")) + 1
		}
		out = append(out, info)
		return ast.WalkSkipChildren, nil
	})
	return out
}

// stripFrontmatter removes a leading "---" block and returns the body with
// the number of lines removed.
func stripFrontmatter(md string) (string, int) {
	if !strings.HasPrefix(md, "---\n") {
		return md, 0
	}
	end := strings.Index(md[4:], "\n---")
	if end < 0 {
		return md, 0
	}
	rest := md[4+end+4:]
	removed := strings.Count(md[:4+end+4], "\n")
	if strings.HasPrefix(rest, "\n") {
		rest = rest[1:]
		removed++
	}
	return rest, removed
}
