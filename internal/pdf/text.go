// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/doc2md/pkg/types"
)

// maxHeadingLen bounds heading candidates, in characters.
const maxHeadingLen = 80

const (
	// sentenceEnd closes a sentence when cleaning wrapped lines.
	sentenceEnd = ".!?。！？"
	// clauseEnd disqualifies a line as a heading during cleaning.
	clauseEnd = ".!?。！？,;:、；："
	// headingPunct disqualifies a line as a heading during structure
	// detection.
	headingPunct = ".!?,;:"
)

var (
	numberedRe = regexp.MustCompile(`^\d+[.)]\s`)
	bulletRe   = regexp.MustCompile(`^[•\-*+]\s`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// isUpper reports whether s has at least one cased letter and no lower-case
// ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

func endsWith(s, set string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r != utf8.RuneError && strings.ContainsRune(set, r)
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// IsHeading classifies a trimmed line: it is a heading when it is upper-case
// and under 80 characters, or when it is under 80 characters, does not end
// in sentence punctuation and the next line is blank or starts upper-case.
// hasNext is false for the last line on the page.
func IsHeading(line, next string, hasNext bool) bool {
	n := utf8.RuneCountInString(line)
	if n == 0 || n >= maxHeadingLen {
		return false
	}
	if isUpper(line) {
		return true
	}
	if endsWith(line, headingPunct) || !hasNext {
		return false
	}
	next = strings.TrimSpace(next)
	return next == "" || startsUpper(next)
}

// breaksParagraph reports whether a line should start a new paragraph even
// when it is not a heading.
func breaksParagraph(line string) bool {
	n := utf8.RuneCountInString(line)
	if n >= maxHeadingLen {
		return false
	}
	return isUpper(line) || !endsWith(line, headingPunct)
}

// detectStructure turns cleaned page text into blocks: headings become bold
// paragraphs and other lines accumulate into paragraphs joined by spaces.
func detectStructure(text string) []types.Block {
	lines := strings.Split(text, "\n")
	var blocks []types.Block
	var buf []string
	flush := func() {
		if len(buf) > 0 {
			blocks = append(blocks, &types.Paragraph{Text: strings.Join(buf, " ")})
			buf = nil
		}
	}
	for i, raw := range lines {
		s := strings.TrimSpace(raw)
		if s == "" {
			flush()
			continue
		}
		next, hasNext := "", i+1 < len(lines)
		if hasNext {
			next = lines[i+1]
		}
		if IsHeading(s, next, hasNext) {
			flush()
			blocks = append(blocks, &types.Paragraph{Text: s, Formatting: types.TextBold})
			continue
		}
		if breaksParagraph(s) {
			flush()
		}
		buf = append(buf, s)
	}
	flush()
	return blocks
}

// CleanText repairs extraction artifacts: orphan fragments, lines broken
// mid-sentence, runs of blank lines and trailing spaces.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	lines = removeOrphans(lines)
	lines = joinBrokenLines(lines)
	out := blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	lines = strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// removeOrphans drops one- or two-character lines surrounded by blank
// lines, except numbers such as page numbers or list counters.
func removeOrphans(lines []string) []string {
	blank := func(i int) bool {
		return i < 0 || i >= len(lines) || strings.TrimSpace(lines[i]) == ""
	}
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		s := strings.TrimSpace(l)
		n := utf8.RuneCountInString(s)
		if n >= 1 && n <= 2 && !isDigits(s) && blank(i-1) && blank(i+1) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// likelyHeading is the looser test used while rejoining wrapped lines.
func likelyHeading(s string) bool {
	if utf8.RuneCountInString(s) > maxHeadingLen {
		return false
	}
	if numberedRe.MatchString(s) {
		return true
	}
	if isUpper(s) && utf8.RuneCountInString(s) > 3 {
		return true
	}
	return !endsWith(s, clauseEnd)
}

func joinBrokenLines(lines []string) []string {
	var out, buf []string
	flush := func() {
		if len(buf) > 0 {
			out = append(out, strings.Join(buf, " "))
			buf = nil
		}
	}
	for _, l := range lines {
		s := strings.TrimSpace(l)
		switch {
		case s == "":
			flush()
			out = append(out, "")
		case likelyHeading(s):
			flush()
			out = append(out, s)
		case endsWith(s, sentenceEnd):
			buf = append(buf, s)
			flush()
		case bulletRe.MatchString(s):
			flush()
			out = append(out, s)
		default:
			buf = append(buf, s)
		}
	}
	flush()
	return out
}

// splitBlocks is the fallback structure pass: blank-line separated blocks,
// where short blocks that are upper-case or lack final punctuation become
// bold paragraphs.
func splitBlocks(text string) []types.Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var blocks []types.Block
	for _, part := range strings.Split(text, "\n\n") {
		s := strings.Join(strings.Fields(part), " ")
		if s == "" {
			continue
		}
		if utf8.RuneCountInString(s) < maxHeadingLen && (isUpper(s) || !endsWith(s, headingPunct)) {
			blocks = append(blocks, &types.Paragraph{Text: s, Formatting: types.TextBold})
			continue
		}
		blocks = append(blocks, &types.Paragraph{Text: s})
	}
	return blocks
}
