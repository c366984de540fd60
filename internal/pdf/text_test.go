// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/doc2md/pkg/types"
)

func TestIsHeading(t *testing.T) {
	long := strings.Repeat("a", 80)
	tests := []struct {
		name    string
		line    string
		next    string
		hasNext bool
		want    bool
	}{
		{"upper case", "EXECUTIVE SUMMARY", "the text", true, true},
		{"upper case last line", "APPENDIX", "", false, true},
		{"upper case with final period", "NOTE.", "x", true, true},
		{"title before capital", "Background", "The project began", true, true},
		{"title before blank", "Background", "  ", true, true},
		{"title before lower case", "Background", "the project began", true, false},
		{"title on last line", "Background", "", false, false},
		{"ends with period", "This is a sentence.", "Next", true, false},
		{"ends with colon", "Items:", "Next", true, false},
		{"ends with comma", "First,", "Next", true, false},
		{"ends with question", "Why?", "Next", true, false},
		{"eighty chars", long, "", true, false},
		{"upper eighty chars", strings.ToUpper(long), "", true, false},
		{"empty", "", "Next", true, false},
		{"digits only", "2024", "Next", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHeading(tt.line, tt.next, tt.hasNext))
		})
	}
}

func TestDetectStructure(t *testing.T) {
	text := "INTRODUCTION\nThis report covers the first quarter.\nRevenue grew in every region.\n\nOutlook\nWe expect growth."
	got := detectStructure(text)
	assert.Equal(t, []types.Block{
		&types.Paragraph{Text: "INTRODUCTION", Formatting: types.TextBold},
		&types.Paragraph{Text: "This report covers the first quarter. Revenue grew in every region."},
		&types.Paragraph{Text: "Outlook", Formatting: types.TextBold},
		&types.Paragraph{Text: "We expect growth."},
	}, got)
}

func TestDetectStructureBreaksOnUnpunctuatedLine(t *testing.T) {
	got := detectStructure("Sales rose sharply.\nthe quick brown fox\njumps over the dog.")
	assert.Equal(t, []types.Block{
		&types.Paragraph{Text: "Sales rose sharply."},
		&types.Paragraph{Text: "the quick brown fox jumps over the dog."},
	}, got)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "orphan fragment removed",
			in:   "First line.\n\nab\n\nSecond line.",
			want: "First line.\n\nSecond line.",
		},
		{
			name: "page number kept",
			in:   "First line.\n\n12\n\nSecond line.",
			want: "First line.\n\n12\n\nSecond line.",
		},
		{
			name: "blank runs collapsed",
			in:   "One.\n\n\n\n\nTwo.",
			want: "One.\n\nTwo.",
		},
		{
			name: "trailing spaces trimmed",
			in:   "One.   \nTwo.\t",
			want: "One.\nTwo.",
		},
		{
			name: "long wrapped line joined",
			in:   strings.Repeat("word ", 20) + "\ncontinues here.",
			want: strings.TrimSpace(strings.Repeat("word ", 20)) + " continues here.",
		},
		{
			name: "crlf normalized",
			in:   "One.\r\nTwo.",
			want: "One.\nTwo.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestSplitBlocks(t *testing.T) {
	got := splitBlocks("OVERVIEW\n\nThis is body text\nthat wraps.\n\n\n\nShort title")
	assert.Equal(t, []types.Block{
		&types.Paragraph{Text: "OVERVIEW", Formatting: types.TextBold},
		&types.Paragraph{Text: "This is body text that wraps."},
		&types.Paragraph{Text: "Short title", Formatting: types.TextBold},
	}, got)
}

func TestShouldRasterize(t *testing.T) {
	tests := []struct {
		name     string
		drawings int
		textLen  int
		want     bool
	}{
		{"mostly drawing", 50, 10, true},
		{"at primitive threshold", 10, 0, false},
		{"just over threshold", 11, 0, true},
		{"ratio at limit", 20, 100, false},
		{"ratio under limit", 20, 99, true},
		{"text heavy", 50, 5000, false},
		{"no drawings", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRasterize(tt.drawings, tt.textLen))
		})
	}
}
