// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markdown turns an InternalDocument into Markdown text with
// context-dependent escaping.
package markdown

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/pdiddy/doc2md/pkg/types"
)

// Serializer renders documents. The zero value emits compact pipe tables,
// no frontmatter and no heading offset.
type Serializer struct {
	HeadingOffset   int
	IncludeMetadata bool
	TableStyle      types.TableStyle
}

// NewSerializer builds a Serializer from output settings.
func NewSerializer(cfg types.OutputConfig) *Serializer {
	return &Serializer{
		HeadingOffset:   cfg.HeadingOffset,
		IncludeMetadata: cfg.IncludeMetadata,
		TableStyle:      cfg.TableStyle,
	}
}

// Serialize renders doc. It never fails; a nil or empty document yields "".
func (s *Serializer) Serialize(doc *types.InternalDocument) string {
	if doc == nil {
		return ""
	}
	var parts []string
	if s.IncludeMetadata {
		if fm := frontmatter(doc.Metadata); fm != "" {
			parts = append(parts, fm)
		}
	}
	for _, sec := range doc.Sections {
		if out := s.section(sec); out != "" {
			parts = append(parts, out)
		}
	}
	return strings.TrimRight(strings.Join(parts, "\n\n"), "\n")
}

func (s *Serializer) section(sec *types.Section) string {
	if sec == nil {
		return ""
	}
	var parts []string
	if sec.Heading != nil {
		parts = append(parts, s.Heading(sec.Heading))
	}
	for _, b := range sec.Content {
		if out := s.Block(b); out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Block renders one content block.
func (s *Serializer) Block(b types.Block) string {
	switch v := b.(type) {
	case *types.Paragraph:
		return Paragraph(v)
	case *types.Table:
		return s.Table(v)
	case *types.DocumentList:
		return List(v)
	case *types.ImageReference:
		return Image(v)
	case *types.Link:
		return LinkBlock(v)
	case *types.CodeBlock:
		return Code(v)
	default:
		return ""
	}
}

// HeadingLevel clamps level+offset to [1,6].
func HeadingLevel(level, offset int) int {
	return max(1, min(6, level+offset))
}

// Heading renders h with the serializer's offset.
func (s *Serializer) Heading(h *types.Heading) string {
	level := HeadingLevel(h.Level, s.HeadingOffset)
	return strings.Repeat("#", level) + " " + Escape(h.Text, Heading)
}

// Paragraph renders p, escaping unless it is code.
func Paragraph(p *types.Paragraph) string {
	if p.Formatting == types.TextCode {
		return "`" + p.Text + "`"
	}
	text := Escape(p.Text, Normal)
	switch p.Formatting {
	case types.TextBold:
		return "**" + text + "**"
	case types.TextItalic:
		return "*" + text + "*"
	case types.TextBoldItalic:
		return "***" + text + "***"
	default:
		return text
	}
}

// Table renders t as a pipe table. Every row is padded or truncated to the
// header count. A table without headers gets synthetic "Column N" headers
// sized to its widest row.
func (s *Serializer) Table(t *types.Table) string {
	if len(t.Headers) == 0 && len(t.Rows) == 0 {
		return ""
	}
	headers := t.Headers
	if len(headers) == 0 {
		width := 0
		for _, r := range t.Rows {
			width = max(width, len(r))
		}
		if width == 0 {
			return ""
		}
		headers = make([]string, width)
		for i := range headers {
			headers[i] = fmt.Sprintf("Column %d", i+1)
		}
	}

	grid := make([][]string, 0, len(t.Rows)+1)
	grid = append(grid, escapeRow(headers, len(headers)))
	for _, r := range t.Rows {
		grid = append(grid, escapeRow(r, len(headers)))
	}

	widths := make([]int, len(headers))
	if s.TableStyle == types.TableGrid {
		for _, row := range grid {
			for i, cell := range row {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}
	for i := range widths {
		widths[i] = max(widths[i], 3)
	}

	var b strings.Builder
	writeRow(&b, grid[0], widths, s.TableStyle == types.TableGrid)
	b.WriteByte('\n')
	sep := make([]string, len(headers))
	for i := range sep {
		if s.TableStyle == types.TableGrid {
			sep[i] = strings.Repeat("-", widths[i])
		} else {
			sep[i] = "---"
		}
	}
	writeRow(&b, sep, widths, false)
	for _, row := range grid[1:] {
		b.WriteByte('\n')
		writeRow(&b, row, widths, s.TableStyle == types.TableGrid)
	}
	return b.String()
}

func escapeRow(row []string, n int) []string {
	out := make([]string, n)
	for i := 0; i < n && i < len(row); i++ {
		out[i] = Escape(row[i], Table)
	}
	return out
}

func writeRow(b *strings.Builder, cells []string, widths []int, pad bool) {
	b.WriteString("|")
	for i, c := range cells {
		b.WriteByte(' ')
		b.WriteString(c)
		if pad {
			b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(c)))
		}
		b.WriteString(" |")
	}
}

// List renders l with two spaces of indent per level. Ordered items are
// numbered by their 1-based position in the list.
func List(l *types.DocumentList) string {
	lines := make([]string, 0, len(l.Items))
	for i, item := range l.Items {
		indent := strings.Repeat("  ", max(item.Level, 0))
		marker := "-"
		if l.Ordered {
			marker = fmt.Sprintf("%d.", i+1)
		}
		lines = append(lines, indent+marker+" "+Escape(item.Text, Normal))
	}
	return strings.Join(lines, "\n")
}

// Image renders img by the priority base64 data, extracted path, source
// path, then a failure placeholder. OCR text follows every case but the
// placeholder.
func Image(img *types.ImageReference) string {
	var out string
	switch img.Source() {
	case types.ImageBase64:
		mime := img.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		out = "![" + Escape(img.AltText, Link) + "](data:" + mime + ";base64," + img.Base64Data + ")"
	case types.ImageExtracted:
		out = "![" + Escape(img.AltText, Link) + "](" + EscapeURL(img.ExtractedPath) + ")"
	case types.ImageSourcePath:
		out = "![" + Escape(img.AltText, Link) + "](" + EscapeURL(img.SourcePath) + ")"
	default:
		alt := img.AltText
		if alt == "" {
			alt = "Image"
		}
		return "<!-- Image extraction failed: " + alt + " -->"
	}
	if img.OCRText != "" {
		out += "\n\n*OCR extracted text: " + Escape(img.OCRText, Normal) + "*"
	}
	return out
}

// LinkBlock renders a standalone link.
func LinkBlock(l *types.Link) string {
	return "[" + Escape(l.Text, Link) + "](" + EscapeURL(l.URL) + ")"
}

// Code renders a fenced code block.
func Code(c *types.CodeBlock) string {
	return "```" + c.Language + "\n" + c.Code + "\n```"
}

// frontmatter renders the non-empty metadata fields as a YAML block.
func frontmatter(m types.DocumentMetadata) string {
	if m.IsEmpty() {
		return ""
	}
	fields := []struct{ key, value string }{
		{"title", m.Title},
		{"author", m.Author},
		{"created", m.Created},
		{"modified", m.Modified},
		{"source_format", m.SourceFormat},
	}
	var b strings.Builder
	b.WriteString("---\n")
	for _, f := range fields {
		v := strings.TrimSpace(lineBreaks.Replace(f.value))
		if v == "" {
			continue
		}
		b.WriteString(f.key + ": " + v + "\n")
	}
	b.WriteString("---")
	return b.String()
}

// lineBreaks keeps each frontmatter value on its key's line.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
