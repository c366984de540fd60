// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markdown

import "strings"

// Context selects which characters are escaped.
type Context int

const (
	// Normal is paragraph and list item text.
	Normal Context = iota
	// Table is a pipe-table cell.
	Table
	// Link is link text and image alt text.
	Link
	// Heading is heading text after the # prefix.
	Heading
)

// normalSpecials are escaped in Normal context.
const normalSpecials = "`*_{}[]()#+-!|<>"

// Escape escapes text for ctx.
func Escape(text string, ctx Context) string {
	if text == "" {
		return text
	}
	switch ctx {
	case Table:
		text = strings.ReplaceAll(text, `\`, `\\`)
		text = strings.ReplaceAll(text, "|", `\|`)
		text = strings.ReplaceAll(text, "\r\n", "\n")
		return strings.ReplaceAll(text, "\n", "<br>")
	case Link:
		text = strings.ReplaceAll(text, `\`, `\\`)
		text = strings.ReplaceAll(text, "[", `\[`)
		return strings.ReplaceAll(text, "]", `\]`)
	case Heading:
		text = strings.ReplaceAll(text, `\`, `\\`)
		if strings.HasPrefix(text, "#") {
			text = `\` + text
		}
		return text
	default:
		return escapeNormal(text)
	}
}

// escapeNormal backslash-escapes Markdown punctuation. A backslash that
// already escapes a special character or another backslash is kept as is,
// so escaping is idempotent.
func escapeNormal(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/8)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\\' {
			if i+1 < len(text) && (text[i+1] == '\\' || strings.IndexByte(normalSpecials, text[i+1]) >= 0) {
				b.WriteByte(c)
				b.WriteByte(text[i+1])
				i++
				continue
			}
			b.WriteString(`\\`)
			continue
		}
		if strings.IndexByte(normalSpecials, c) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

var urlReplacer = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29")

// EscapeURL percent-encodes space and parentheses only.
func EscapeURL(url string) string {
	return urlReplacer.Replace(url)
}
