// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package word extracts Word (.docx) documents into the document model.
// It reads the OOXML package directly: document body, styles,
// relationships, content types and core properties.
package word

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pdiddy/doc2md/internal/textnorm"
	"github.com/pdiddy/doc2md/pkg/types"
)

// Extractor converts .docx files.
type Extractor struct {
	logger *slog.Logger
	norm   *textnorm.Normalizer
}

// New returns an Extractor logging to logger (slog.Default when nil).
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger, norm: textnorm.New(logger)}
}

// Extract reads the document at path. Only an unreadable container is an
// error; malformed content is logged and skipped.
func (e *Extractor) Extract(ctx context.Context, path string) (*types.ExtractResult, error) {
	p, err := openPackage(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrContainer, path, err)
	}
	defer p.Close()

	rc, err := p.open(partDocument)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrContainer, path, err)
	}
	b, err := parseBody(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrContainer, path, err)
	}

	var styles stylesPart
	if err := p.decodePart(partStyles, &styles); err != nil {
		e.logger.Warn("ignoring styles", "path", path, "error", err)
	}
	var rels relationships
	if err := p.decodePart(partDocumentRels, &rels); err != nil {
		e.logger.Warn("ignoring relationships", "path", path, "error", err)
	}
	var ct contentTypes
	if err := p.decodePart(partContentTypes, &ct); err != nil {
		e.logger.Warn("ignoring content types", "path", path, "error", err)
	}
	var core coreProps
	if err := p.decodePart(partCoreProps, &core); err != nil {
		e.logger.Warn("ignoring core properties", "path", path, "error", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := &assembler{
		e:      e,
		path:   path,
		styles: styles.names(),
		links:  hyperlinkTargets(rels),
		doc: &types.InternalDocument{
			Metadata: types.DocumentMetadata{
				Title:        e.norm.Text("docx metadata", strings.TrimSpace(core.Title)),
				Author:       e.norm.Text("docx metadata", strings.TrimSpace(core.Creator)),
				Created:      e.norm.Text("docx metadata", strings.TrimSpace(core.Created)),
				Modified:     e.norm.Text("docx metadata", strings.TrimSpace(core.Modified)),
				SourceFormat: string(types.FormatDocx),
			},
		},
		current: &types.Section{},
	}
	for _, para := range b.paragraphs {
		a.paragraph(para)
	}
	for _, t := range b.tables {
		if tbl := a.table(t); tbl != nil {
			a.current.Content = append(a.current.Content, tbl)
		}
	}
	pending := a.images(p, rels, ct)
	a.closeSection()

	return &types.ExtractResult{Document: a.doc, Images: pending}, nil
}

func hyperlinkTargets(rels relationships) map[string]string {
	m := make(map[string]string)
	for _, r := range rels.Rels {
		if r.Type == relTypeHyperlink {
			m[r.ID] = r.Target
		}
	}
	return m
}

// assembler builds sections from body paragraphs in document order.
type assembler struct {
	e       *Extractor
	path    string
	styles  styleNames
	links   map[string]string
	doc     *types.InternalDocument
	current *types.Section
}

func (a *assembler) closeSection() {
	if !a.current.IsEmpty() {
		a.doc.Sections = append(a.doc.Sections, a.current)
	}
}

func (a *assembler) text(s string) string {
	return a.e.norm.Text(a.path, s)
}

func (a *assembler) paragraph(p *paragraph) {
	full := p.full.String()
	if strings.TrimSpace(full) == "" {
		return
	}
	style := a.styles.name(p.styleID)

	if level, ok := headingLevel(style); ok {
		h, err := types.NewHeading(level, a.text(strings.TrimSpace(full)))
		if err == nil {
			a.closeSection()
			a.current = &types.Section{Heading: h}
			return
		}
		a.e.logger.Warn("heading level out of range, keeping as paragraph", "path", a.path, "style", style)
	}

	if isListStyle(style) || p.numbered {
		item := types.ListItem{Text: a.text(strings.TrimSpace(full)), Level: p.level}
		ordered := isOrderedStyle(style)
		if n := len(a.current.Content); n > 0 {
			if last, ok := a.current.Content[n-1].(*types.DocumentList); ok && last.Ordered == ordered {
				last.Items = append(last.Items, item)
				return
			}
		}
		a.current.Content = append(a.current.Content, &types.DocumentList{Ordered: ordered, Items: []types.ListItem{item}})
		return
	}

	for _, l := range p.links {
		target, ok := a.links[l.relID]
		text := strings.TrimSpace(l.text)
		if !ok || target == "" || text == "" {
			continue
		}
		a.current.Content = append(a.current.Content, &types.Link{Text: a.text(text), URL: target})
	}

	plain := strings.TrimSpace(p.plainText())
	if plain == "" {
		return
	}
	a.current.Content = append(a.current.Content, &types.Paragraph{
		Text:       a.text(plain),
		Formatting: runFormatting(p.formatting()),
	})
}

func runFormatting(bold, italic bool) types.TextFormatting {
	switch {
	case bold && italic:
		return types.TextBoldItalic
	case bold:
		return types.TextBold
	case italic:
		return types.TextItalic
	default:
		return types.TextNormal
	}
}

// headingLevel parses "Heading N" style names. A bare "Heading" and
// "Title" are level 1. The returned level may be out of range; callers
// validate it.
func headingLevel(style string) (int, bool) {
	if style == "Title" {
		return 1, true
	}
	if !strings.HasPrefix(style, "Heading") {
		return 0, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(style, "Heading"))
	if rest == "" {
		return 1, true
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isListStyle(style string) bool {
	return strings.Contains(style, "List")
}

func isOrderedStyle(style string) bool {
	return strings.Contains(style, "List Number") || strings.Contains(style, "Ordered")
}

// table uses row 0 as headers. A table with a header row and no data rows
// is reinterpreted as one data row under Column N headers.
func (a *assembler) table(t *rawTable) *types.Table {
	if len(t.rows) == 0 {
		return nil
	}
	clean := func(row []string) []string {
		out := make([]string, len(row))
		for i, c := range row {
			out[i] = a.text(strings.TrimSpace(c))
		}
		return out
	}
	headers := clean(t.rows[0])
	rows := make([][]string, 0, len(t.rows)-1)
	for _, r := range t.rows[1:] {
		rows = append(rows, clean(r))
	}
	if len(rows) == 0 && len(headers) > 0 {
		rows = [][]string{headers}
		headers = make([]string, len(rows[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("Column %d", i+1)
		}
	}
	return &types.Table{Headers: headers, Rows: rows}
}

// images reads every image relationship in relationship order, embeds the
// bytes as base64 and appends the references to the current section.
func (a *assembler) images(p *pkg, rels relationships, ct contentTypes) []types.PendingImage {
	var pending []types.PendingImage
	n := 1
	for _, r := range rels.Rels {
		if r.external() || !strings.Contains(r.Target, "image") {
			continue
		}
		part := r.partName()
		data, err := p.read(part)
		if err != nil {
			a.e.logger.Warn("skipping image", "path", a.path, "target", r.Target, "error", err)
			continue
		}
		mime := ct.mimeType(part)
		if mime == "" {
			mime = "image/png"
		}
		img := &types.ImageReference{
			SourcePath: r.Target,
			AltText:    fmt.Sprintf("Image %d", n),
			Base64Data: base64.StdEncoding.EncodeToString(data),
			MIMEType:   mime,
		}
		a.doc.AddImage(a.current, img)
		pending = append(pending, types.PendingImage{Ref: img, Data: data})
		n++
	}
	return pending
}
