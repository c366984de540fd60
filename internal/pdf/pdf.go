// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdf extracts PDF files into the document model, one section per
// page. A content-stream backend built on pdfcpu recovers text, tables,
// embedded images and vector drawings; when it fails for a document the
// whole document is re-read with a plain-text backend.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pdiddy/doc2md/internal/textnorm"
	"github.com/pdiddy/doc2md/pkg/types"
)

// Default page size in points when the page tree gives none.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

type backend func(ctx context.Context, path string) (*types.ExtractResult, error)

// Extractor converts .pdf files.
type Extractor struct {
	logger   *slog.Logger
	norm     *textnorm.Normalizer
	primary  backend
	fallback backend
}

// New returns an Extractor logging to logger (slog.Default when nil).
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{logger: logger, norm: textnorm.New(logger)}
	e.primary = e.extractContent
	e.fallback = e.extractPlain
	return e
}

// Extract reads the PDF at path. Only a file that neither backend can open
// is an error.
func (e *Extractor) Extract(ctx context.Context, path string) (*types.ExtractResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrContainer, path, err)
	}
	res, err := e.primary(ctx, path)
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	e.logger.Warn("content backend failed, retrying with plain text", "path", path, "error", err)

	res, ferr := e.fallback(ctx, path)
	if ferr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v (plain text: %v)", types.ErrContainer, path, err, ferr)
	}
	return res, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (e *Extractor) metadata(path, title, author, created, modified string) types.DocumentMetadata {
	md := types.DocumentMetadata{
		Title:        e.norm.Text(path, strings.TrimSpace(title)),
		Author:       e.norm.Text(path, strings.TrimSpace(author)),
		Created:      e.norm.Text(path, strings.TrimSpace(created)),
		Modified:     e.norm.Text(path, strings.TrimSpace(modified)),
		SourceFormat: string(types.FormatPDF),
	}
	if md.Title == "" {
		md.Title = stem(path)
	}
	return md
}

func pageSection(n int) *types.Section {
	h, _ := types.NewHeading(2, fmt.Sprintf("Page %d", n))
	return &types.Section{Heading: h}
}

// errUndecodable marks page text that came out as control bytes, which
// happens when a font's character codes cannot be mapped to text.
var errUndecodable = errors.New("undecodable page text")

// extractContent is the primary backend.
func (e *Extractor) extractContent(ctx context.Context, path string) (res *types.ExtractResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu: %v", r)
		}
	}()

	pc, err := readContext(path)
	if err != nil {
		return nil, err
	}
	dims, err := pc.PageDims()
	if err != nil {
		e.logger.Warn("reading page sizes", "path", path, "error", err)
	}

	fr, err := openFonts(path)
	if err != nil {
		e.logger.Warn("reading fonts, using single-byte text", "path", path, "error", err)
	} else {
		defer fr.Close()
	}

	x := pc.XRefTable
	doc := &types.InternalDocument{Metadata: e.metadata(path, x.Title, x.Author, x.CreationDate, x.ModDate)}
	var pending []types.PendingImage

	for pageNr := 1; pageNr <= pc.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sec := pageSection(pageNr)
		content := e.pageContent(pc, path, pageNr, fr.page(pageNr))
		if undecodable(content) {
			return nil, fmt.Errorf("page %d: %w", pageNr, errUndecodable)
		}

		tables, text := layoutPage(groupLines(content.runs))
		for _, t := range tables {
			sec.Content = append(sec.Content, e.table(path, t))
		}
		sec.Content = append(sec.Content, detectStructure(e.norm.Text(path, CleanText(text)))...)

		for _, img := range e.pageVisuals(pc, path, pageNr, dims, content) {
			doc.AddImage(sec, img.Ref)
			pending = append(pending, img)
		}

		if len(sec.Content) > 0 {
			doc.Sections = append(doc.Sections, sec)
		}
	}
	return &types.ExtractResult{Document: doc, Images: pending}, nil
}

func readContext(path string) (pc *model.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			pc, err = nil, fmt.Errorf("pdfcpu: %v", r)
		}
	}()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pc, err = api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return pc, nil
}

// undecodable reports whether the text shown on a page is binary or mostly
// unmapped character codes.
func undecodable(content *pageContent) bool {
	var b strings.Builder
	for _, r := range content.runs {
		b.WriteString(r.text)
	}
	text := b.String()
	for _, issue := range textnorm.Validate(text) {
		if issue.Kind == "control" || issue.Kind == "null" {
			return true
		}
	}
	n := utf8.RuneCountInString(text)
	return n > 0 && strings.Count(text, "\uFFFD")*2 > n
}

// pageVisuals returns the embedded images of a page followed by its
// rendering when the page is mostly vector drawing.
func (e *Extractor) pageVisuals(pc *model.Context, path string, pageNr int, dims []pdftypes.Dim, content *pageContent) []types.PendingImage {
	out := e.pageImages(pc, path, pageNr)
	if !ShouldRasterize(len(content.drawings), content.textLen()) {
		return out
	}
	w, h := float64(defaultPageWidth), float64(defaultPageHeight)
	if pageNr-1 < len(dims) && dims[pageNr-1].Width > 0 {
		w, h = dims[pageNr-1].Width, dims[pageNr-1].Height
	}
	data, err := rasterize(content.drawings, w, h, RasterScale)
	if err != nil {
		e.logger.Warn("rasterizing vector page", "path", path, "page", pageNr, "error", err)
		return out
	}
	return append(out, types.PendingImage{
		Ref: &types.ImageReference{
			SourcePath: fmt.Sprintf("page_%d_vector_graphic.png", pageNr),
			AltText:    fmt.Sprintf("Vector graphic from page %d", pageNr),
			MIMEType:   "image/png",
			PageNumber: pageNr,
		},
		Data: data,
	})
}

func (e *Extractor) pageContent(pc *model.Context, path string, pageNr int, fonts map[string]textDecoder) *pageContent {
	r, err := pdfcpu.ExtractPageContent(pc, pageNr)
	if err != nil {
		e.logger.Warn("reading page content", "path", path, "page", pageNr, "error", err)
		return &pageContent{}
	}
	if r == nil {
		return &pageContent{}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		e.logger.Warn("reading page content", "path", path, "page", pageNr, "error", err)
		return &pageContent{}
	}
	return interpret(parseContent(data), fonts)
}

func (e *Extractor) table(path string, t rawTable) *types.Table {
	norm := func(row []string) []string {
		out := make([]string, len(row))
		for i, c := range row {
			out[i] = e.norm.Text(path, c)
		}
		return out
	}
	tbl := &types.Table{Headers: norm(t[0])}
	for _, row := range t[1:] {
		tbl.Rows = append(tbl.Rows, norm(row))
	}
	return tbl
}

// pageImages pulls the embedded raster images of one page, in object order.
func (e *Extractor) pageImages(pc *model.Context, path string, pageNr int) []types.PendingImage {
	imgs, err := pdfcpu.ExtractPageImages(pc, pageNr, false)
	if err != nil {
		e.logger.Warn("extracting page images", "path", path, "page", pageNr, "error", err)
		return nil
	}
	keys := make([]int, 0, len(imgs))
	for k := range imgs {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var out []types.PendingImage
	for _, k := range keys {
		img := imgs[k]
		if img.Reader == nil {
			continue
		}
		data, err := io.ReadAll(img)
		if err != nil || len(data) == 0 {
			e.logger.Warn("reading page image", "path", path, "page", pageNr, "object", k, "error", err)
			continue
		}
		i := len(out) + 1
		ext, mime := imageType(data)
		out = append(out, types.PendingImage{
			Ref: &types.ImageReference{
				SourcePath: fmt.Sprintf("page_%d_image_%d.%s", pageNr, i, ext),
				AltText:    fmt.Sprintf("Image %d from page %d", i, pageNr),
				MIMEType:   mime,
				PageNumber: pageNr,
			},
			Data: data,
		})
	}
	return out
}

// imageType sniffs the native format of image bytes.
func imageType(data []byte) (ext, mime string) {
	switch {
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "tiff", "image/tiff"
	case bytes.HasPrefix(data, []byte("\x00\x00\x00\x0cjP  ")), bytes.HasPrefix(data, []byte("\xff\x4f\xff\x51")):
		return "jp2", "image/jp2"
	}
	mime = http.DetectContentType(data)
	if sub, ok := strings.CutPrefix(mime, "image/"); ok {
		return sub, mime
	}
	return "bin", "application/octet-stream"
}

// extractPlain is the fallback backend: page text with the simpler block
// heuristic and no tables. Images are still taken from pages pdfcpu can
// read.
func (e *Extractor) extractPlain(ctx context.Context, path string) (res *types.ExtractResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plain text reader: %v", r)
		}
	}()

	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := r.Trailer().Key("Info")
	doc := &types.InternalDocument{Metadata: e.metadata(path,
		info.Key("Title").Text(),
		info.Key("Author").Text(),
		info.Key("CreationDate").Text(),
		info.Key("ModDate").Text(),
	)}
	visuals := e.plainVisuals(path)
	var pending []types.PendingImage

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		sec := pageSection(i)
		fonts := map[string]*lpdf.Font{}
		for _, name := range p.Fonts() {
			font := p.Font(name)
			fonts[name] = &font
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			e.logger.Warn("reading page text", "path", path, "page", i, "error", err)
		} else {
			sec.Content = splitBlocks(e.norm.Text(path, text))
		}
		for _, img := range visuals(i) {
			doc.AddImage(sec, img.Ref)
			pending = append(pending, img)
		}
		if len(sec.Content) > 0 {
			doc.Sections = append(doc.Sections, sec)
		}
	}
	return &types.ExtractResult{Document: doc, Images: pending}, nil
}

// plainVisuals returns a per-page image source for the fallback backend.
// When pdfcpu cannot read the file at all it yields no images.
func (e *Extractor) plainVisuals(path string) func(pageNr int) []types.PendingImage {
	none := func(int) []types.PendingImage { return nil }
	pc, err := readContext(path)
	if err != nil {
		e.logger.Warn("no images in plain text fallback", "path", path, "error", err)
		return none
	}
	dims, err := pc.PageDims()
	if err != nil {
		e.logger.Warn("reading page sizes", "path", path, "error", err)
	}
	return func(pageNr int) (out []types.PendingImage) {
		if pageNr > pc.PageCount {
			return nil
		}
		defer func() {
			if r := recover(); r != nil {
				e.logger.Warn("extracting page images", "path", path, "page", pageNr, "error", r)
				out = nil
			}
		}()
		return e.pageVisuals(pc, path, pageNr, dims, e.pageContent(pc, path, pageNr, nil))
	}
}
