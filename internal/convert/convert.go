// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert routes source documents to their extractor and runs the
// conversion pipeline: extract, store images, serialize, format, validate
// and write {output_dir}/{stem}.md.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/doc2md/internal/excel"
	"github.com/pdiddy/doc2md/internal/images"
	"github.com/pdiddy/doc2md/internal/ledger"
	"github.com/pdiddy/doc2md/internal/markdown"
	"github.com/pdiddy/doc2md/internal/ocr"
	"github.com/pdiddy/doc2md/internal/pdf"
	"github.com/pdiddy/doc2md/internal/pretty"
	"github.com/pdiddy/doc2md/internal/validate"
	"github.com/pdiddy/doc2md/internal/word"
	"github.com/pdiddy/doc2md/pkg/types"
)

// Extractor turns one source file into the document model. The word, excel
// and pdf packages implement it.
type Extractor interface {
	Extract(ctx context.Context, path string) (*types.ExtractResult, error)
}

// Stats counts what a conversion produced.
type Stats struct {
	Sections      int
	Headings      int
	Tables        int
	Images        int
	ImagesWritten int
}

// Result is the outcome of converting one file.
type Result struct {
	Source string
	Format types.Format

	// OutputPath is empty in dry-run and preview mode.
	OutputPath string

	// Markdown is the full output, or the first preview_lines lines in
	// preview mode with Omitted counting the lines left out.
	Markdown string
	Omitted  int

	Stats      Stats
	ImageFiles []string
	Issues     []validate.Issue
}

// Pipeline converts files according to Config. Ledger and OCR are optional.
type Pipeline struct {
	Config     types.ConversionConfig
	Extractors map[types.Format]Extractor
	OCR        ocr.Engine
	Ledger     *ledger.Ledger
	Logger     *slog.Logger
}

// New returns a pipeline using the Word, Excel and PDF extractors.
func New(cfg types.ConversionConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Config: cfg,
		Extractors: map[types.Format]Extractor{
			types.FormatDocx: word.New(logger),
			types.FormatXlsx: excel.New(logger),
			types.FormatPDF:  pdf.New(logger),
		},
		Logger: logger,
	}
}

// Stem returns the file name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ConvertFile converts one file. Only file validation and container errors
// are returned; image, formatting and validation problems are logged.
func (p *Pipeline) ConvertFile(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format, err := ValidateFile(path, p.Config.MaxFileSizeMB)
	if err != nil {
		return nil, err
	}
	ext, ok := p.Extractors[format]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for %s", types.ErrUnsupportedFormat, format)
	}

	log := p.Logger.With("source", path)
	log.Info("converting", "format", format)

	extracted, err := ext.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}
	doc := extracted.Document
	stem := Stem(path)

	res := &Result{Source: path, Format: format, Stats: countStats(doc)}
	res.ImageFiles = p.storeImages(ctx, log, stem, extracted.Images)
	res.Stats.ImagesWritten = len(res.ImageFiles)

	md := markdown.NewSerializer(p.Config.Output).Serialize(doc)
	if p.Config.Output.Pretty {
		md = pretty.Format(md)
	}
	if p.Config.Output.ValidateOutput {
		res.Issues = p.check(log, md)
	}

	switch {
	case p.Config.PreviewMode:
		res.Markdown, res.Omitted = Preview(md, p.Config.PreviewLines)
		return res, nil
	case p.Config.DryRun:
		log.Info("dry run, not writing output")
		res.Markdown = md
		return res, nil
	}

	res.Markdown = md
	out := filepath.Join(p.Config.Output.OutputDir, stem+".md")
	if err := os.MkdirAll(p.Config.Output.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(md), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", out, err)
	}
	res.OutputPath = out
	log.Info("wrote markdown", "output", out, "sections", res.Stats.Sections, "images", res.Stats.Images)
	return res, nil
}

func countStats(doc *types.InternalDocument) Stats {
	s := Stats{Sections: len(doc.Sections), Images: len(doc.Images)}
	for _, sec := range doc.Sections {
		if sec.Heading != nil {
			s.Headings++
		}
		for _, b := range sec.Content {
			if _, ok := b.(*types.Table); ok {
				s.Tables++
			}
		}
	}
	return s
}

// storeImages hands pending images to the image collaborator. Nothing is
// written in dry-run or preview mode unless images are embedded.
func (p *Pipeline) storeImages(ctx context.Context, log *slog.Logger, stem string, pending []types.PendingImage) []string {
	if len(pending) == 0 {
		return nil
	}
	cfg := p.Config.Images
	if !cfg.EmbedBase64 && (!cfg.ExtractImages || p.Config.DryRun || p.Config.PreviewMode) {
		log.Debug("image extraction disabled", "images", len(pending))
		return nil
	}

	saver := &images.Extractor{
		OutputDir:     p.Config.Output.OutputDir,
		PreserveNames: cfg.PreserveFilenames,
		EmbedBase64:   cfg.EmbedBase64,
		Logger:        log,
	}
	if cfg.EnableOCR {
		saver.OCR = p.OCR
	}
	files, err := saver.Save(ctx, stem, pending)
	if err != nil {
		log.Warn("image extraction failed", "error", err)
	}
	return files
}

func (p *Pipeline) check(log *slog.Logger, md string) []validate.Issue {
	vr := validate.Validate(md)
	for _, i := range vr.Issues {
		if i.Severity == validate.SeverityError {
			log.Warn("markdown validation", "issue", i.String())
		} else {
			log.Debug("markdown validation", "issue", i.String())
		}
	}
	if !vr.Valid() {
		log.Warn("markdown validation found problems", "errors", len(vr.Errors()), "warnings", len(vr.Warnings()))
	}
	return vr.Issues
}

// Preview returns the first n lines of md and how many lines were left out.
// n <= 0 returns md unchanged.
func Preview(md string, n int) (string, int) {
	lines := strings.Split(strings.TrimSuffix(md, "\n"), "\n")
	if n <= 0 || len(lines) <= n {
		return md, 0
	}
	return strings.Join(lines[:n], "\n") + "\n", len(lines) - n
}

const rule = "================================================================================"

// WritePreview prints a preview-mode result between banner lines, with a
// note on how many lines were cut.
func WritePreview(w io.Writer, res *Result) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "PREVIEW %s\n", res.Source)
	fmt.Fprintln(w, rule)
	fmt.Fprint(w, res.Markdown)
	if res.Omitted > 0 {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "... %d more lines not shown ...\n", res.Omitted)
		fmt.Fprintln(w, rule)
	}
}
