// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/doc2md/internal/ledger"
	"github.com/pdiddy/doc2md/pkg/types"
)

// fakeExtractor returns a canned document or an error.
type fakeExtractor struct {
	doc    func() *types.ExtractResult
	err    error
	errFor map[string]error
	calls  atomic.Int32
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (*types.ExtractResult, error) {
	f.calls.Add(1)
	if err, ok := f.errFor[filepath.Base(path)]; ok {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.doc(), nil
}

type stubOCR struct{ text string }

func (s stubOCR) ExtractText(context.Context, []byte) (string, error) { return s.text, nil }

func sampleDoc() *types.ExtractResult {
	h, _ := types.NewHeading(1, "Quarterly Report")
	doc := &types.InternalDocument{
		Metadata: types.DocumentMetadata{Title: "Quarterly Report", SourceFormat: "docx"},
	}
	sec := &types.Section{Heading: h}
	sec.Content = append(sec.Content,
		&types.Paragraph{Text: "Revenue grew 5%"},
		&types.Table{Headers: []string{"Region", "Total"}, Rows: [][]string{{"North", "10"}, {"South", "200"}}},
	)
	img := &types.ImageReference{AltText: "Image 1", MIMEType: "image/png", SourcePath: "media/image1.png"}
	doc.Sections = append(doc.Sections, sec)
	doc.AddImage(sec, img)
	return &types.ExtractResult{
		Document: doc,
		Images:   []types.PendingImage{{Ref: img, Data: []byte("\x89PNG\r\n\x1a\nfake")}},
	}
}

func testPipeline(t *testing.T, ext *fakeExtractor, mutate func(*types.ConversionConfig)) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := types.DefaultConversionConfig()
	cfg.Output.OutputDir = filepath.Join(dir, "out")
	if mutate != nil {
		mutate(&cfg)
	}
	p := New(cfg, slog.New(slog.DiscardHandler))
	for f := range p.Extractors {
		p.Extractors[f] = ext
	}
	return p, dir
}

func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("source"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertFile(t *testing.T) {
	ext := &fakeExtractor{doc: sampleDoc}
	p, dir := testPipeline(t, ext, nil)
	src := writeSource(t, dir, "report.docx")

	res, err := p.ConvertFile(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}

	wantOut := filepath.Join(dir, "out", "report.md")
	if res.OutputPath != wantOut {
		t.Errorf("OutputPath = %q, want %q", res.OutputPath, wantOut)
	}
	data, err := os.ReadFile(wantOut)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"---\ntitle: Quarterly Report\n",
		"# Quarterly Report",
		"| Region | Total |",
		"| North  | 10    |",
		"![Image 1](report/images/image_001.png)",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("output missing %q:\n%s", want, content)
		}
	}
	if !strings.HasSuffix(content, "\n") || strings.HasSuffix(content, "\n\n") {
		t.Error("output should end with exactly one newline")
	}

	if _, err := os.Stat(filepath.Join(dir, "out", "report", "images", "image_001.png")); err != nil {
		t.Errorf("image not written: %v", err)
	}
	want := Stats{Sections: 1, Headings: 1, Tables: 1, Images: 1, ImagesWritten: 1}
	if res.Stats != want {
		t.Errorf("Stats = %+v, want %+v", res.Stats, want)
	}
	if len(res.Issues) != 0 {
		t.Errorf("unexpected validation issues: %v", res.Issues)
	}
}

func TestConvertFileModes(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*types.ConversionConfig)
		wantOutput bool
		wantImages bool
		check      func(t *testing.T, res *Result)
	}{
		{
			name:   "dry run writes nothing",
			mutate: func(c *types.ConversionConfig) { c.DryRun = true },
			check: func(t *testing.T, res *Result) {
				if !strings.Contains(res.Markdown, "<!-- Image extraction failed: Image 1 -->") &&
					!strings.Contains(res.Markdown, "media/image1.png") {
					t.Errorf("image should fall back to its source path:\n%s", res.Markdown)
				}
			},
		},
		{
			name: "preview keeps first lines",
			mutate: func(c *types.ConversionConfig) {
				c.PreviewMode = true
				c.PreviewLines = 3
			},
			check: func(t *testing.T, res *Result) {
				if n := strings.Count(res.Markdown, "\n"); n != 3 {
					t.Errorf("preview has %d lines, want 3", n)
				}
				if res.Omitted == 0 {
					t.Error("Omitted should count the cut lines")
				}
			},
		},
		{
			name: "embedded images",
			mutate: func(c *types.ConversionConfig) {
				c.Images.EmbedBase64 = true
			},
			wantOutput: true,
			check: func(t *testing.T, res *Result) {
				if !strings.Contains(res.Markdown, "](data:image/png;base64,") {
					t.Errorf("expected data URL image:\n%s", res.Markdown)
				}
			},
		},
		{
			name: "image extraction disabled",
			mutate: func(c *types.ConversionConfig) {
				c.Images.ExtractImages = false
			},
			wantOutput: true,
		},
		{
			name: "ocr text appended",
			mutate: func(c *types.ConversionConfig) {
				c.Images.EnableOCR = true
			},
			wantOutput: true,
			wantImages: true,
			check: func(t *testing.T, res *Result) {
				if !strings.Contains(res.Markdown, "*OCR extracted text: Total 210*") {
					t.Errorf("missing OCR line:\n%s", res.Markdown)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, dir := testPipeline(t, &fakeExtractor{doc: sampleDoc}, tt.mutate)
			p.OCR = stubOCR{text: "Total 210"}
			src := writeSource(t, dir, "report.docx")

			res, err := p.ConvertFile(context.Background(), src)
			if err != nil {
				t.Fatal(err)
			}
			_, statErr := os.Stat(filepath.Join(dir, "out", "report.md"))
			if gotOutput := statErr == nil; gotOutput != tt.wantOutput {
				t.Errorf("output written = %v, want %v", gotOutput, tt.wantOutput)
			}
			if gotImages := len(res.ImageFiles) > 0; gotImages != tt.wantImages {
				t.Errorf("images written = %v, want %v", gotImages, tt.wantImages)
			}
			if tt.check != nil {
				tt.check(t, res)
			}
		})
	}
}

func TestConvertFileErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		file    string
		ext     *fakeExtractor
		wantErr error
	}{
		{name: "missing file", file: "", ext: &fakeExtractor{doc: sampleDoc}, wantErr: ErrNotFound},
		{name: "unsupported extension", file: "notes.txt", ext: &fakeExtractor{doc: sampleDoc}, wantErr: types.ErrUnsupportedFormat},
		{name: "extractor failure", file: "bad.pdf", ext: &fakeExtractor{err: boom}, wantErr: boom},
		{name: "container error", file: "bad.xlsx", ext: &fakeExtractor{err: types.ErrContainer}, wantErr: types.ErrContainer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, dir := testPipeline(t, tt.ext, nil)
			src := filepath.Join(dir, "missing.docx")
			if tt.file != "" {
				src = writeSource(t, dir, tt.file)
			}
			_, err := p.ConvertFile(context.Background(), src)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConvertBatch(t *testing.T) {
	ext := &fakeExtractor{
		doc:    sampleDoc,
		errFor: map[string]error{"c.pdf": errors.New("bad pdf")},
	}
	p, dir := testPipeline(t, ext, func(c *types.ConversionConfig) { c.Workers = 3 })

	l, err := ledger.Open(p.Config.Output.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	p.Ledger = l

	paths := []string{
		writeSource(t, dir, "a.docx"),
		writeSource(t, dir, "b.xlsx"),
		writeSource(t, dir, "c.pdf"),
	}

	var log bytes.Buffer
	result := p.ConvertBatch(context.Background(), paths, &log)

	if result.Converted != 2 || result.Failed != 1 || result.Skipped != 0 {
		t.Errorf("first run = %+v, want 2 converted, 1 failed", result)
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}
	output := log.String()
	for _, want := range []string{"converted: a", "converted: b", "failed:  c (", "Batch summary: 2 converted, 0 skipped, 1 failed (total: 3)"} {
		if !strings.Contains(output, want) {
			t.Errorf("batch output missing %q:\n%s", want, output)
		}
	}

	// Second run skips what the ledger says is unchanged and retries failures.
	log.Reset()
	result = p.ConvertBatch(context.Background(), paths, &log)
	if result.Skipped != 2 || result.Failed != 1 {
		t.Errorf("second run = %+v, want 2 skipped, 1 failed", result)
	}
	if !strings.Contains(log.String(), "skipped: a (unchanged)") {
		t.Errorf("expected skip line:\n%s", log.String())
	}
	if got := ext.calls.Load(); got != 4 {
		t.Errorf("extractor calls = %d, want 4", got)
	}

	entries, err := l.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("ledger has %d entries, want 3", len(entries))
	}
}

func TestConvertBatchPreview(t *testing.T) {
	p, dir := testPipeline(t, &fakeExtractor{doc: sampleDoc}, func(c *types.ConversionConfig) {
		c.PreviewMode = true
		c.PreviewLines = 2
	})
	src := writeSource(t, dir, "memo.docx")

	var log bytes.Buffer
	result := p.ConvertBatch(context.Background(), []string{src}, &log)
	if result.Converted != 1 {
		t.Fatalf("result = %+v", result)
	}
	out := log.String()
	if !strings.Contains(out, "PREVIEW "+src) || !strings.Contains(out, "more lines not shown") {
		t.Errorf("preview block missing:\n%s", out)
	}
}

func TestConvertBatchCanceled(t *testing.T) {
	ext := &fakeExtractor{doc: sampleDoc}
	p, dir := testPipeline(t, ext, nil)
	src := writeSource(t, dir, "a.docx")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var log bytes.Buffer
	result := p.ConvertBatch(ctx, []string{src}, &log)
	if result.Failed != 1 || ext.calls.Load() != 0 {
		t.Errorf("canceled batch = %+v, calls = %d", result, ext.calls.Load())
	}
}

func TestConvertWorkbookEndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sales.xlsx")

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Sales")
	f.SetCellValue("Sales", "A1", "Item")
	f.SetCellValue("Sales", "B1", "Note")
	f.SetCellValue("Sales", "A2", "Widget")
	f.SetCellValue("Sales", "B2", "a|b")
	if err := f.SaveAs(src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg := types.DefaultConversionConfig()
	cfg.Output.OutputDir = filepath.Join(dir, "out")
	p := New(cfg, slog.New(slog.DiscardHandler))

	res, err := p.ConvertFile(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"## Sales", "| Item   | Note |", `| Widget | a\|b |`} {
		if !strings.Contains(res.Markdown, want) {
			t.Errorf("markdown missing %q:\n%s", want, res.Markdown)
		}
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		md       string
		n        int
		want     string
		wantRest int
	}{
		{"a\nb\nc\n", 2, "a\nb\n", 1},
		{"a\nb\n", 5, "a\nb\n", 0},
		{"a\nb\n", 0, "a\nb\n", 0},
	}
	for _, tt := range tests {
		got, rest := Preview(tt.md, tt.n)
		if got != tt.want || rest != tt.wantRest {
			t.Errorf("Preview(%q, %d) = %q, %d; want %q, %d", tt.md, tt.n, got, rest, tt.want, tt.wantRest)
		}
	}
}
