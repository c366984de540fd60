package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/doc2md/internal/container"
	"github.com/pdiddy/doc2md/internal/convert"
	"github.com/pdiddy/doc2md/internal/ledger"
	"github.com/pdiddy/doc2md/internal/ocr"
	"github.com/pdiddy/doc2md/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files or directories...]",
	Short: "Convert documents to Markdown",
	Long: `Convert reads .docx, .xlsx and .pdf files and writes {output_dir}/{stem}.md,
with extracted images under {output_dir}/{stem}/images/. Directories are
searched recursively for supported files.

A ledger in {output_dir}/.doc2md/ remembers each source file's modification
time; unchanged files are skipped on later runs unless --force is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringP("output-dir", "o", "", "output directory")
	f.Int("heading-offset", 0, "added to every heading level (result clamped to 1..6)")
	f.String("table-style", "", "table layout: pipe or grid")
	f.Bool("metadata", true, "emit YAML frontmatter")
	f.Bool("pretty", true, "run the Markdown pretty-printer")
	f.Bool("validate", true, "validate the Markdown output and log findings")
	f.Bool("extract-images", true, "write images to {output_dir}/{stem}/images/")
	f.Bool("embed-images", false, "embed images as base64 data URLs")
	f.Bool("preserve-filenames", false, "keep source image names")
	f.Bool("ocr", false, "run tesseract over extracted images (needs docker or podman)")
	f.String("ocr-lang", "", "tesseract language list, e.g. eng+jpn")
	f.BoolP("preview", "p", false, "print the first lines of each result without writing")
	f.Int("preview-lines", 0, "lines shown in preview mode")
	f.BoolP("dry-run", "n", false, "convert without writing any file")
	f.Int("max-size", 0, "reject inputs larger than this many MB")
	f.IntP("workers", "j", 0, "documents converted concurrently")
	f.Bool("force", false, "convert even when the ledger says a file is unchanged")

	for key, flag := range map[string]string{
		"output.output_dir":          "output-dir",
		"output.heading_offset":      "heading-offset",
		"output.table_style":         "table-style",
		"output.include_metadata":    "metadata",
		"output.pretty":              "pretty",
		"output.validate_output":     "validate",
		"images.extract_images":      "extract-images",
		"images.embed_images_base64": "embed-images",
		"images.preserve_filenames":  "preserve-filenames",
		"images.enable_ocr":          "ocr",
		"images.ocr_language":        "ocr-lang",
		"preview_mode":               "preview",
		"preview_lines":              "preview-lines",
		"dry_run":                    "dry-run",
		"max_file_size_mb":           "max-size",
		"workers":                    "workers",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	files, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .docx, .xlsx or .pdf files found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := convert.New(cfg, logger)
	if cfg.Images.EnableOCR {
		p.OCR = setupOCR(ctx, cfg.Images, logger)
	}

	force, _ := cmd.Flags().GetBool("force")
	if !force && !cfg.DryRun && !cfg.PreviewMode {
		l, err := ledger.Open(cfg.Output.OutputDir)
		if err != nil {
			logger.Warn("ledger unavailable, converting every file", "error", err)
		} else {
			defer l.Close()
			p.Ledger = l
		}
	}

	result := p.ConvertBatch(ctx, files, cmd.OutOrStdout())
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}

// setupOCR returns a tesseract engine, or nil when no container runtime or
// image is available.
func setupOCR(ctx context.Context, cfg types.ImageConfig, logger *slog.Logger) ocr.Engine {
	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		logger.Warn("OCR disabled", "error", err)
		return nil
	}
	if err := rt.ImageExists(ctx, cfg.OCRImage); err != nil {
		logger.Warn("OCR disabled", "runtime", rt.Name(), "image", cfg.OCRImage, "error", err)
		return nil
	}
	return ocr.NewTesseract(rt, cfg.OCRImage, cfg.OCRLanguage)
}

// expandInputs returns files as given and, for directories, every supported
// file beneath them in lexical order. Office lock files (~$name) are
// skipped.
func expandInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			files = append(files, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && d.Name() == ledger.StateDir {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(d.Name(), "~$") {
				return nil
			}
			if _, err := convert.DetectFormat(path); err == nil {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", arg, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
