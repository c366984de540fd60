// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package images stores the image bytes an extractor pulled from a source
// file and records where they went on the shared ImageReference values.
package images

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/doc2md/internal/ocr"
	"github.com/pdiddy/doc2md/pkg/types"
)

// Extractor writes images under {OutputDir}/{stem}/images/.
type Extractor struct {
	OutputDir string

	// OCR, when set, fills OCRText for every stored image.
	OCR ocr.Engine

	// PreserveNames keeps sanitized source file names instead of
	// image_NNN.
	PreserveNames bool

	// EmbedBase64 stores images as data URLs on the reference and writes
	// nothing.
	EmbedBase64 bool

	Logger *slog.Logger
}

func (x *Extractor) logger() *slog.Logger {
	if x.Logger == nil {
		return slog.Default()
	}
	return x.Logger
}

// Save stores images for the document named stem and returns the paths of
// the files written. It must run after extraction and before
// serialization; it only sets ExtractedPath, Base64Data and OCRText.
func (x *Extractor) Save(ctx context.Context, stem string, imgs []types.PendingImage) ([]string, error) {
	if len(imgs) == 0 {
		return nil, nil
	}
	if x.EmbedBase64 {
		for _, img := range imgs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			x.embed(ctx, img)
		}
		return nil, nil
	}

	dir := filepath.Join(x.OutputDir, stem, "images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image dir: %w", err)
	}

	var written []string
	used := map[string]bool{}
	for i, img := range imgs {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if len(img.Data) == 0 {
			x.logger().Warn("image has no data", "stem", stem, "alt", img.Ref.AltText)
			continue
		}
		name := x.filename(i+1, img, used)
		full := filepath.Join(dir, name)
		if err := os.WriteFile(full, img.Data, 0o644); err != nil {
			x.logger().Warn("writing image", "path", full, "error", err)
			continue
		}
		written = append(written, full)
		img.Ref.ExtractedPath = path.Join(stem, "images", name)
		if text := ocr.Safe(ctx, x.OCR, img.Data, x.logger()); text != "" {
			img.Ref.OCRText = text
		}
	}
	return written, nil
}

func (x *Extractor) embed(ctx context.Context, img types.PendingImage) {
	if len(img.Data) == 0 {
		return
	}
	if img.Ref.Base64Data == "" {
		img.Ref.Base64Data = base64.StdEncoding.EncodeToString(img.Data)
	}
	if img.Ref.MIMEType == "" {
		img.Ref.MIMEType = http.DetectContentType(img.Data)
	}
	if text := ocr.Safe(ctx, x.OCR, img.Data, x.logger()); text != "" {
		img.Ref.OCRText = text
	}
}

// filename picks a unique name for the n-th image.
func (x *Extractor) filename(n int, img types.PendingImage, used map[string]bool) string {
	ext := extension(img)
	name := fmt.Sprintf("image_%03d%s", n, ext)
	if x.PreserveNames && img.Ref.SourcePath != "" {
		if s := sanitize(path.Base(filepath.ToSlash(img.Ref.SourcePath))); s != "" {
			name = s
			if filepath.Ext(name) == "" {
				name += ext
			}
		}
	}
	base, e := strings.TrimSuffix(name, filepath.Ext(name)), filepath.Ext(name)
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s_%d%s", base, i, e)
	}
	used[name] = true
	return name
}

// extension prefers the source name's extension, then the MIME subtype,
// then a sniff of the bytes.
func extension(img types.PendingImage) string {
	if e := filepath.Ext(img.Ref.SourcePath); e != "" {
		return strings.ToLower(e)
	}
	mime := img.Ref.MIMEType
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	if sub, ok := strings.CutPrefix(mime, "image/"); ok {
		switch sub {
		case "jpeg":
			return ".jpg"
		case "svg+xml":
			return ".svg"
		case "x-emf":
			return ".emf"
		case "x-wmf":
			return ".wmf"
		}
		return "." + sub
	}
	return ".bin"
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), ".")
}
