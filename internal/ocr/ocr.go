// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr reads text out of image bytes.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/doc2md/internal/container"
)

// Engine extracts plain text from an image. An empty string means no text
// was found and is not an error.
type Engine interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// TesseractEngine runs tesseract inside a container image, feeding the
// image on stdin and reading text from stdout.
type TesseractEngine struct {
	Runtime  container.Runtime
	Image    string
	Language string
}

// NewTesseract returns an engine for the given runtime, container image
// and tesseract language list (e.g. "eng+jpn").
func NewTesseract(rt container.Runtime, image, language string) *TesseractEngine {
	return &TesseractEngine{Runtime: rt, Image: image, Language: language}
}

// ExtractText implements Engine.
func (e *TesseractEngine) ExtractText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", nil
	}
	args := []string{"tesseract", "stdin", "stdout"}
	if e.Language != "" {
		args = append(args, "-l", e.Language)
	}
	var out bytes.Buffer
	if err := e.Runtime.Run(ctx, e.Image, args, bytes.NewReader(image), &out); err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(out.String()), nil
}

// Safe runs engine over image and returns its text, or "" when engine is
// nil or fails. Failures are logged, never returned.
func Safe(ctx context.Context, engine Engine, image []byte, logger *slog.Logger) string {
	if engine == nil {
		return ""
	}
	text, err := engine.ExtractText(ctx, image)
	if err != nil {
		if logger != nil {
			logger.Warn("ocr failed", "error", err)
		}
		return ""
	}
	return strings.TrimSpace(text)
}
