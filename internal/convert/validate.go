// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/doc2md/pkg/types"
)

var (
	// ErrNotFound is returned when the input does not exist or is not a
	// regular file.
	ErrNotFound = errors.New("file not found")

	// ErrTooLarge is returned when the input exceeds max_file_size_mb.
	ErrTooLarge = errors.New("file too large")

	// ErrNotReadable is returned when the input cannot be opened.
	ErrNotReadable = errors.New("file not readable")
)

var extensions = map[string]types.Format{
	".docx": types.FormatDocx,
	".xlsx": types.FormatXlsx,
	".pdf":  types.FormatPDF,
}

// SupportedFormats lists the accepted extensions with their format.
func SupportedFormats() map[string]types.Format {
	out := make(map[string]types.Format, len(extensions))
	for k, v := range extensions {
		out[k] = v
	}
	return out
}

// DetectFormat maps the extension of path, case-insensitively, to a format.
func DetectFormat(path string) (types.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return "", fmt.Errorf("%w: %s (expected .docx, .xlsx or .pdf)", types.ErrUnsupportedFormat, ext)
}

// ValidateFile checks that path is an existing, readable regular file with
// a supported extension and at most maxSizeMB megabytes. maxSizeMB <= 0
// disables the size check.
func ValidateFile(path string, maxSizeMB int) (types.Format, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	format, err := DetectFormat(path)
	if err != nil {
		return "", err
	}
	if limit := int64(maxSizeMB) << 20; maxSizeMB > 0 && info.Size() > limit {
		return "", fmt.Errorf("%w: %s is %.2f MB, limit %d MB", ErrTooLarge, path, float64(info.Size())/(1<<20), maxSizeMB)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotReadable, path, err)
	}
	f.Close()
	return format, nil
}
