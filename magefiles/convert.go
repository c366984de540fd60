//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and converts every document under input/ into
// output/.
func Convert() error {
	mg.Deps(Build)
	if err := os.MkdirAll("input", 0o755); err != nil {
		return err
	}
	return sh.RunV(filepath.Join(binDir, binName), "convert", "--output-dir", "output", "input")
}
