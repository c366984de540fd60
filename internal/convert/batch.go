// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/doc2md/internal/ledger"
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

type outcome int

const (
	outcomeConverted outcome = iota
	outcomeSkipped
	outcomeFailed
)

// ConvertBatch converts paths with up to Config.Workers files in flight,
// printing one status line per file and a summary to w. Files the ledger
// reports unchanged are skipped. Documents share no state, so one failure
// never stops the others.
func (p *Pipeline) ConvertBatch(ctx context.Context, paths []string, w io.Writer) BatchResult {
	var (
		mu     sync.Mutex
		result BatchResult
	)
	report := func(o outcome, line string, preview *Result) {
		mu.Lock()
		defer mu.Unlock()
		switch o {
		case outcomeConverted:
			result.Converted++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
		if preview != nil {
			WritePreview(w, preview)
		}
		fmt.Fprint(w, line)
	}

	var g errgroup.Group
	g.SetLimit(max(p.Config.Workers, 1))
	for _, path := range paths {
		g.Go(func() error {
			o, line, preview := p.convertOne(ctx, path)
			report(o, line, preview)
			return nil
		})
	}
	g.Wait()

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

func (p *Pipeline) convertOne(ctx context.Context, path string) (outcome, string, *Result) {
	name := Stem(path)
	if err := ctx.Err(); err != nil {
		return outcomeFailed, fmt.Sprintf("failed:  %s (%v)\n", name, err), nil
	}

	tracked := p.Ledger != nil && !p.Config.DryRun && !p.Config.PreviewMode
	var modTime time.Time
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
	}
	if tracked && !modTime.IsZero() {
		unchanged, err := p.Ledger.Unchanged(ctx, path, modTime)
		if err != nil {
			p.Logger.Warn("ledger lookup failed", "source", path, "error", err)
		}
		if unchanged {
			return outcomeSkipped, fmt.Sprintf("skipped: %s (unchanged)\n", name), nil
		}
	}

	res, err := p.ConvertFile(ctx, path)
	if err != nil {
		if tracked && !modTime.IsZero() {
			format, _ := DetectFormat(path)
			p.record(ctx, ledger.Entry{
				SourcePath: path, ModTime: modTime, Format: format,
				Status: ledger.StatusFailed, Error: err.Error(),
			})
		}
		return outcomeFailed, fmt.Sprintf("failed:  %s (%v)\n", name, err), nil
	}

	if tracked {
		p.record(ctx, ledger.Entry{
			SourcePath: path, ModTime: modTime, Format: res.Format,
			OutputPath: res.OutputPath, Status: ledger.StatusConverted,
			Sections: res.Stats.Sections, Images: res.Stats.Images,
		})
	}

	switch {
	case p.Config.PreviewMode:
		return outcomeConverted, fmt.Sprintf("previewed: %s\n", name), res
	case p.Config.DryRun:
		return outcomeConverted, fmt.Sprintf("converted: %s (dry run, %d sections)\n", name, res.Stats.Sections), nil
	}
	return outcomeConverted, fmt.Sprintf("converted: %s -> %s\n", name, res.OutputPath), nil
}

func (p *Pipeline) record(ctx context.Context, e ledger.Entry) {
	if err := p.Ledger.Record(ctx, e); err != nil {
		p.Logger.Warn("ledger update failed", "source", e.SourcePath, "error", err)
	}
}
