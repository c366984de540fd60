// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records which source documents have been converted so that
// batch runs can skip files that have not changed since their last
// successful conversion.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc2md/pkg/types"
)

const (
	// StateDir is the directory under the output directory holding the
	// ledger database and its export.
	StateDir   = ".doc2md"
	dbFile     = "ledger.db"
	exportFile = "ledger.yaml"
)

// Status is the outcome recorded for a source file.
type Status string

const (
	StatusConverted Status = "converted"
	StatusFailed    Status = "failed"
)

// Entry is one row of the conversions table.
type Entry struct {
	SourcePath  string       `json:"source_path" yaml:"source_path"`
	ModTime     time.Time    `json:"file_mod_time" yaml:"file_mod_time"`
	Format      types.Format `json:"format" yaml:"format"`
	OutputPath  string       `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Status      Status       `json:"status" yaml:"status"`
	Sections    int          `json:"sections" yaml:"sections"`
	Images      int          `json:"images" yaml:"images"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
	ConvertedAt time.Time    `json:"converted_at" yaml:"converted_at"`
}

// Ledger is the SQLite-backed conversion record for one output directory.
type Ledger struct {
	db  *sql.DB
	dir string
}

// Open opens or creates outputDir/.doc2md/ledger.db and its schema.
func Open(outputDir string) (*Ledger, error) {
	dir := filepath.Join(outputDir, StateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db, dir: dir}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			source_path TEXT PRIMARY KEY,
			file_mod_time TEXT NOT NULL,
			format TEXT NOT NULL,
			output_path TEXT,
			status TEXT NOT NULL,
			sections INTEGER NOT NULL DEFAULT 0,
			images INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			converted_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_status ON conversions(status)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Unchanged reports whether path was converted successfully at modTime and
// its Markdown output still exists.
func (l *Ledger) Unchanged(ctx context.Context, path string, modTime time.Time) (bool, error) {
	var stored, status string
	var output sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT file_mod_time, status, output_path FROM conversions WHERE source_path = ?`, key(path),
	).Scan(&stored, &status, &output)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying ledger for %s: %w", path, err)
	}
	if stored != stamp(modTime) || Status(status) != StatusConverted {
		return false, nil
	}
	if output.String != "" {
		if _, err := os.Stat(output.String); err != nil {
			return false, nil
		}
	}
	return true, nil
}

// Record inserts or replaces the entry for e.SourcePath. A zero ConvertedAt
// is set to the current time.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.ConvertedAt.IsZero() {
		e.ConvertedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO conversions (source_path, file_mod_time, format, output_path, status, sections, images, error, converted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_path) DO UPDATE SET
			file_mod_time=excluded.file_mod_time, format=excluded.format,
			output_path=excluded.output_path, status=excluded.status,
			sections=excluded.sections, images=excluded.images,
			error=excluded.error, converted_at=excluded.converted_at`,
		key(e.SourcePath), stamp(e.ModTime), string(e.Format), e.OutputPath,
		string(e.Status), e.Sections, e.Images, e.Error, stamp(e.ConvertedAt),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.SourcePath, err)
	}
	return nil
}

// List returns every entry ordered by source path.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT source_path, file_mod_time, format, output_path, status, sections, images, error, converted_at
		 FROM conversions ORDER BY source_path`)
	if err != nil {
		return nil, fmt.Errorf("listing conversions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var modTime, convertedAt, format, status string
		var output, errText sql.NullString
		if err := rows.Scan(&e.SourcePath, &modTime, &format, &output, &status,
			&e.Sections, &e.Images, &errText, &convertedAt); err != nil {
			return nil, fmt.Errorf("scanning conversion: %w", err)
		}
		e.Format = types.Format(format)
		e.Status = Status(status)
		e.OutputPath = output.String
		e.Error = errText.String
		e.ModTime, _ = time.Parse(time.RFC3339Nano, modTime)
		e.ConvertedAt, _ = time.Parse(time.RFC3339Nano, convertedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ExportYAML writes every entry to .doc2md/ledger.yaml and returns the
// file path.
func (l *Ledger) ExportYAML(ctx context.Context) (string, error) {
	entries, err := l.List(ctx)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(l.dir, exportFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
