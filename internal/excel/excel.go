// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package excel extracts Excel (.xlsx) workbooks into the document model,
// one section per worksheet.
package excel

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/doc2md/internal/textnorm"
	"github.com/pdiddy/doc2md/pkg/types"
)

const emptySheet = "(Empty sheet)"

// Extractor converts .xlsx files.
type Extractor struct {
	logger *slog.Logger
	norm   *textnorm.Normalizer
}

// New returns an Extractor logging to logger (slog.Default when nil).
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger, norm: textnorm.New(logger)}
}

// Extract reads every worksheet of the workbook at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*types.ExtractResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrContainer, path, err)
	}
	defer f.Close()

	doc := &types.InternalDocument{Metadata: e.metadata(f, path)}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := &sheet{
			f:        f,
			name:     name,
			path:     path,
			logger:   e.logger,
			date1904: date1904,
			dates:    map[int]dateKind{},
		}
		doc.Sections = append(doc.Sections, e.section(s))
	}
	return &types.ExtractResult{Document: doc}, nil
}

func (e *Extractor) metadata(f *excelize.File, path string) types.DocumentMetadata {
	md := types.DocumentMetadata{SourceFormat: string(types.FormatXlsx)}
	if props, err := f.GetDocProps(); err == nil && props != nil {
		md.Title = e.norm.Text("xlsx metadata", strings.TrimSpace(props.Title))
		md.Author = e.norm.Text("xlsx metadata", strings.TrimSpace(props.Creator))
		md.Created = e.norm.Text("xlsx metadata", strings.TrimSpace(props.Created))
		md.Modified = e.norm.Text("xlsx metadata", strings.TrimSpace(props.Modified))
	}
	if md.Title == "" {
		md.Title = filepath.Base(path)
	}
	return md
}

// section renders one worksheet: the sheet name as a level-2 heading and
// either a table or an italic empty-sheet marker.
func (e *Extractor) section(s *sheet) *types.Section {
	heading, _ := types.NewHeading(2, e.norm.Text(s.path, s.name))
	sec := &types.Section{Heading: heading}
	empty := &types.Paragraph{Text: emptySheet, Formatting: types.TextItalic}

	maxCol, maxRow := s.extent()
	if maxCol == 0 || maxRow == 0 || !s.hasValue(maxCol, maxRow) {
		sec.Content = []types.Block{empty}
		return sec
	}

	merged := s.mergedValues()
	grid := make([][]string, 0, maxRow)
	for r := 1; r <= maxRow; r++ {
		row := make([]string, maxCol)
		for c := 1; c <= maxCol; c++ {
			v, ok := merged[cellKey{c, r}]
			if !ok {
				v = s.cell(c, r)
			}
			row[c-1] = e.norm.Text(s.path, v)
		}
		grid = append(grid, row)
	}

	headers := grid[0]
	rows := grid[1:]
	if len(rows) == 0 {
		rows = [][]string{headers}
		headers = make([]string, maxCol)
		for i := range headers {
			headers[i] = fmt.Sprintf("Column %d", i+1)
		}
	}
	sec.Content = []types.Block{&types.Table{Headers: headers, Rows: rows}}
	return sec
}
