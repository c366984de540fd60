// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package excel

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/doc2md/pkg/types"
)

// writeBook builds a workbook with build and saves it under a temp dir.
func writeBook(t *testing.T, name string, build func(f *excelize.File)) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func extract(t *testing.T, path string) *types.InternalDocument {
	t.Helper()
	res, err := New(nil).Extract(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, res.Document)
	assert.Empty(t, res.Images)
	return res.Document
}

func sheetTable(t *testing.T, sec *types.Section) *types.Table {
	t.Helper()
	require.Len(t, sec.Content, 1)
	tbl, ok := sec.Content[0].(*types.Table)
	require.True(t, ok, "expected table, got %T", sec.Content[0])
	return tbl
}

func TestExtractSheetsAsSections(t *testing.T) {
	path := writeBook(t, "book.xlsx", func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Name", "Qty"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"apple", 10}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"pear", 2.5}))
		_, err := f.NewSheet("Empty")
		require.NoError(t, err)
	})

	doc := extract(t, path)
	require.Len(t, doc.Sections, 2)

	first := doc.Sections[0]
	require.NotNil(t, first.Heading)
	assert.Equal(t, 2, first.Heading.Level)
	assert.Equal(t, "Sheet1", first.Heading.Text)
	tbl := sheetTable(t, first)
	assert.Equal(t, []string{"Name", "Qty"}, tbl.Headers)
	assert.Equal(t, [][]string{{"apple", "10"}, {"pear", "2.5"}}, tbl.Rows)

	empty := doc.Sections[1]
	assert.Equal(t, "Empty", empty.Heading.Text)
	require.Len(t, empty.Content, 1)
	assert.Equal(t, &types.Paragraph{Text: "(Empty sheet)", Formatting: types.TextItalic}, empty.Content[0])
}

func TestExtractMergedCells(t *testing.T) {
	path := writeBook(t, "merged.xlsx", func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Key", "Left", "Right"}))
		require.NoError(t, f.SetCellValue("Sheet1", "A2", "k"))
		require.NoError(t, f.SetCellValue("Sheet1", "B2", "X"))
		require.NoError(t, f.MergeCell("Sheet1", "B2", "C2"))
	})

	tbl := sheetTable(t, extract(t, path).Sections[0])
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "X", tbl.Rows[0][1])
	assert.Equal(t, "X", tbl.Rows[0][2])
}

func TestExtractFormulaWithoutCachedValue(t *testing.T) {
	path := writeBook(t, "formula.xlsx", func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"A", "B", "Sum", "Total", "Lookup"}))
		require.NoError(t, f.SetCellValue("Sheet1", "A2", 2))
		require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))
		require.NoError(t, f.SetCellFormula("Sheet1", "C2", "A2+B2"))
		require.NoError(t, f.SetCellFormula("Sheet1", "D2", "SUM(A2:B2)"))
		require.NoError(t, f.SetCellFormula("Sheet1", "E2", "VLOOKUP(A2,A1:B2,2)"))
	})

	tbl := sheetTable(t, extract(t, path).Sections[0])
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"2", "3", "5", "5", "=VLOOKUP(A2,A1:B2,2)"}, tbl.Rows[0])
}

func TestExtractValueFormatting(t *testing.T) {
	path := writeBook(t, "values.xlsx", func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Flag", "Day", "Link"}))
		require.NoError(t, f.SetCellValue("Sheet1", "A2", true))
		require.NoError(t, f.SetCellValue("Sheet1", "B2", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, f.SetCellValue("Sheet1", "C2", "Docs"))
		require.NoError(t, f.SetCellHyperLink("Sheet1", "C2", "https://example.com/docs", "External"))
		require.NoError(t, f.SetCellValue("Sheet1", "A3", false))
	})

	tbl := sheetTable(t, extract(t, path).Sections[0])
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "TRUE", tbl.Rows[0][0])
	assert.Equal(t, "2024-03-05", tbl.Rows[0][1])
	assert.Equal(t, "[Docs](https://example.com/docs)", tbl.Rows[0][2])
	assert.Equal(t, "FALSE", tbl.Rows[1][0])
}

func TestExtractSingleRowSheet(t *testing.T) {
	path := writeBook(t, "single.xlsx", func(f *excelize.File) {
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"only", "row"}))
	})

	tbl := sheetTable(t, extract(t, path).Sections[0])
	assert.Equal(t, []string{"Column 1", "Column 2"}, tbl.Headers)
	assert.Equal(t, [][]string{{"only", "row"}}, tbl.Rows)
}

func TestExtractMetadata(t *testing.T) {
	t.Run("doc props", func(t *testing.T) {
		path := writeBook(t, "props.xlsx", func(f *excelize.File) {
			require.NoError(t, f.SetDocProps(&excelize.DocProperties{
				Title:    "Budget",
				Creator:  "Ann",
				Created:  "2024-01-02T03:04:05Z",
				Modified: "2024-02-03T04:05:06Z",
			}))
		})
		md := extract(t, path).Metadata
		assert.Equal(t, "Budget", md.Title)
		assert.Equal(t, "Ann", md.Author)
		assert.Equal(t, "2024-01-02T03:04:05Z", md.Created)
		assert.Equal(t, "2024-02-03T04:05:06Z", md.Modified)
		assert.Equal(t, "xlsx", md.SourceFormat)
	})

	t.Run("title falls back to file name", func(t *testing.T) {
		path := writeBook(t, "quarterly.xlsx", func(f *excelize.File) {})
		assert.Equal(t, "quarterly.xlsx", extract(t, path).Metadata.Title)
	})
}

func TestExtractCorruptWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := New(nil).Extract(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrContainer))
}

func TestFormatErrorCell(t *testing.T) {
	s := &sheet{}
	assert.Equal(t, "#ERROR!", s.format("A1", excelize.CellTypeError, ""))
	assert.Equal(t, "#DIV/0!", s.format("A1", excelize.CellTypeError, "#DIV/0!"))
}

func TestClassifyNumFmt(t *testing.T) {
	tests := []struct {
		code string
		want dateKind
	}{
		{"yyyy-mm-dd", dateValue},
		{"d-mmm-yy", dateValue},
		{"hh:mm:ss", timeValue},
		{"[h]:mm", timeValue},
		{"mmm", dateValue},
		{"#,##0.00", notDate},
		{`0.00"days"`, notDate},
		{"[Red]0.0", notDate},
		{"General", notDate},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyNumFmt(tt.code))
		})
	}
}

func TestBuiltinDateKind(t *testing.T) {
	assert.Equal(t, dateValue, builtinDateKind(14))
	assert.Equal(t, dateValue, builtinDateKind(22))
	assert.Equal(t, timeValue, builtinDateKind(20))
	assert.Equal(t, notDate, builtinDateKind(2))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "10", formatNumber(10))
	assert.Equal(t, "-3", formatNumber(-3))
	assert.Equal(t, "2.5", formatNumber(2.5))
	assert.Equal(t, "0.1", formatNumber(0.1))
}
