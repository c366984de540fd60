// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package excel

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type cellKey struct{ col, row int }

type dateKind int

const (
	notDate dateKind = iota
	dateValue
	timeValue
)

// sheet reads cell values from one worksheet.
type sheet struct {
	f        *excelize.File
	name     string
	path     string
	logger   *slog.Logger
	date1904 bool
	dates    map[int]dateKind // style ID -> date classification
}

// extent returns the used column and row counts, from the stored
// dimension, the populated rows and the merged ranges.
func (s *sheet) extent() (maxCol, maxRow int) {
	rows, err := s.f.GetRows(s.name, excelize.Options{RawCellValue: true})
	if err != nil {
		s.logger.Warn("reading rows", "path", s.path, "sheet", s.name, "error", err)
	}
	maxRow = len(rows)
	for _, r := range rows {
		maxCol = max(maxCol, len(r))
	}
	if dim, err := s.f.GetSheetDimension(s.name); err == nil && strings.Contains(dim, ":") {
		if c, r, err := excelize.CellNameToCoordinates(strings.Split(dim, ":")[1]); err == nil {
			maxCol = max(maxCol, c)
			maxRow = max(maxRow, r)
		}
	}
	if merges, err := s.f.GetMergeCells(s.name); err == nil {
		for _, m := range merges {
			if c, r, err := excelize.CellNameToCoordinates(m.GetEndAxis()); err == nil {
				maxCol = max(maxCol, c)
				maxRow = max(maxRow, r)
			}
		}
	}
	return maxCol, maxRow
}

// hasValue reports whether any cell in the extent holds a value. A cell
// explicitly holding an empty string counts.
func (s *sheet) hasValue(maxCol, maxRow int) bool {
	for r := 1; r <= maxRow; r++ {
		for c := 1; c <= maxCol; c++ {
			axis, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				continue
			}
			if v, _ := s.f.GetCellValue(s.name, axis, excelize.Options{RawCellValue: true}); v != "" {
				return true
			}
			if f, _ := s.f.GetCellFormula(s.name, axis); f != "" {
				return true
			}
			switch typ, _ := s.f.GetCellType(s.name, axis); typ {
			case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
				return true
			}
		}
	}
	return false
}

// mergedValues maps every cell inside a merged range to the value of the
// range's top-left cell.
func (s *sheet) mergedValues() map[cellKey]string {
	out := map[cellKey]string{}
	merges, err := s.f.GetMergeCells(s.name)
	if err != nil {
		s.logger.Warn("reading merged cells", "path", s.path, "sheet", s.name, "error", err)
		return out
	}
	for _, m := range merges {
		c1, r1, err1 := excelize.CellNameToCoordinates(m.GetStartAxis())
		c2, r2, err2 := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err1 != nil || err2 != nil {
			continue
		}
		v := s.cell(c1, r1)
		for r := r1; r <= r2; r++ {
			for c := c1; c <= c2; c++ {
				out[cellKey{c, r}] = v
			}
		}
	}
	return out
}

// cell resolves a display value: hyperlink, then formula (cached value,
// bounded evaluation, literal formula), then error, date, boolean and
// number formatting.
func (s *sheet) cell(col, row int) string {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	if ok, target, err := s.f.GetCellHyperLink(s.name, axis); err == nil && ok && target != "" {
		text := s.value(col, row, axis)
		if text == "" {
			text = target
		}
		return "[" + text + "](" + target + ")"
	}
	return s.value(col, row, axis)
}

func (s *sheet) value(col, row int, axis string) string {
	raw, _ := s.f.GetCellValue(s.name, axis, excelize.Options{RawCellValue: true})
	typ, _ := s.f.GetCellType(s.name, axis)

	if formula, _ := s.f.GetCellFormula(s.name, axis); formula != "" {
		if raw != "" {
			return s.format(axis, typ, raw)
		}
		if v, ok := Evaluate(formula, s.lookup); ok {
			return formatNumber(v)
		}
		s.logger.Warn("formula has no cached value", "path", s.path, "sheet", s.name, "cell", axis, "formula", formula)
		return "=" + strings.TrimPrefix(formula, "=")
	}
	return s.format(axis, typ, raw)
}

func (s *sheet) format(axis string, typ excelize.CellType, raw string) string {
	switch typ {
	case excelize.CellTypeError:
		if raw == "" {
			return "#ERROR!"
		}
		return raw
	case excelize.CellTypeBool:
		if raw == "1" || strings.EqualFold(raw, "true") {
			return "TRUE"
		}
		return "FALSE"
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return raw
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return formatTime(t, dateValue)
		}
		return raw
	}
	if raw == "" {
		return ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	if kind := s.dateKind(axis); kind != notDate {
		if t, err := excelize.ExcelDateToTime(v, s.date1904); err == nil {
			return formatTime(t, kind)
		}
	}
	return formatNumber(v)
}

// lookup feeds live values to the formula evaluator. Formula cells without
// a cached value are not numbers.
func (s *sheet) lookup(col, row int) (float64, ValueKind) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return 0, KindOther
	}
	raw, _ := s.f.GetCellValue(s.name, axis, excelize.Options{RawCellValue: true})
	if raw == "" {
		if f, _ := s.f.GetCellFormula(s.name, axis); f != "" {
			return 0, KindOther
		}
		return 0, KindEmpty
	}
	switch typ, _ := s.f.GetCellType(s.name, axis); typ {
	case excelize.CellTypeBool, excelize.CellTypeError, excelize.CellTypeSharedString,
		excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return 0, KindOther
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, KindOther
	}
	return v, KindNumber
}

func (s *sheet) dateKind(axis string) dateKind {
	id, err := s.f.GetCellStyle(s.name, axis)
	if err != nil || id == 0 {
		return notDate
	}
	if k, ok := s.dates[id]; ok {
		return k
	}
	k := notDate
	if style, err := s.f.GetStyle(id); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			k = classifyNumFmt(*style.CustomNumFmt)
		} else {
			k = builtinDateKind(style.NumFmt)
		}
	}
	s.dates[id] = k
	return k
}

// builtinDateKind classifies the built-in number format IDs.
func builtinDateKind(id int) dateKind {
	switch {
	case id >= 18 && id <= 21, id >= 45 && id <= 47:
		return timeValue
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 50 && id <= 58:
		return dateValue
	}
	return notDate
}

// classifyNumFmt inspects a custom format code, ignoring quoted literals,
// escaped characters and bracketed locale or color tags.
func classifyNumFmt(code string) dateKind {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '\\':
			i++
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
			if c == 'h' || c == 'H' || c == 'm' || c == 's' {
				b.WriteByte('h')
			}
		default:
			b.WriteByte(c)
		}
	}
	f := strings.ToLower(b.String())
	if f == "general" || f == "" {
		return notDate
	}
	hasDate := strings.ContainsAny(f, "yd")
	hasTime := strings.ContainsAny(f, "hs")
	switch {
	case hasDate:
		return dateValue
	case hasTime:
		return timeValue
	case strings.Contains(f, "m") && !strings.ContainsAny(f, "0#?"):
		return dateValue
	}
	return notDate
}

func formatTime(t time.Time, kind dateKind) string {
	if kind == timeValue {
		return t.Format("15:04:05")
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatNumber drops the decimal point from integral values.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
