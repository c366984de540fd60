// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContent(t *testing.T) {
	stream := `% comment
BT /F1 12 Tf 72 720 Td (Hello \(world\) \101\102) Tj ET
/P <</MCID 0>> BDC [(A) -300 (B)] TJ EMC
<48656C6C6F> Tj
BI /W 1 /H 1 ID xyz EI
1 0 0 RG`
	ops := parseContent([]byte(stream))

	var names []string
	for _, op := range ops {
		names = append(names, op.op)
	}
	assert.Equal(t, []string{"BT", "Tf", "Td", "Tj", "ET", "BDC", "TJ", "EMC", "Tj", "RG"}, names)

	s, ok := ops[3].str(0)
	require.True(t, ok)
	assert.Equal(t, "Hello (world) AB", string(s))

	arr, ok := ops[6].args[0].(pdfArray)
	require.True(t, ok)
	assert.Len(t, arr, 3)

	hex, ok := ops[8].str(0)
	require.True(t, ok)
	assert.Equal(t, "Hello", string(hex))

	v, ok := ops[9].nums(3)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 0}, v)
}

func TestInterpretText(t *testing.T) {
	stream := `BT /F1 10 Tf 14 TL 72 700 Td (first) Tj T* (second) Tj ET
q 2 0 0 2 0 0 cm BT /F1 10 Tf 1 0 0 1 50 100 Tm [(a) -500 (b)] TJ ET Q`
	content := interpret(parseContent([]byte(stream)), nil)
	require.Len(t, content.runs, 3)

	first := content.runs[0]
	assert.Equal(t, "first", first.text)
	assert.InDelta(t, 72, first.x, 0.01)
	assert.InDelta(t, 700, first.y, 0.01)
	assert.InDelta(t, 72+5*10*advance, first.end, 0.01)

	second := content.runs[1]
	assert.Equal(t, "second", second.text)
	assert.InDelta(t, 72, second.x, 0.01)
	assert.InDelta(t, 686, second.y, 0.01)

	scaled := content.runs[2]
	assert.Equal(t, "a b", scaled.text)
	assert.InDelta(t, 100, scaled.x, 0.01)
	assert.InDelta(t, 200, scaled.y, 0.01)
	assert.InDelta(t, 20, scaled.size, 0.01)
}

func TestInterpretDrawings(t *testing.T) {
	var b strings.Builder
	b.WriteString("0.5 g\n")
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, "%d 10 5 5 re f\n", i*10)
	}
	b.WriteString("10 10 m 50 50 l S\n")
	b.WriteString("0 0 m 1 1 l n\n")
	b.WriteString("BT (ABC) Tj ET")

	content := interpret(parseContent([]byte(b.String())), nil)
	assert.Len(t, content.drawings, 6)
	assert.Equal(t, 3, content.textLen())

	rect := content.drawings[0]
	assert.True(t, rect.fill)
	assert.False(t, rect.stroke)
	assert.Equal(t, uint8(128), rect.fillColor.R)
	require.Len(t, rect.segs, 5)
	assert.Equal(t, point{5, 15}, rect.segs[2].pts[0])

	assert.True(t, content.drawings[5].stroke)
}

func TestGroupLinesAndTables(t *testing.T) {
	runs := []run{
		{x: 72, y: 720, end: 150, size: 12, text: "Quarterly figures"},
		{x: 250, y: 600, end: 268, size: 12, text: "Qty"},
		{x: 72, y: 600, end: 96, size: 12, text: "Name"},
		{x: 72, y: 585, end: 102, size: 12, text: "apple"},
		{x: 250, y: 585.5, end: 262, size: 12, text: "10"},
		{x: 72, y: 500, end: 200, size: 12, text: "After the table."},
	}
	lines := groupLines(runs)
	require.Len(t, lines, 4)
	assert.Equal(t, "Name Qty", lines[1].text())

	tables, text := layoutPage(lines)
	require.Len(t, tables, 1)
	assert.Equal(t, rawTable{{"Name", "Qty"}, {"apple", "10"}}, tables[0])
	assert.Equal(t, "Quarterly figures\n\nAfter the table.", text)
}

func TestCellsJoinCloseRuns(t *testing.T) {
	l := line{size: 10, runs: []run{
		{x: 72, end: 92, size: 10, text: "Hello"},
		{x: 95, end: 120, size: 10, text: "world"},
		{x: 121, end: 125, size: 10, text: "!"},
	}}
	cells := l.cells()
	require.Len(t, cells, 1)
	assert.Equal(t, "Hello world!", cells[0].text)
}

func TestRasterize(t *testing.T) {
	ops := parseContent([]byte("1 0 0 rg 10 10 20 20 re f 0 G 2 w 0 45 m 100 45 l S"))
	content := interpret(ops, nil)

	data, err := rasterize(content.drawings, 100, 50, RasterScale)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	// The filled square covers (10,10)-(30,30) in page space, which is
	// x 20..60, y 40..80 in the raster.
	r, g, b, _ := img.At(40, 60).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, b)

	// The stroke at page y=45 lands on raster row 10.
	r, g, b, _ = img.At(100, 10).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b})

	r, g, b, _ = img.At(190, 40).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
}

func TestRasterizeRejectsEmptyPage(t *testing.T) {
	_, err := rasterize(nil, 0, 0, RasterScale)
	assert.Error(t, err)
}

func TestImageType(t *testing.T) {
	tests := []struct {
		data []byte
		ext  string
		mime string
	}{
		{[]byte("\x89PNG\r\n\x1a\n0000"), "png", "image/png"},
		{[]byte("\xff\xd8\xff\xe0\x00\x10JFIF"), "jpeg", "image/jpeg"},
		{[]byte("II*\x00rest"), "tiff", "image/tiff"},
		{[]byte("plain"), "bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			ext, mime := imageType(tt.data)
			assert.Equal(t, tt.ext, ext)
			assert.Equal(t, tt.mime, mime)
		})
	}
}
