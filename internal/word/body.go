// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package word

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/doc2md/internal/textnorm"
)

type run struct {
	text   string
	bold   bool
	italic bool
}

type hyperlink struct {
	relID string
	text  string
}

// paragraph is one w:p from the document body.
type paragraph struct {
	styleID  string
	numbered bool
	level    int
	runs     []run
	links    []hyperlink
	// full holds all text in document order, hyperlink text included.
	full strings.Builder
}

// plainText is the paragraph text outside hyperlinks.
func (p *paragraph) plainText() string {
	var b strings.Builder
	for _, r := range p.runs {
		b.WriteString(r.text)
	}
	return b.String()
}

func (p *paragraph) formatting() (bold, italic bool) {
	for _, r := range p.runs {
		bold = bold || r.bold
		italic = italic || r.italic
	}
	return bold, italic
}

// rawTable is a w:tbl as rows of cell text. Horizontally merged cells are
// repeated for each grid column they span; vertically merged continuation
// cells repeat the text of the cell that started the merge.
type rawTable struct {
	rows [][]string
}

type body struct {
	paragraphs []*paragraph
	tables     []*rawTable
}

// bodyParser walks document.xml tokens.
type bodyParser struct {
	out body

	para      *paragraph
	paraDepth int
	inRun     bool
	inRunPr   bool
	inText    bool
	cur       run
	link      *hyperlink
	skipDepth int

	tblDepth   int
	table      *rawTable
	row        []string
	col        int
	cell       []string
	cellSpan   int
	cellVMerge string
	vmerge     map[int]string
}

func parseBody(r io.Reader) (*body, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = textnorm.CharsetReader
	bp := &bodyParser{}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			bp.start(t)
		case xml.EndElement:
			bp.end(t)
		case xml.CharData:
			if bp.inText && bp.skipDepth == 0 {
				bp.cur.text += string(t)
			}
		}
	}
	return &bp.out, nil
}

func attr(t xml.StartElement, local string) (string, bool) {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// onOff reads a boolean toggle such as w:b, where a missing val means on.
func onOff(t xml.StartElement) bool {
	v, ok := attr(t, "val")
	if !ok {
		return true
	}
	switch strings.ToLower(v) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

func (bp *bodyParser) start(t xml.StartElement) {
	if bp.skipDepth > 0 {
		bp.skipDepth++
		return
	}
	switch t.Name.Local {
	case "Fallback":
		// mc:Fallback repeats the content of mc:Choice.
		bp.skipDepth = 1
	case "tbl":
		bp.tblDepth++
		if bp.tblDepth == 1 {
			bp.table = &rawTable{}
			bp.vmerge = map[int]string{}
		}
	case "tr":
		if bp.tblDepth == 1 {
			bp.row = nil
			bp.col = 0
		}
	case "tc":
		if bp.tblDepth == 1 {
			bp.cell = nil
			bp.cellSpan = 1
			bp.cellVMerge = ""
		}
	case "gridSpan":
		if bp.tblDepth == 1 {
			if v, ok := attr(t, "val"); ok {
				if n, err := strconv.Atoi(v); err == nil && n > 1 {
					bp.cellSpan = n
				}
			}
		}
	case "vMerge":
		if bp.tblDepth == 1 {
			v, _ := attr(t, "val")
			if v == "" {
				v = "continue"
			}
			bp.cellVMerge = v
		}
	case "p":
		bp.paraDepth++
		if bp.paraDepth == 1 {
			bp.para = &paragraph{}
		}
	case "pStyle":
		if bp.para != nil && bp.paraDepth == 1 {
			bp.para.styleID, _ = attr(t, "val")
		}
	case "numPr":
		if bp.para != nil {
			bp.para.numbered = true
		}
	case "ilvl":
		if bp.para != nil {
			if v, ok := attr(t, "val"); ok {
				if n, err := strconv.Atoi(v); err == nil && n >= 0 {
					bp.para.level = n
				}
			}
		}
	case "hyperlink":
		if bp.para != nil {
			id, _ := attr(t, "id")
			bp.link = &hyperlink{relID: id}
		}
	case "r":
		if bp.para != nil {
			bp.inRun = true
			bp.cur = run{}
		}
	case "rPr":
		bp.inRunPr = bp.inRun
	case "b":
		if bp.inRunPr {
			bp.cur.bold = onOff(t)
		}
	case "i":
		if bp.inRunPr {
			bp.cur.italic = onOff(t)
		}
	case "t":
		bp.inText = bp.inRun
	case "tab":
		if bp.inRun && !bp.inRunPr {
			bp.cur.text += "\t"
		}
	case "br", "cr":
		if bp.inRun {
			bp.cur.text += "\n"
		}
	}
}

func (bp *bodyParser) end(t xml.EndElement) {
	if bp.skipDepth > 0 {
		bp.skipDepth--
		return
	}
	switch t.Name.Local {
	case "t":
		bp.inText = false
	case "rPr":
		bp.inRunPr = false
	case "r":
		if !bp.inRun {
			return
		}
		bp.inRun = false
		bp.para.full.WriteString(bp.cur.text)
		if bp.link != nil {
			bp.link.text += bp.cur.text
		} else {
			bp.para.runs = append(bp.para.runs, bp.cur)
		}
	case "hyperlink":
		if bp.para != nil && bp.link != nil {
			bp.para.links = append(bp.para.links, *bp.link)
		}
		bp.link = nil
	case "p":
		bp.paraDepth--
		if bp.paraDepth > 0 || bp.para == nil {
			return
		}
		p := bp.para
		bp.para = nil
		if bp.tblDepth > 0 {
			bp.cell = append(bp.cell, p.full.String())
			return
		}
		bp.out.paragraphs = append(bp.out.paragraphs, p)
	case "tc":
		if bp.tblDepth != 1 {
			return
		}
		text := strings.TrimSpace(strings.Join(bp.cell, "\n"))
		switch bp.cellVMerge {
		case "continue":
			text = bp.vmerge[bp.col]
		case "restart":
			bp.vmerge[bp.col] = text
		default:
			delete(bp.vmerge, bp.col)
		}
		for i := 0; i < bp.cellSpan; i++ {
			bp.row = append(bp.row, text)
		}
		bp.col += bp.cellSpan
	case "tr":
		if bp.tblDepth == 1 && bp.table != nil {
			bp.table.rows = append(bp.table.rows, bp.row)
		}
	case "tbl":
		if bp.tblDepth == 1 && bp.table != nil {
			bp.out.tables = append(bp.out.tables, bp.table)
			bp.table = nil
		}
		bp.tblDepth--
	}
}
