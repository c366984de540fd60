// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package word

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pdiddy/doc2md/internal/textnorm"
)

const (
	partDocument     = "word/document.xml"
	partStyles       = "word/styles.xml"
	partDocumentRels = "word/_rels/document.xml.rels"
	partContentTypes = "[Content_Types].xml"
	partCoreProps    = "docProps/core.xml"

	relTypeHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
)

// pkg is an opened .docx container.
type pkg struct {
	zr    *zip.ReadCloser
	files map[string]*zip.File
}

func openPackage(p string) (*pkg, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	if _, ok := files[partDocument]; !ok {
		zr.Close()
		return nil, fmt.Errorf("%s not found in archive", partDocument)
	}
	return &pkg{zr: zr, files: files}, nil
}

func (p *pkg) Close() error { return p.zr.Close() }

func (p *pkg) has(name string) bool {
	_, ok := p.files[name]
	return ok
}

func (p *pkg) open(name string) (io.ReadCloser, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%s not found in archive", name)
	}
	return f.Open()
}

func (p *pkg) read(name string) ([]byte, error) {
	rc, err := p.open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// decodePart unmarshals an optional XML part. A missing part leaves v
// untouched.
func (p *pkg) decodePart(name string, v any) error {
	if !p.has(name) {
		return nil
	}
	rc, err := p.open(name)
	if err != nil {
		return err
	}
	defer rc.Close()
	dec := xml.NewDecoder(rc)
	dec.CharsetReader = textnorm.CharsetReader
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationships struct {
	Rels []relationship `xml:"Relationship"`
}

// partName resolves a relationship target against the word/ directory.
func (r relationship) partName() string {
	if strings.HasPrefix(r.Target, "/") {
		return strings.TrimPrefix(r.Target, "/")
	}
	return path.Clean(path.Join("word", r.Target))
}

func (r relationship) external() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

type contentTypes struct {
	Defaults []struct {
		Extension   string `xml:"Extension,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Default"`
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

// mimeType returns the declared content type of a part, by override first
// and extension default second.
func (c contentTypes) mimeType(part string) string {
	for _, o := range c.Overrides {
		if strings.TrimPrefix(o.PartName, "/") == part {
			return o.ContentType
		}
	}
	ext := strings.TrimPrefix(path.Ext(part), ".")
	for _, d := range c.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType
		}
	}
	return ""
}

type coreProps struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Created  string `xml:"created"`
	Modified string `xml:"modified"`
}

type stylesPart struct {
	Styles []struct {
		ID   string `xml:"styleId,attr"`
		Name struct {
			Val string `xml:"val,attr"`
		} `xml:"name"`
	} `xml:"style"`
}

// styleNames maps style IDs to display names.
type styleNames map[string]string

func (s stylesPart) names() styleNames {
	m := make(styleNames, len(s.Styles))
	for _, st := range s.Styles {
		if st.Name.Val != "" {
			m[st.ID] = displayName(st.Name.Val)
		}
	}
	return m
}

// name returns the display name for id, or id itself when styles.xml does
// not define it.
func (s styleNames) name(id string) string {
	if n, ok := s[id]; ok {
		return n
	}
	return id
}

// displayName maps the lower-case built-in names stored in styles.xml
// ("heading 1") to the names shown in Word ("Heading 1").
func displayName(name string) string {
	lower := strings.ToLower(name)
	for _, builtin := range []string{"heading", "title", "subtitle", "caption"} {
		if strings.HasPrefix(lower, builtin) && strings.HasPrefix(name, builtin) {
			return strings.ToUpper(name[:1]) + name[1:]
		}
	}
	return name
}
