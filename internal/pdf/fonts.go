// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"fmt"
	"os"

	lpdf "github.com/ledongthuc/pdf"
)

// textDecoder maps a font's character codes to text. Composite fonts use
// multi-byte codes resolved through the font's ToUnicode map.
type textDecoder interface {
	Decode(raw string) string
}

// fontReader resolves page font resources to decoders using the
// plain-text reader's font handling.
type fontReader struct {
	f *os.File
	r *lpdf.Reader
}

func openFonts(path string) (fr *fontReader, err error) {
	defer func() {
		if r := recover(); r != nil {
			fr, err = nil, fmt.Errorf("font reader: %v", r)
		}
	}()
	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &fontReader{f: f, r: r}, nil
}

func (fr *fontReader) Close() error { return fr.f.Close() }

// page returns the decoders of page n keyed by font resource name. A nil
// reader or an unreadable page yields nil.
func (fr *fontReader) page(n int) (fonts map[string]textDecoder) {
	if fr == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			fonts = nil
		}
	}()
	if n > fr.r.NumPage() {
		return nil
	}
	p := fr.r.Page(n)
	if p.V.IsNull() {
		return nil
	}
	fonts = make(map[string]textDecoder)
	for _, name := range p.Fonts() {
		fonts[name] = p.Font(name).Encoder()
	}
	return fonts
}
