// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textnorm detects source byte encodings, decodes them to UTF-8,
// reports encoding anomalies and normalizes text before it enters the
// document model.
package textnorm

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

const (
	encUTF8    = "utf-8"
	encUTF16LE = "utf-16le"
	encUTF16BE = "utf-16be"
	encLatin1  = "iso-8859-1"
)

// candidate is one encoding tried during heuristic detection.
type candidate struct {
	name string
	enc  encoding.Encoding
}

// candidates are tried in order when the input is neither BOM-marked,
// declared nor valid UTF-8. Single-byte encodings come last because they
// accept any input.
var candidates = []candidate{
	{"shift_jis", japanese.ShiftJIS},
	{"euc-jp", japanese.EUCJP},
	{"gbk", simplifiedchinese.GBK},
	{"big5", traditionalchinese.Big5},
	{"euc-kr", korean.EUCKR},
	{"windows-1252", charmap.Windows1252},
}

// Detect returns the name of the encoding data is most likely in. A BOM
// wins, then a declared label that resolves, then UTF-8 validity, then the
// candidate list. It returns "" when nothing decodes cleanly.
func Detect(data []byte, declared string) string {
	if name := bomEncoding(data); name != "" {
		return name
	}
	if declared != "" {
		if enc, err := htmlindex.Get(declared); err == nil {
			if name, err := htmlindex.Name(enc); err == nil {
				return name
			}
			return strings.ToLower(declared)
		}
	}
	if utf8.Valid(data) {
		return encUTF8
	}
	if bytes.Contains(data, []byte{0x1b, '$'}) {
		return "iso-2022-jp"
	}
	for _, c := range candidates {
		if _, ok := decodeStrict(c.enc, data); ok {
			return c.name
		}
	}
	return ""
}

func bomEncoding(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return encUTF8
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return encUTF16LE
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return encUTF16BE
	}
	return ""
}

func lookup(name string) (encoding.Encoding, error) {
	switch name {
	case encUTF8:
		return unicode.UTF8BOM, nil
	case encUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), nil
	case encUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), nil
	case "iso-2022-jp":
		return japanese.ISO2022JP, nil
	}
	for _, c := range candidates {
		if c.name == name {
			return c.enc, nil
		}
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// decodeStrict decodes data and reports failure when the decoder errors or
// introduces replacement characters not present in the input.
func decodeStrict(enc encoding.Encoding, data []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	if bytes.Count(out, []byte("\uFFFD")) > bytes.Count(data, []byte("\uFFFD")) {
		return "", false
	}
	return string(out), true
}

// Decode converts data to a UTF-8 string and names the encoding used. It
// tries the declared or detected encoding, then UTF-8 with replacement, then
// Latin-1, which accepts any byte sequence. It never fails.
func Decode(data []byte, declared string) (string, string) {
	if name := Detect(data, declared); name != "" {
		if enc, err := lookup(name); err == nil {
			if s, ok := decodeStrict(enc, data); ok {
				return s, name
			}
		}
	}
	if invalidRatio(data) <= 0.5 {
		return strings.ToValidUTF8(string(data), "\uFFFD"), encUTF8
	}
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(s), encLatin1
}

// invalidRatio is the share of bytes that start an invalid UTF-8 sequence.
func invalidRatio(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	bad := 0
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			bad++
		}
		i += size
	}
	return float64(bad) / float64(len(data))
}

// CharsetReader adapts an XML-declared charset to UTF-8. It plugs into
// xml.Decoder.CharsetReader.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := lookup(strings.ToLower(label))
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}

// Issue is one encoding anomaly found in decoded text.
type Issue struct {
	Kind   string
	Detail string
}

func (i Issue) String() string { return i.Kind + ": " + i.Detail }

var mojibakePatterns = []struct {
	pattern, detail string
}{
	{"Ã", "possible UTF-8 text decoded as Latin-1"},
	{"â€", "possible UTF-8 quotes decoded incorrectly"},
	{"Â", "possible encoding mismatch"},
}

// Validate reports replacement characters, mojibake patterns, a control
// character share above 1% and null bytes.
func Validate(text string) []Issue {
	var issues []Issue
	if n := strings.Count(text, "\uFFFD"); n > 0 {
		issues = append(issues, Issue{"replacement", fmt.Sprintf("%d replacement character(s)", n)})
	}
	for _, p := range mojibakePatterns {
		if strings.Contains(text, p.pattern) {
			issues = append(issues, Issue{"mojibake", p.detail})
		}
	}
	controls, total := 0, 0
	for _, r := range text {
		total++
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			controls++
		}
	}
	if float64(controls) > float64(total)*0.01 {
		issues = append(issues, Issue{"control", fmt.Sprintf("%d control character(s)", controls)})
	}
	if n := strings.Count(text, "\x00"); n > 0 {
		issues = append(issues, Issue{"null", fmt.Sprintf("%d null byte(s)", n)})
	}
	return issues
}

// Normalize composes text to NFC and strips null bytes and control
// characters other than newline, carriage return and tab.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, text)
}

// Normalizer validates and normalizes every text fragment an extractor
// produces, logging anomalies without failing.
type Normalizer struct {
	logger *slog.Logger
}

// New returns a Normalizer logging to logger, or slog.Default when nil.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Text validates s, logs each issue under source and returns the
// normalized form.
func (n *Normalizer) Text(source, s string) string {
	if s == "" {
		return s
	}
	for _, issue := range Validate(s) {
		n.logger.Warn("encoding issue", "source", source, "kind", issue.Kind, "detail", issue.Detail)
	}
	return Normalize(s)
}

// Bytes decodes raw bytes with fallback, then validates and normalizes.
func (n *Normalizer) Bytes(source string, data []byte, declared string) string {
	s, used := Decode(data, declared)
	n.logger.Debug("decoded text", "source", source, "encoding", used)
	return n.Text(source, s)
}
