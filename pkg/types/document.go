// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the format-agnostic document model shared by the
// extractors and the Markdown serializer, plus conversion configuration.
package types

import (
	"errors"
	"fmt"
)

// ErrHeadingLevel is returned when a heading is constructed with a level
// outside [1,6].
var ErrHeadingLevel = errors.New("heading level out of range")

// ErrContainer marks a source file that cannot be opened or is corrupt.
// Extractors wrap it; callers test with errors.Is.
var ErrContainer = errors.New("unreadable document container")

// ErrUnsupportedFormat is returned by the router for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported format")

// DocumentMetadata holds optional document properties. Empty strings are
// treated as absent.
type DocumentMetadata struct {
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	Author       string `json:"author,omitempty" yaml:"author,omitempty"`
	Created      string `json:"created,omitempty" yaml:"created,omitempty"`
	Modified     string `json:"modified,omitempty" yaml:"modified,omitempty"`
	SourceFormat string `json:"source_format,omitempty" yaml:"source_format,omitempty"`
}

// IsEmpty reports whether every field is empty.
func (m DocumentMetadata) IsEmpty() bool {
	return m.Title == "" && m.Author == "" && m.Created == "" && m.Modified == "" && m.SourceFormat == ""
}

// Heading is a section heading. Level is always within [1,6].
type Heading struct {
	Level int
	Text  string
}

// NewHeading validates level and returns a Heading.
func NewHeading(level int, text string) (*Heading, error) {
	if level < 1 || level > 6 {
		return nil, fmt.Errorf("%w: %d", ErrHeadingLevel, level)
	}
	return &Heading{Level: level, Text: text}, nil
}

// TextFormatting is the paragraph-level formatting.
type TextFormatting int

const (
	TextNormal TextFormatting = iota
	TextBold
	TextItalic
	TextBoldItalic
	TextCode
)

func (f TextFormatting) String() string {
	switch f {
	case TextBold:
		return "bold"
	case TextItalic:
		return "italic"
	case TextBoldItalic:
		return "bold_italic"
	case TextCode:
		return "code"
	default:
		return "normal"
	}
}

// Block is a section content block. The set of implementations is closed:
// Paragraph, Table, DocumentList, ImageReference, Link and CodeBlock.
type Block interface {
	block()
}

// Paragraph is a run of text with one formatting.
type Paragraph struct {
	Text       string
	Formatting TextFormatting
}

// Table is a header row plus data rows. Rows may be ragged; the serializer
// pads or truncates them to len(Headers).
type Table struct {
	Headers []string
	Rows    [][]string
}

// ListItem is one list entry. Nesting is expressed only by Level.
type ListItem struct {
	Text  string
	Level int
}

// DocumentList is a flat sequence of items with levels.
type DocumentList struct {
	Ordered bool
	Items   []ListItem
}

// ImageSource names which field drives image serialization.
type ImageSource int

const (
	ImageMissing ImageSource = iota
	ImageBase64
	ImageExtracted
	ImageSourcePath
)

// ImageReference describes an image found in a document. ExtractedPath and
// OCRText are the only fields set after extraction, by the image
// collaborator.
type ImageReference struct {
	SourcePath    string
	ExtractedPath string
	AltText       string
	OCRText       string
	Base64Data    string
	MIMEType      string
	PageNumber    int
}

// Source returns the field that takes priority when serializing.
func (img *ImageReference) Source() ImageSource {
	switch {
	case img.Base64Data != "":
		return ImageBase64
	case img.ExtractedPath != "":
		return ImageExtracted
	case img.SourcePath != "":
		return ImageSourcePath
	default:
		return ImageMissing
	}
}

// Link is a standalone hyperlink.
type Link struct {
	Text string
	URL  string
}

// CodeBlock is fenced code with an optional language tag.
type CodeBlock struct {
	Code     string
	Language string
}

func (*Paragraph) block()      {}
func (*Table) block()          {}
func (*DocumentList) block()   {}
func (*ImageReference) block() {}
func (*Link) block()           {}
func (*CodeBlock) block()      {}

// Section is an optional heading followed by content blocks.
type Section struct {
	Heading *Heading
	Content []Block
}

// IsEmpty reports whether the section has neither heading nor content.
func (s *Section) IsEmpty() bool {
	return s.Heading == nil && len(s.Content) == 0
}

// InternalDocument is the output of every extractor. Images indexes the same
// ImageReference values that appear in section content.
type InternalDocument struct {
	Metadata DocumentMetadata
	Sections []*Section
	Images   []*ImageReference
}

// AddImage appends img to both the section content and the document image
// index.
func (d *InternalDocument) AddImage(s *Section, img *ImageReference) {
	s.Content = append(s.Content, img)
	d.Images = append(d.Images, img)
}

// PendingImage pairs an image reference with the raw bytes an extractor
// pulled out of the source file.
type PendingImage struct {
	Ref  *ImageReference
	Data []byte
}

// ExtractResult is returned by every extractor.
type ExtractResult struct {
	Document *InternalDocument
	Images   []PendingImage
}

// Format identifies a supported source format.
type Format string

const (
	FormatDocx Format = "docx"
	FormatXlsx Format = "xlsx"
	FormatPDF  Format = "pdf"
)
