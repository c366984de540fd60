// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeading(t *testing.T) {
	tests := []struct {
		level   int
		wantErr bool
	}{
		{level: 0, wantErr: true},
		{level: 1},
		{level: 6},
		{level: 7, wantErr: true},
		{level: -3, wantErr: true},
	}
	for _, tt := range tests {
		h, err := NewHeading(tt.level, "Title")
		if tt.wantErr {
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrHeadingLevel))
			assert.Nil(t, h)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.level, h.Level)
	}
}

func TestImageReferenceSource(t *testing.T) {
	tests := []struct {
		name string
		img  ImageReference
		want ImageSource
	}{
		{"base64 wins over paths", ImageReference{Base64Data: "AA==", ExtractedPath: "a.png", SourcePath: "b.png"}, ImageBase64},
		{"extracted before source", ImageReference{ExtractedPath: "a.png", SourcePath: "b.png"}, ImageExtracted},
		{"source only", ImageReference{SourcePath: "b.png"}, ImageSourcePath},
		{"nothing", ImageReference{AltText: "X"}, ImageMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.img.Source())
		})
	}
}

func TestAddImageSharesReference(t *testing.T) {
	doc := &InternalDocument{}
	sec := &Section{}
	doc.Sections = append(doc.Sections, sec)
	img := &ImageReference{SourcePath: "media/image1.png"}

	doc.AddImage(sec, img)
	doc.Images[0].ExtractedPath = "report/images/image_001.png"

	inSection, ok := sec.Content[0].(*ImageReference)
	require.True(t, ok)
	assert.Equal(t, "report/images/image_001.png", inSection.ExtractedPath)
}

func TestDefaultConversionConfig(t *testing.T) {
	cfg := DefaultConversionConfig()
	assert.Equal(t, 100, cfg.MaxFileSizeMB)
	assert.Equal(t, "eng+jpn", cfg.Images.OCRLanguage)
	assert.Equal(t, TablePipe, cfg.Output.TableStyle)
	assert.True(t, cfg.Output.IncludeMetadata)
	assert.Equal(t, 1, cfg.Workers)
}
