// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRuntime satisfies container.Runtime for engine tests.
type fakeRuntime struct {
	gotImage string
	gotArgs  []string
	gotInput []byte
	output   string
	err      error
}

func (f *fakeRuntime) Name() string { return "fake" }
func (f *fakeRuntime) Available(context.Context) bool { return true }
func (f *fakeRuntime) ImageExists(context.Context, string) error { return nil }
func (f *fakeRuntime) Run(_ context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	f.gotImage, f.gotArgs = image, args
	f.gotInput, _ = io.ReadAll(stdin)
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(stdout, f.output)
	return err
}

type stubEngine struct {
	text string
	err  error
}

func (s stubEngine) ExtractText(context.Context, []byte) (string, error) { return s.text, s.err }

func TestTesseractEngine(t *testing.T) {
	rt := &fakeRuntime{output: "  Invoice 42\n\n"}
	e := NewTesseract(rt, "tess:latest", "eng+jpn")

	text, err := e.ExtractText(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "Invoice 42", text)
	assert.Equal(t, "tess:latest", rt.gotImage)
	assert.Equal(t, []string{"tesseract", "stdin", "stdout", "-l", "eng+jpn"}, rt.gotArgs)
	assert.Equal(t, []byte("png"), rt.gotInput)
}

func TestTesseractEngineEmptyImage(t *testing.T) {
	rt := &fakeRuntime{output: "unused"}
	text, err := NewTesseract(rt, "tess", "").ExtractText(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Nil(t, rt.gotArgs)
}

func TestTesseractEngineError(t *testing.T) {
	rt := &fakeRuntime{err: errors.New("exit status 1")}
	_, err := NewTesseract(rt, "tess", "eng").ExtractText(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract")
}

func TestSafe(t *testing.T) {
	tests := []struct {
		name   string
		engine Engine
		want   string
	}{
		{"nil engine", nil, ""},
		{"text trimmed", stubEngine{text: " hello \n"}, "hello"},
		{"failure swallowed", stubEngine{err: errors.New("boom")}, ""},
		{"no text", stubEngine{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Safe(context.Background(), tt.engine, []byte("img"), nil))
		})
	}
}
