package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc2md/pkg/types"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetEnvPrefix("DOC2MD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	require.NoError(t, setDefaults(v, types.DefaultConversionConfig()))
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newViper(t))
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConversionConfig(), cfg)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc2md.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output:
  output_dir: build/md
  table_style: grid
images:
  ocr_language: jpn
workers: 2
`), 0o644))
	t.Setenv("DOC2MD_WORKERS", "6")
	t.Setenv("DOC2MD_OUTPUT_HEADING_OFFSET", "1")
	t.Setenv("DOC2MD_LOG_FILE", "/tmp/doc2md.log")

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "build/md", cfg.Output.OutputDir)
	assert.Equal(t, types.TableGrid, cfg.Output.TableStyle)
	assert.Equal(t, 1, cfg.Output.HeadingOffset)
	assert.Equal(t, "jpn", cfg.Images.OCRLanguage)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, "/tmp/doc2md.log", cfg.LogFile)
	assert.True(t, cfg.Output.IncludeMetadata, "unset keys keep their defaults")
}

func TestLoadConfigRejectsTableStyle(t *testing.T) {
	v := newViper(t)
	v.Set("output.table_style", "html")
	_, err := loadConfig(v)
	assert.ErrorContains(t, err, "invalid table_style")
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc2md.yaml")
	require.NoError(t, writeDefaultConfig(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg types.ConversionConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, types.DefaultConversionConfig(), cfg)

	assert.ErrorContains(t, writeDefaultConfig(path, false), "already exists")
	assert.NoError(t, writeDefaultConfig(path, true))
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"b.pdf", "a.docx", "notes.txt", "~$a.docx",
		filepath.Join("sub", "c.xlsx"),
		filepath.Join(".doc2md", "old.pdf"),
	} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	got, err := expandInputs([]string{"single.docx", dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"single.docx",
		filepath.Join(dir, "a.docx"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "sub", "c.xlsx"),
	}, got)
}

func TestNewLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "run.log")
	logger, closeLog, err := newLogger("debug", logFile)
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")
	closeLog()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello k=v")

	_, _, err = newLogger("loud", "")
	assert.ErrorContains(t, err, "invalid log level")
}
