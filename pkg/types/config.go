package types

// TableStyle selects how tables are laid out in Markdown.
type TableStyle string

const (
	// TablePipe emits compact pipe tables.
	TablePipe TableStyle = "pipe"
	// TableGrid emits pipe tables padded to aligned column widths.
	TableGrid TableStyle = "grid"
)

// OutputConfig holds settings for where and how Markdown is written.
type OutputConfig struct {
	// OutputDir is the directory receiving {stem}.md and {stem}/images/.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// HeadingOffset is added to every heading level before clamping to [1,6].
	HeadingOffset int `json:"heading_offset" yaml:"heading_offset"`

	// TableStyle selects pipe or grid table layout (default pipe).
	TableStyle TableStyle `json:"table_style" yaml:"table_style"`

	// IncludeMetadata controls the YAML frontmatter block.
	IncludeMetadata bool `json:"include_metadata" yaml:"include_metadata"`

	// Pretty runs the pretty-printer over the serialized output.
	Pretty bool `json:"pretty" yaml:"pretty"`

	// ValidateOutput runs the Markdown validator and logs its findings.
	ValidateOutput bool `json:"validate_output" yaml:"validate_output"`
}

// ImageConfig holds settings for the image collaborator.
type ImageConfig struct {
	// ExtractImages writes image bytes to {output_dir}/{stem}/images/.
	ExtractImages bool `json:"extract_images" yaml:"extract_images"`

	// EmbedBase64 embeds image bytes as data URLs instead of writing files.
	EmbedBase64 bool `json:"embed_images_base64" yaml:"embed_images_base64"`

	// PreserveFilenames keeps source image names instead of image_NNN.
	PreserveFilenames bool `json:"preserve_filenames" yaml:"preserve_filenames"`

	// EnableOCR runs the OCR engine over every written image.
	EnableOCR bool `json:"enable_ocr" yaml:"enable_ocr"`

	// OCRLanguage is passed to tesseract as -l (default "eng+jpn").
	OCRLanguage string `json:"ocr_language" yaml:"ocr_language"`

	// OCRImage is the container image running tesseract.
	OCRImage string `json:"ocr_image" yaml:"ocr_image"`
}

// ConversionConfig holds all settings for a conversion run.
type ConversionConfig struct {
	Output OutputConfig `json:"output" yaml:"output"`
	Images ImageConfig  `json:"images" yaml:"images"`

	// PreviewMode returns only the first PreviewLines lines and writes nothing.
	PreviewMode  bool `json:"preview_mode" yaml:"preview_mode"`
	PreviewLines int  `json:"preview_lines" yaml:"preview_lines"`

	// DryRun performs extraction and serialization without writing files.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	// MaxFileSizeMB rejects larger inputs (default 100).
	MaxFileSizeMB int `json:"max_file_size_mb" yaml:"max_file_size_mb"`

	// Workers bounds concurrent document conversions in batch mode.
	Workers int `json:"workers" yaml:"workers"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// LogFile optionally redirects logs to a file.
	LogFile string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
}

// DefaultConversionConfig returns the settings used when no config file or
// flag overrides them.
func DefaultConversionConfig() ConversionConfig {
	return ConversionConfig{
		Output: OutputConfig{
			OutputDir:       "output",
			TableStyle:      TablePipe,
			IncludeMetadata: true,
			Pretty:          true,
			ValidateOutput:  true,
		},
		Images: ImageConfig{
			ExtractImages: true,
			OCRLanguage:   "eng+jpn",
			OCRImage:      "tesseractshadow/tesseract4re:latest",
		},
		PreviewLines:  50,
		MaxFileSizeMB: 100,
		Workers:       1,
		LogLevel:      "info",
	}
}
