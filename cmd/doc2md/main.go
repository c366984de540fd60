// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the doc2md CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc2md/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the doc2md CLI.
var rootCmd = &cobra.Command{
	Use:   "doc2md",
	Short: "Convert Word, Excel and PDF documents to Markdown",
	Long: `doc2md converts .docx, .xlsx and .pdf files into Markdown. Each format is
read into one document model (sections, headings, paragraphs, tables, lists,
images, links, code) and serialized with context-aware escaping, so the
output renders the same text that was in the source.

Settings come from doc2md.yaml (current directory or ~/.config/doc2md/),
DOC2MD_* environment variables and command-line flags, in increasing order
of precedence.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./doc2md.yaml or ~/.config/doc2md/doc2md.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to this file instead of stderr")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("doc2md")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "doc2md"))
		}
	}

	viper.SetEnvPrefix("DOC2MD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := setDefaults(viper.GetViper(), types.DefaultConversionConfig()); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid defaults:", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every field of cfg as a viper default under its
// yaml key, so environment variables resolve for keys absent from the
// config file.
func setDefaults(v *viper.Viper, cfg types.ConversionConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return err
	}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			if sub, ok := val.(map[string]any); ok {
				walk(prefix+k+".", sub)
				continue
			}
			v.SetDefault(prefix+k, val)
		}
	}
	walk("", m)
	// log_file is omitted when empty; register it so DOC2MD_LOG_FILE works.
	v.SetDefault("log_file", cfg.LogFile)
	return nil
}

// loadConfig decodes the effective viper settings into a ConversionConfig
// using the struct's yaml tags. Environment values arrive as strings and
// are converted by the weakly typed decoder.
func loadConfig(v *viper.Viper) (types.ConversionConfig, error) {
	cfg := types.DefaultConversionConfig()
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return cfg, fmt.Errorf("decoding settings: %w", err)
	}
	switch cfg.Output.TableStyle {
	case types.TablePipe, types.TableGrid:
	default:
		return cfg, fmt.Errorf("invalid table_style %q (want pipe or grid)", cfg.Output.TableStyle)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
