package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/doc2md/internal/convert"
	"github.com/pdiddy/doc2md/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversion tools over MCP on stdio",
	Long: `Serve runs a Model Context Protocol server on stdin/stdout exposing
doc2md_convert, doc2md_outline and doc2md_formats. Logs go to stderr or
the configured log file, never to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		logger, closeLog, err := newLogger(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		p := convert.New(cfg, logger)
		if cfg.Images.EnableOCR {
			p.OCR = setupOCR(ctx, cfg.Images, logger)
		}
		logger.Info("serving MCP on stdio", "version", version)
		return mcpserver.New(p, version).Run(ctx, &mcp.StdioTransport{})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
