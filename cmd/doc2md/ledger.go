// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/doc2md/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "List the conversions recorded for the output directory",
	Long: `Ledger prints every source file recorded in {output_dir}/.doc2md/ledger.db
with its status and counts. --export also writes the entries to
{output_dir}/.doc2md/ledger.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		l, err := ledger.Open(cfg.Output.OutputDir)
		if err != nil {
			return err
		}
		defer l.Close()

		ctx := context.Background()
		if export, _ := cmd.Flags().GetBool("export"); export {
			path, err := l.ExportYAML(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", path)
			return nil
		}

		entries, err := l.List(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No conversions recorded.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STATUS\tFORMAT\tSECTIONS\tIMAGES\tCONVERTED\tSOURCE")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
				e.Status, e.Format, e.Sections, e.Images,
				e.ConvertedAt.Local().Format("2006-01-02 15:04"), e.SourcePath)
		}
		return tw.Flush()
	},
}

func init() {
	ledgerCmd.Flags().Bool("export", false, "write the entries to ledger.yaml")
	rootCmd.AddCommand(ledgerCmd)
}
