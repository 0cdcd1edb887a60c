package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notebrief/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump every backend workspace with its sources and notes to JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			b, err := ctx.newBackend(cfg, logger)
			if err != nil {
				return err
			}
			inv, err := export.Inventory(b)
			if err != nil {
				return err
			}

			notebooks, err := export.NewExporter(inv, logger).Collect(cmd.Context())
			if err != nil {
				return err
			}
			path := strings.TrimSpace(output)
			if path == "" {
				path = cfg.Paths.ExportFile
			}
			if err := export.WriteFile(path, notebooks); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if rendered := export.RenderNotes(notebooks); rendered != "" {
				fmt.Fprintln(out, rendered)
			} else if rendered := export.RenderSources(notebooks); rendered != "" {
				fmt.Fprintln(out, "No notes found; listing sources instead.")
				fmt.Fprintln(out, rendered)
			}
			notes, sources := export.Totals(notebooks)
			fmt.Fprintf(out, "Exported %d workspaces (%d sources, %d notes) to %s\n", len(notebooks), sources, notes, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Export file (defaults to paths.export_file)")
	return cmd
}
