package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/questbank/internal/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the active taxonomy to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			tree, err := a.services.Taxonomy.GetFullTree(ctx)
			if err != nil {
				return err
			}
			items, err := a.services.Discipline.List(ctx, false)
			if err != nil {
				return err
			}
			rows := export.Rows(tree, export.DisciplineCodes(items), a.cfg.Taxonomy.PathSeparator)

			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOutput, err)
			}
			if err := export.WriteTaxonomyExcel(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d tags written to %s\n", len(rows), exportOutput)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "taxonomy.xlsx", "Output file")
}
