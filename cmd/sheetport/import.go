package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetport/internal/core"
)

func newImportCmd(g *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "import FILE.xlsx",
		Short: "Read a workbook into a JSON dataset",
		Long: `Read every catalog table from an .xlsx workbook and print the dataset as JSON.

Array tables are read from the sheet named after the table, using the header
row to name fields. Object tables are read as (key, value) rows; keys may be
field names or their titles in --locale.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
				return fmt.Errorf("%w: %s", core.ErrUnsupportedFile, path)
			}

			svc, err := newService(g)
			if err != nil {
				return err
			}

			fh, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open workbook: %w", err)
			}
			defer fh.Close()

			ds, err := svc.ReadWorkbook(cmd.Context(), fh, svc.ResolveLocale(g.locale, ""))
			if err != nil {
				return err
			}
			slog.Info("workbook read", "file", path, "tables", len(ds), "rows", ds.RowCount())

			return writeJSON(cmd.OutOrStdout(), out, ds)
		},
	}

	addCatalogFlags(cmd, g)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write JSON to this file instead of stdout")
	return cmd
}
