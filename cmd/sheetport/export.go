package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetport/internal/record"
)

func newExportCmd(g *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export DATA.json",
		Short: "Write a JSON dataset to a workbook",
		Long: `Write a JSON dataset to an .xlsx workbook, one sheet per catalog table.

DATA.json maps table names to an array of records or, for object tables, a
single object. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}

			svc, err := newService(g)
			if err != nil {
				return err
			}

			var data map[string]record.TableData
			if err := readJSON(cmd, args[0], &data); err != nil {
				return err
			}

			b, err := svc.Export(cmd.Context(), data, svc.ResolveLocale(g.locale, ""))
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write xlsx: %w", err)
			}

			slog.Info("workbook written", "file", out, "tables", len(data), "bytes", len(b))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	addCatalogFlags(cmd, g)
	cmd.Flags().StringVarP(&out, "out", "o", "", "workbook file to write (required)")
	return cmd
}
