package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetport/internal/config"
	"github.com/JonMunkholm/sheetport/internal/core"
	"github.com/JonMunkholm/sheetport/internal/logging"
	"github.com/JonMunkholm/sheetport/internal/schema"
	"github.com/JonMunkholm/sheetport/internal/store"
)

// Version is the release version (set via -ldflags).
var Version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	logLevel  string
	logFormat string
	catalog   string
	locale    string
}

// newRootCmd builds the command tree. Command output goes to stdout, logs
// and errors to stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "sheetport",
		Short: "Move catalog-described data between .xlsx workbooks and JSON",
		Long: `sheetport reads and writes .xlsx workbooks shaped by a JSON table catalog.

Examples:
  sheetport import people.xlsx --catalog catalog.json --out people.json
  sheetport export people.json --catalog catalog.json --out people.xlsx --locale de
  sheetport filter people.json --table people --query ada
  sheetport column 28 AB`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupWriter(stderr, g.logLevel, g.logFormat)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		newImportCmd(g),
		newExportCmd(g),
		newFilterCmd(g),
		newColumnCmd(),
	)

	return root
}

// execute runs the command tree with args and returns the process exit code.
// Failures are printed with the same user message and support code the
// HTTP API returns.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	if core.IsUserFacing(err) {
		fmt.Fprintln(stderr, core.FormatUserError(err))
	}
	return 1
}

// addCatalogFlags registers --catalog and --locale on cmd.
func addCatalogFlags(cmd *cobra.Command, g *globalFlags) {
	cmd.Flags().StringVar(&g.catalog, "catalog", os.Getenv("CATALOG_PATH"), "table catalog JSON file (default $CATALOG_PATH)")
	cmd.Flags().StringVar(&g.locale, "locale", "", "display locale for sheet titles (default: catalog default)")
}

// newService loads the catalog and builds a service backed by a throwaway
// in-memory store.
func newService(g *globalFlags) (*core.Service, error) {
	if g.catalog == "" {
		return nil, errors.New("load catalog: --catalog is required")
	}
	catalog, err := schema.LoadCatalog(g.catalog)
	if err != nil {
		return nil, err
	}
	return core.NewService(catalog, store.NewMemory(), cliConfig()), nil
}

// cliConfig is the service configuration for one-shot commands.
func cliConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{Timeout: 10 * time.Minute},
		Export: config.ExportConfig{MaxConcurrent: 1, MaxWaitTime: time.Second, Timeout: 10 * time.Minute},
	}
}

// writeJSON writes v as indented JSON to path, or to w when path is empty
// or "-".
func writeJSON(w io.Writer, path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	b = append(b, '\n')

	if path == "" || path == "-" {
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// readJSON decodes the JSON file at path ("-" for stdin) into v.
func readJSON(cmd *cobra.Command, path string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer fh.Close()
		r = fh
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
