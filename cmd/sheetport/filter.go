package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetport/internal/core"
	"github.com/JonMunkholm/sheetport/internal/filter"
	"github.com/JonMunkholm/sheetport/internal/record"
)

func newFilterCmd(g *globalFlags) *cobra.Command {
	var (
		table   string
		query   string
		filters string
		ignore  []string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "filter DATA.json",
		Short: "Select records by text query and field filters",
		Long: `Select records from a JSON file by free-text query and field filters.

DATA.json is either an array of records or a dataset as written by import,
in which case --table picks the table. Filters use the API wire format:

  {"age": {"type": "range", "value": [18, 65]},
   "active": {"type": "checkbox", "value": ["true"]},
   "joined": {"type": "daterange", "value": ["2020-01-01", "2020-12-31"]}}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if err := readJSON(cmd, args[0], &raw); err != nil {
				return err
			}
			records, err := selectRecords(raw, table)
			if err != nil {
				return err
			}

			var spec filter.Spec
			if strings.TrimSpace(filters) != "" {
				spec, err = filter.ParseSpec([]byte(filters))
				if err != nil {
					return fmt.Errorf("%w: %w", core.ErrInvalidFilter, err)
				}
			}

			kept := filter.Filter(records, query, spec, ignore...)
			if kept == nil {
				kept = []record.Record{}
			}
			return writeJSON(cmd.OutOrStdout(), out, kept)
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "table to filter when DATA.json is a dataset")
	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive text that some field must contain")
	cmd.Flags().StringVar(&filters, "filters", "", "JSON object of field filters")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "fields the text query does not search")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write JSON to this file instead of stdout")
	return cmd
}

// selectRecords accepts a record array or a dataset object keyed by table.
func selectRecords(raw json.RawMessage, table string) ([]record.Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rs []record.Record
		if err := json.Unmarshal(trimmed, &rs); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return rs, nil
	}

	if table == "" {
		return nil, fmt.Errorf("%w: --table is required for a dataset", core.ErrInvalidFilter)
	}
	var data map[string]record.TableData
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	td, ok := data[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTableNotFound, table)
	}
	if td.IsObject() {
		return []record.Record{td.Object}, nil
	}
	return td.Records, nil
}
