// Package tabular moves records between schema-typed collections and
// spreadsheet workbooks.
//
// Import works on raw cell matrices (RawWorkbook) produced by a reader such
// as the xlsx package; export writes into any Workbook container. Both are
// driven by a schema.Catalog passed in explicitly.
//
// # Lossy rules
//
// Round-tripping a dataset through a workbook is consistent except that
// numbers are rounded to 4 decimal places, date/time values are truncated
// to the minute, and numeric cells that are not numbers become null.
package tabular

import "context"

// RawWorkbook maps sheet names to cell matrices. Cells are nil, bool, a Go
// numeric type (float64 may be NaN), string, or time.Time.
type RawWorkbook map[string][][]any

// Workbook is the container the exporter writes into.
type Workbook interface {
	CreateSheet(name string) (Sheet, error)
	// Serialize renders the finished workbook. It is called once, after
	// every sheet has been written.
	Serialize(ctx context.Context) ([]byte, error)
}

// Sheet receives rows in order.
type Sheet interface {
	AppendRows(rows [][]any) error
}
