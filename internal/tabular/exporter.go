package tabular

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/JonMunkholm/sheetport/internal/record"
	"github.com/JonMunkholm/sheetport/internal/schema"
)

type exportConfig struct {
	locale string
}

// ExportOption configures ExportWorkbook.
type ExportOption func(*exportConfig)

// WithExportLocale sets the locale of header titles. Defaults to the
// catalog's default locale.
func WithExportLocale(locale string) ExportOption {
	return func(c *exportConfig) { c.locale = locale }
}

// ExportWorkbook writes every visible table present in data into wb, then
// serializes the workbook and returns its bytes.
//
// Tables are written in catalog order; names that the catalog does not
// declare are skipped. Array tables get a header row of display titles and
// one row per record over the visible fields. An array table with no records
// gets a header-only sheet when it declares required fields, and no sheet
// otherwise. Object tables get one (title, value) row per visible property.
//
// Serialization failure is returned to the caller, as is any failure of the
// container while sheets are written.
func ExportWorkbook(ctx context.Context, wb Workbook, data map[string]record.TableData, catalog schema.Catalog, opts ...ExportOption) ([]byte, error) {
	cfg := exportConfig{locale: catalog.DefaultLocale()}
	for _, opt := range opts {
		opt(&cfg)
	}

	declared := make(map[string]bool)
	for _, table := range catalog.Tables() {
		declared[table] = true

		td, ok := data[table]
		if !ok {
			continue
		}
		if !catalog.TableVisible(table) {
			slog.Debug("export: skipping hidden table", "table", table)
			continue
		}

		var err error
		switch catalog.TableType(table) {
		case schema.TableObject:
			err = exportObject(wb, table, td.Merged(), catalog, cfg)
		default:
			err = exportArray(wb, table, td.List(), catalog, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("export workbook: table %s: %w", table, err)
		}
	}

	for _, table := range undeclared(data, declared) {
		slog.Debug("export: skipping undeclared table", "table", table)
	}

	b, err := wb.Serialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("export workbook: serialize: %w", err)
	}
	return b, nil
}

// VisibleFields returns the table's field names that are visible, in
// catalog order.
func VisibleFields(table string, catalog schema.Catalog) []string {
	var out []string
	for _, f := range catalog.FieldNames(table) {
		if catalog.FieldVisible(table, f) {
			out = append(out, f)
		}
	}
	return out
}

func exportArray(wb Workbook, table string, records []record.Record, catalog schema.Catalog, cfg exportConfig) error {
	if len(records) == 0 && len(catalog.RequiredFields(table)) == 0 {
		slog.Debug("export: skipping empty table", "table", table)
		return nil
	}

	columns := VisibleFields(table, catalog)
	rows := make([][]any, 0, len(records)+1)

	header := make([]any, len(columns))
	for i, f := range columns {
		header[i] = catalog.FieldTitle(table, f, cfg.locale)
	}
	rows = append(rows, header)

	for _, r := range records {
		row := make([]any, len(columns))
		for i, f := range columns {
			row[i] = CellValue(r[f])
		}
		rows = append(rows, row)
	}

	return writeSheet(wb, table, rows)
}

func exportObject(wb Workbook, table string, obj record.Record, catalog schema.Catalog, cfg exportConfig) error {
	columns := VisibleFields(table, catalog)
	rows := make([][]any, 0, len(columns))
	for _, f := range columns {
		rows = append(rows, []any{catalog.FieldTitle(table, f, cfg.locale), CellValue(obj[f])})
	}
	return writeSheet(wb, table, rows)
}

func writeSheet(wb Workbook, name string, rows [][]any) error {
	sh, err := wb.CreateSheet(name)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := sh.AppendRows(rows); err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	return nil
}

// CellValue renders a Value as a spreadsheet cell: nil for Null, native
// bool/float64/string for scalars, compact JSON for arrays and objects.
func CellValue(v record.Value) any {
	switch v.Kind() {
	case record.KindNull:
		return nil
	case record.KindBool:
		b, _ := v.AsBool()
		return b
	case record.KindNumber:
		n, _ := v.AsNumber()
		return n
	case record.KindString:
		s, _ := v.AsString()
		return s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	}
}

func undeclared(data map[string]record.TableData, declared map[string]bool) []string {
	var out []string
	for table := range data {
		if !declared[table] {
			out = append(out, table)
		}
	}
	sort.Strings(out)
	return out
}
