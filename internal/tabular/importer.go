package tabular

import (
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetport/internal/record"
	"github.com/JonMunkholm/sheetport/internal/schema"
)

type importConfig struct {
	locale string
}

// ImportOption configures ImportWorkbook.
type ImportOption func(*importConfig)

// WithLocale sets the locale used to resolve display titles back to field
// names in array headers and object keys. The catalog default is always
// tried as well.
func WithLocale(locale string) ImportOption {
	return func(c *importConfig) { c.locale = locale }
}

// ImportWorkbook converts raw sheets into records for every table the
// catalog declares. A table whose sheet is missing yields an empty slice.
//
// Array tables treat row 0 as the header and map every later row's cells to
// the fields the header names (see headerFields); all-empty rows are
// skipped. Object tables read each row as a
// (key, value) pair and produce one single-field record per row.
func ImportWorkbook(raw RawWorkbook, catalog schema.Catalog, opts ...ImportOption) record.Dataset {
	cfg := importConfig{locale: catalog.DefaultLocale()}
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make(record.Dataset, len(catalog.Tables()))
	for _, table := range catalog.Tables() {
		rows, ok := findSheet(raw, table)
		if !ok {
			slog.Debug("import: no sheet for table", "table", table)
			out[table] = []record.Record{}
			continue
		}

		switch catalog.TableType(table) {
		case schema.TableObject:
			out[table] = importObject(rows, table, catalog, cfg)
		default:
			out[table] = importArray(rows, table, catalog, cfg)
		}
	}
	return out
}

// findSheet looks a sheet up by exact name, then case-insensitively.
func findSheet(raw RawWorkbook, table string) ([][]any, bool) {
	if rows, ok := raw[table]; ok {
		return rows, true
	}
	for name, rows := range raw {
		if strings.EqualFold(name, table) {
			return rows, true
		}
	}
	return nil, false
}

func importArray(rows [][]any, table string, catalog schema.Catalog, cfg importConfig) []record.Record {
	if len(rows) == 0 {
		return []record.Record{}
	}
	columns := headerFields(rows[0], table, catalog, cfg.locale)
	types := make([]schema.FieldType, len(columns))
	for i, f := range columns {
		if f != "" {
			types[i] = catalog.FieldType(table, f)
		}
	}

	out := make([]record.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		r := make(record.Record, len(columns))
		for j, cell := range row {
			if j >= len(columns) {
				break
			}
			if columns[j] == "" {
				continue
			}
			r[columns[j]] = Coerce(cell, types[j])
		}
		out = append(out, r)
	}
	return out
}

// headerFields maps each header cell to the field it names, by field name
// or by title in the import or default locale. Unresolved cells map to "".
// A header that resolves no cell at all falls back to the catalog's field
// order, so sheets with free-form headers still import by position.
func headerFields(header []any, table string, catalog schema.Catalog, locale string) []string {
	keys := labelIndex(table, catalog, locale)

	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for j, cell := range header {
		name, ok := keys.resolve(cellText(cell))
		if !ok || seen[name] {
			continue
		}
		out[j] = name
		seen[name] = true
	}
	if len(seen) == 0 {
		slog.Debug("import: header unresolved, mapping by position", "table", table)
		return catalog.FieldNames(table)
	}
	return out
}

func importObject(rows [][]any, table string, catalog schema.Catalog, cfg importConfig) []record.Record {
	keys := labelIndex(table, catalog, cfg.locale)

	out := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(cellText(row[0]))
		if key == "" {
			continue
		}
		if name, ok := keys.resolve(key); ok {
			key = name
		}

		var value any
		if len(row) > 1 {
			value = row[1]
		}
		out = append(out, record.Record{key: Coerce(value, catalog.FieldType(table, key))})
	}
	return out
}

// keyIndex resolves sheet labels (field names or display titles) to field
// names: exactly first, then case-insensitively.
type keyIndex struct {
	exact  map[string]string
	folded map[string]string
}

// labelIndex indexes a table's field names and their titles in the
// default locale and locale. Names win over titles when they collide.
func labelIndex(table string, catalog schema.Catalog, locale string) keyIndex {
	fields := catalog.FieldNames(table)
	idx := keyIndex{
		exact:  make(map[string]string, len(fields)*3),
		folded: make(map[string]string, len(fields)*3),
	}
	add := func(label, field string) {
		idx.exact[label] = field
		idx.folded[strings.ToLower(label)] = field
	}
	for _, loc := range []string{catalog.DefaultLocale(), locale} {
		for _, f := range fields {
			add(catalog.FieldTitle(table, f, loc), f)
		}
	}
	for _, f := range fields {
		add(f, f)
	}
	return idx
}

func (k keyIndex) resolve(label string) (string, bool) {
	if label == "" {
		return "", false
	}
	if name, ok := k.exact[label]; ok {
		return name, true
	}
	name, ok := k.folded[strings.ToLower(label)]
	return name, ok
}

func isEmptyRow(row []any) bool {
	for _, cell := range row {
		if cellText(cell) != "" {
			return false
		}
	}
	return true
}

// cellText renders a raw cell for key lookups and emptiness checks.
func cellText(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		return FormatDate(v)
	default:
		s, _ := record.FromAny(v).Text()
		return s
	}
}
