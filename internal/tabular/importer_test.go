package tabular

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/JonMunkholm/sheetport/internal/record"
	"github.com/JonMunkholm/sheetport/internal/schema"
)

func TestImportWorkbook_ArrayTable(t *testing.T) {
	catalog := testCatalog(t)
	raw := RawWorkbook{
		"people": {
			{"Name", "Age", "Joined", "Tags", "internalId"},
			{"  Ada ", 36.0, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), `["math"]`, "p-1"},
			{"Grace", "$1,234.567891", time.Date(2023, 1, 15, 9, 5, 0, 0, time.UTC)},
			{nil, "", ""},
			{"Linus", math.NaN(), nil, nil, "p-3", "extra cell"},
		},
	}

	got := ImportWorkbook(raw, catalog)["people"]

	want := []record.Record{
		{
			"name":       record.String("Ada"),
			"age":        record.Number(36),
			"joined":     record.String("2023-01-15"),
			"tags":       record.String(`["math"]`),
			"internalId": record.String("p-1"),
		},
		{
			"name":   record.String("Grace"),
			"age":    record.Number(1234.5679),
			"joined": record.String("2023-01-15 09:05"),
		},
		{
			"name":       record.String("Linus"),
			"age":        record.Null(),
			"joined":     record.Null(),
			"tags":       record.Null(),
			"internalId": record.String("p-3"),
		},
	}

	if len(got) != len(want) {
		t.Fatalf("ImportWorkbook() people has %d records, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("record %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestImportWorkbook_MissingSheets(t *testing.T) {
	catalog := testCatalog(t)

	got := ImportWorkbook(RawWorkbook{}, catalog)

	for _, table := range catalog.Tables() {
		rows, ok := got[table]
		if !ok {
			t.Errorf("table %q missing from result", table)
			continue
		}
		if rows == nil || len(rows) != 0 {
			t.Errorf("table %q = %v, want empty non-nil slice", table, rows)
		}
	}
}

func TestImportWorkbook_HeaderOnly(t *testing.T) {
	catalog := testCatalog(t)
	raw := RawWorkbook{"people": {{"Name", "Age"}}}

	got := ImportWorkbook(raw, catalog)["people"]
	if len(got) != 0 {
		t.Errorf("header-only sheet produced %d records, want 0", len(got))
	}
}

func TestImportWorkbook_SheetNameCaseInsensitive(t *testing.T) {
	catalog := testCatalog(t)
	raw := RawWorkbook{"People": {{"Name"}, {"Ada"}}}

	got := ImportWorkbook(raw, catalog)["people"]
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if s, _ := got[0]["name"].AsString(); s != "Ada" {
		t.Errorf("name = %q, want Ada", s)
	}
}

func TestImportWorkbook_UndeclaredSheetsIgnored(t *testing.T) {
	catalog := testCatalog(t)
	raw := RawWorkbook{"scratch": {{"a"}, {"b"}}}

	got := ImportWorkbook(raw, catalog)
	if _, ok := got["scratch"]; ok {
		t.Error("undeclared sheet should not appear in the dataset")
	}
}

func TestImportWorkbook_ObjectTable(t *testing.T) {
	catalog := testCatalog(t)

	tests := []struct {
		name   string
		locale string
		rows   [][]any
		want   []record.Record
	}{
		{
			name: "field names as keys",
			rows: [][]any{
				{"theme", "dark"},
				{"pageSize", "25.123456"},
			},
			want: []record.Record{
				{"theme": record.String("dark")},
				{"pageSize": record.Number(25.1235)},
			},
		},
		{
			name: "default locale titles as keys",
			rows: [][]any{
				{"Theme", " light "},
				{"Page size", 10.0},
			},
			want: []record.Record{
				{"theme": record.String("light")},
				{"pageSize": record.Number(10)},
			},
		},
		{
			name:   "localized titles as keys",
			locale: "de",
			rows: [][]any{
				{"Thema", "dark"},
			},
			want: []record.Record{
				{"theme": record.String("dark")},
			},
		},
		{
			name: "missing value and empty key",
			rows: [][]any{
				{"theme"},
				{"", "orphan"},
				{},
			},
			want: []record.Record{
				{"theme": record.Null()},
			},
		},
		{
			name: "unknown key kept as string field",
			rows: [][]any{
				{"colour", "red"},
			},
			want: []record.Record{
				{"colour": record.String("red")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []ImportOption
			if tt.locale != "" {
				opts = append(opts, WithLocale(tt.locale))
			}
			got := ImportWorkbook(RawWorkbook{"settings": tt.rows}, catalog, opts...)["settings"]

			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("record %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestImportWorkbook_HeaderResolvesColumns(t *testing.T) {
	catalog := testCatalog(t)

	tests := []struct {
		name string
		opts []ImportOption
		rows [][]any
		want record.Record
	}{
		{
			name: "reordered titles",
			rows: [][]any{{"Age", "Name"}, {36.0, "Ada"}},
			want: record.Record{"age": record.Number(36), "name": record.String("Ada")},
		},
		{
			name: "field names, any case",
			rows: [][]any{{"INTERNALID", "name"}, {"p-1", "Ada"}},
			want: record.Record{"internalId": record.String("p-1"), "name": record.String("Ada")},
		},
		{
			name: "locale titles",
			opts: []ImportOption{WithLocale("de")},
			rows: [][]any{{"Name", "Alter"}, {"Ada", "36"}},
			want: record.Record{"name": record.String("Ada"), "age": record.Number(36)},
		},
		{
			name: "unknown column skipped",
			rows: [][]any{{"Name", "Comment", "Age"}, {"Ada", "hi", 36.0}},
			want: record.Record{"name": record.String("Ada"), "age": record.Number(36)},
		},
		{
			name: "repeated column keeps first",
			rows: [][]any{{"Name", "name"}, {"Ada", "Grace"}},
			want: record.Record{"name": record.String("Ada")},
		},
		{
			name: "unresolved header maps by position",
			rows: [][]any{{"col1", "col2"}, {"Ada", 36.0}},
			want: record.Record{"name": record.String("Ada"), "age": record.Number(36)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ImportWorkbook(RawWorkbook{"people": tt.rows}, catalog, tt.opts...)["people"]
			if len(got) != 1 {
				t.Fatalf("got %d records, want 1: %v", len(got), got)
			}
			if !got[0].Equal(tt.want) {
				t.Errorf("record = %v, want %v", got[0], tt.want)
			}
		})
	}
}

func TestExportImport_HiddenFieldRoundTrip(t *testing.T) {
	catalog, err := schema.ParseCatalog([]byte(`{
	  "defaultLocale": "en",
	  "tables": [{"name": "items", "type": "array", "properties": [
	    {"name": "a", "type": "string"},
	    {"name": "secret", "type": "string", "visible": false},
	    {"name": "b", "type": "number", "title": {"en": "B value", "de": "B-Wert"}}
	  ]}]
	}`))
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}

	for _, locale := range []string{"en", "de"} {
		t.Run(locale, func(t *testing.T) {
			wb := newFakeWorkbook()
			data := map[string]record.TableData{
				"items": record.Rows(record.Record{"a": record.String("x"), "secret": record.String("s"), "b": record.Number(7)}),
			}
			if _, err := ExportWorkbook(context.Background(), wb, data, catalog, WithExportLocale(locale)); err != nil {
				t.Fatalf("ExportWorkbook() error = %v", err)
			}

			raw := RawWorkbook{"items": wb.sheets["items"].rows}
			got := ImportWorkbook(raw, catalog, WithLocale(locale))["items"]

			want := record.Record{"a": record.String("x"), "b": record.Number(7)}
			if len(got) != 1 || !got[0].Equal(want) {
				t.Errorf("round trip = %v, want [%v]", got, want)
			}
		})
	}
}
