package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetport/internal/config"
	"github.com/JonMunkholm/sheetport/internal/filter"
	"github.com/JonMunkholm/sheetport/internal/record"
	"github.com/JonMunkholm/sheetport/internal/schema"
	"github.com/JonMunkholm/sheetport/internal/sheet"
	"github.com/JonMunkholm/sheetport/internal/store"
	"github.com/JonMunkholm/sheetport/internal/tabular"
	"github.com/JonMunkholm/sheetport/internal/xlsx"
)

const serviceCatalogJSON = `{
  "defaultLocale": "en",
  "tables": [
    {"name": "people", "type": "array", "title": {"en": "People", "de": "Personen"},
     "required": ["name"],
     "properties": [
       {"name": "name", "type": "string", "title": {"en": "Name"}},
       {"name": "age", "type": "integer", "title": {"en": "Age", "de": "Alter"}},
       {"name": "secret", "type": "string", "visible": false}
     ]},
    {"name": "settings", "type": "object",
     "properties": [{"name": "theme", "type": "string", "title": {"en": "Theme", "de": "Thema"}}]}
  ]
}`

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{MaxFileSize: 1 << 20, Timeout: time.Minute},
		Export: config.ExportConfig{MaxConcurrent: 2, MaxWaitTime: 50 * time.Millisecond, Timeout: time.Minute},
	}
}

// stubReader returns a fixed raw workbook regardless of input.
func stubReader(raw tabular.RawWorkbook, err error) Option {
	return WithWorkbookReader(func(ctx context.Context, r io.Reader) (tabular.RawWorkbook, error) {
		if _, rerr := io.ReadAll(r); rerr != nil {
			return nil, rerr
		}
		return raw, err
	})
}

func newTestService(t *testing.T, opts ...Option) (*Service, *store.Memory) {
	t.Helper()
	catalog, err := schema.ParseCatalog([]byte(serviceCatalogJSON))
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	mem := store.NewMemory()
	return NewService(catalog, mem, testConfig(), opts...), mem
}

var peopleSheet = tabular.RawWorkbook{
	"people": {
		{"Name", "Age"},
		{"Ada", 36.0},
		{"Grace", "85"},
		{"Linus", "n/a"},
	},
	"settings": {
		{"Thema", "dark"},
	},
}

// ----------------------------------------------------------------------------
// Catalog Tests
// ----------------------------------------------------------------------------

func TestService_Tables(t *testing.T) {
	svc, _ := newTestService(t)

	tables := svc.Tables("de")
	if len(tables) != 2 {
		t.Fatalf("Tables() returned %d tables, want 2", len(tables))
	}

	people := tables[0]
	if people.Name != "people" || people.Title != "Personen" || people.Type != schema.TableArray {
		t.Errorf("people = %+v", people)
	}
	if len(people.Fields) != 3 {
		t.Fatalf("people fields = %+v", people.Fields)
	}
	if f := people.Fields[0]; f.Name != "name" || !f.Required || f.Title != "Name" {
		t.Errorf("field 0 = %+v", f)
	}
	if f := people.Fields[1]; f.Title != "Alter" || f.Type != schema.FieldInteger {
		t.Errorf("field 1 = %+v", f)
	}
	if f := people.Fields[2]; f.Visible {
		t.Errorf("secret field should be hidden: %+v", f)
	}
}

func TestService_ResolveLocale(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name     string
		explicit string
		accept   string
		want     string
	}{
		{name: "explicit wins", explicit: "fr", accept: "de", want: "fr"},
		{name: "accept header", accept: "de-CH,de;q=0.9,en;q=0.5", want: "de"},
		{name: "default", want: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.ResolveLocale(tt.explicit, tt.accept); got != tt.want {
				t.Errorf("ResolveLocale(%q, %q) = %q, want %q", tt.explicit, tt.accept, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Import Tests
// ----------------------------------------------------------------------------

func TestService_Import(t *testing.T) {
	svc, mem := newTestService(t, stubReader(peopleSheet, nil))
	ctx := context.Background()

	res, err := svc.Import(ctx, "", "staff.xlsx", strings.NewReader("xlsx bytes"), "de")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Name != "staff" {
		t.Errorf("Name = %q, want staff", res.Name)
	}
	if res.Rows != 4 {
		t.Errorf("Rows = %d, want 4", res.Rows)
	}

	people := res.Data["people"]
	if len(people) != 3 {
		t.Fatalf("people = %v", people)
	}
	if !people[1]["age"].Equal(record.Number(85)) {
		t.Errorf("Grace age = %#v, want 85", people[1]["age"])
	}
	if !people[2]["age"].IsNull() {
		t.Errorf("Linus age = %#v, want null", people[2]["age"])
	}

	settings := res.Data["settings"]
	if len(settings) != 1 || !settings[0].Equal(record.Record{"theme": record.String("dark")}) {
		t.Errorf("settings = %v", settings)
	}

	stored, err := mem.Get(ctx, res.ID)
	if err != nil {
		t.Fatalf("stored dataset missing: %v", err)
	}
	if stored.Rows != 4 {
		t.Errorf("stored rows = %d", stored.Rows)
	}
}

func TestService_ImportErrors(t *testing.T) {
	readErr := errors.New("read workbook: zip: not a valid zip file")
	svc, _ := newTestService(t, stubReader(nil, readErr))
	ctx := context.Background()

	if _, err := svc.Import(ctx, "x", "data.csv", strings.NewReader(""), ""); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("Import(.csv) error = %v, want ErrUnsupportedFile", err)
	}
	if _, err := svc.Import(ctx, "x", "data.xlsx", nil, ""); !errors.Is(err, ErrNoFile) {
		t.Errorf("Import(nil) error = %v, want ErrNoFile", err)
	}
	if _, err := svc.Import(ctx, "x", "data.xlsx", strings.NewReader("junk"), ""); !errors.Is(err, readErr) {
		t.Errorf("Import(junk) error = %v, want read error", err)
	}
}

// ----------------------------------------------------------------------------
// Filter Tests
// ----------------------------------------------------------------------------

func TestService_FilterDataset(t *testing.T) {
	svc, _ := newTestService(t, stubReader(peopleSheet, nil))
	ctx := context.Background()

	res, err := svc.Import(ctx, "staff", "", strings.NewReader("x"), "")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	spec, err := filter.ParseSpec([]byte(`{"age":{"type":"range","value":[50,100]}}`))
	if err != nil {
		t.Fatalf("ParseSpec() error = %v", err)
	}

	got, err := svc.FilterDataset(ctx, res.ID, "people", FilterRequest{Filters: spec})
	if err != nil {
		t.Fatalf("FilterDataset() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("FilterDataset() = %v, want Grace only", got)
	}
	if s, _ := got[0]["name"].AsString(); s != "Grace" {
		t.Errorf("name = %q, want Grace", s)
	}

	got, err = svc.FilterDataset(ctx, res.ID, "people", FilterRequest{Query: "LIN"})
	if err != nil || len(got) != 1 {
		t.Errorf("query filter = %v, %v; want Linus", got, err)
	}

	if _, err := svc.FilterDataset(ctx, res.ID, "ghosts", FilterRequest{}); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("unknown table error = %v, want ErrTableNotFound", err)
	}
	if _, err := svc.FilterDataset(ctx, uuid.New(), "people", FilterRequest{}); !errors.Is(err, store.ErrDatasetNotFound) {
		t.Errorf("unknown dataset error = %v, want ErrDatasetNotFound", err)
	}
}

func TestService_FilterIgnoredFields(t *testing.T) {
	svc, _ := newTestService(t)
	records := []record.Record{
		{"name": record.String("Ada"), "note": record.String("admin")},
		{"name": record.String("Grace"), "note": record.String("user")},
	}

	got := svc.Filter(records, FilterRequest{Query: "adm", IgnoredFields: []string{"note"}})
	if len(got) != 0 {
		t.Errorf("Filter() = %v, want none when the only match is ignored", got)
	}
}

// ----------------------------------------------------------------------------
// Export Tests
// ----------------------------------------------------------------------------

type stubWorkbook struct {
	sheets []string
	closed bool
	err    error
}

type stubSheet struct{}

func (stubSheet) AppendRows([][]any) error { return nil }

func (w *stubWorkbook) CreateSheet(name string) (tabular.Sheet, error) {
	w.sheets = append(w.sheets, name)
	return stubSheet{}, nil
}

func (w *stubWorkbook) Serialize(ctx context.Context) ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return []byte(strings.Join(w.sheets, ",")), ctx.Err()
}

func (w *stubWorkbook) Close() error {
	w.closed = true
	return nil
}

func TestService_Export(t *testing.T) {
	wb := &stubWorkbook{}
	svc, _ := newTestService(t, WithWorkbookFactory(func() tabular.Workbook { return wb }))

	data := map[string]record.TableData{
		"people":   record.Rows(record.Record{"name": record.String("Ada")}),
		"settings": record.Single(record.Record{"theme": record.String("dark")}),
	}

	out, err := svc.Export(context.Background(), data, "en")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if string(out) != "people,settings" {
		t.Errorf("Export() = %q", out)
	}
	if !wb.closed {
		t.Error("workbook was not closed")
	}
	if got := svc.ExportLimiterStatus().Active; got != 0 {
		t.Errorf("active exports after Export = %d, want 0", got)
	}
}

func TestService_ExportSerializeError(t *testing.T) {
	boom := errors.New("disk full")
	svc, _ := newTestService(t, WithWorkbookFactory(func() tabular.Workbook { return &stubWorkbook{err: boom} }))

	_, err := svc.Export(context.Background(), map[string]record.TableData{}, "en")
	if !errors.Is(err, boom) {
		t.Fatalf("Export() error = %v, want %v", err, boom)
	}
	if MapError(err).Code != "EXP002" {
		t.Errorf("MapError(%v) = %s, want EXP002", err, MapError(err).Code)
	}
}

func TestService_ExportBusy(t *testing.T) {
	svc, _ := newTestService(t, WithWorkbookFactory(func() tabular.Workbook { return &stubWorkbook{} }))

	// Occupy every slot.
	for i := 0; i < 2; i++ {
		if err := svc.limiter.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
	}
	defer svc.limiter.Release()
	defer svc.limiter.Release()

	_, err := svc.Export(context.Background(), map[string]record.TableData{}, "en")
	if !errors.Is(err, ErrTooManyExports) {
		t.Errorf("Export() error = %v, want ErrTooManyExports", err)
	}
}

func TestService_ExportDatasetRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	catalog := svc.Catalog()
	src := tabular.RawWorkbook{
		"people": {{"Name", "Age"}, {"Ada", 36.123456}},
	}
	info, err := svc.datasets.Save(ctx, "staff", tabular.ImportWorkbook(src, catalog))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, name, err := svc.ExportDataset(ctx, info.ID, "en")
	if err != nil {
		t.Fatalf("ExportDataset() error = %v", err)
	}
	if name != "staff" {
		t.Errorf("name = %q, want staff", name)
	}

	raw, err := xlsx.ReadWorkbook(ctx, bytes.NewReader(out))
	if err != nil {
		t.Fatalf("ReadWorkbook() error = %v", err)
	}
	rows := raw["people"]
	if len(rows) != 2 || rows[1][0] != "Ada" || rows[1][1] != 36.1235 {
		t.Errorf("exported people = %#v", rows)
	}
}

// ----------------------------------------------------------------------------
// Column Tests
// ----------------------------------------------------------------------------

func TestResolveColumn(t *testing.T) {
	tests := []struct {
		ref     string
		want    ColumnRef
		wantErr bool
	}{
		{ref: "1", want: ColumnRef{Number: 1, Letters: "A"}},
		{ref: "28", want: ColumnRef{Number: 28, Letters: "AB"}},
		{ref: "ab", want: ColumnRef{Number: 28, Letters: "AB"}},
		{ref: " XFD ", want: ColumnRef{Number: 16384, Letters: "XFD"}},
		{ref: "0", wantErr: true},
		{ref: "-3", wantErr: true},
		{ref: "A1", want: ColumnRef{Number: 1, Letters: "A"}},
		{ref: "c7", want: ColumnRef{Number: 3, Letters: "C"}},
		{ref: "A0", wantErr: true},
		{ref: "A1B", wantErr: true},
		{ref: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ResolveColumn(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, sheet.ErrInvalidColumn) {
					t.Errorf("ResolveColumn(%q) error = %v, want ErrInvalidColumn", tt.ref, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveColumn(%q) error = %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("ResolveColumn(%q) = %+v, want %+v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	cr := &countingReader{r: strings.NewReader("twelve bytes")}
	if _, err := io.Copy(io.Discard, cr); err != nil {
		t.Fatal(err)
	}
	if cr.n != 12 {
		t.Errorf("counted %d bytes, want 12", cr.n)
	}
}
