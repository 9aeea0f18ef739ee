package tabular

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/sheetport/internal/schema"
)

const testCatalogJSON = `{
  "defaultLocale": "en",
  "tables": [
    {
      "name": "people",
      "type": "array",
      "required": ["name"],
      "properties": [
        {"name": "age", "type": "integer", "title": {"en": "Age", "de": "Alter"}},
        {"name": "name", "type": "string", "title": {"en": "Name"}},
        {"name": "joined", "type": "date", "title": {"en": "Joined"}},
        {"name": "tags", "type": "array", "title": {"en": "Tags"}},
        {"name": "internalId", "type": "string", "visible": false}
      ]
    },
    {
      "name": "settings",
      "type": "object",
      "properties": [
        {"name": "theme", "type": "string", "title": {"en": "Theme", "de": "Thema"}},
        {"name": "pageSize", "type": "number", "title": {"en": "Page size"}},
        {"name": "secret", "type": "string", "visible": false}
      ]
    },
    {
      "name": "notes",
      "type": "array",
      "properties": [{"name": "text", "type": "string"}]
    },
    {
      "name": "audit",
      "type": "array",
      "visible": false,
      "properties": [{"name": "event", "type": "string"}]
    }
  ]
}`

func testCatalog(t *testing.T) *schema.JSONCatalog {
	t.Helper()
	c, err := schema.ParseCatalog([]byte(testCatalogJSON))
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	return c
}

// fakeWorkbook records what the exporter writes.
type fakeWorkbook struct {
	order        []string
	sheets       map[string]*fakeSheet
	serializeErr error
	createErr    error
	serialized   int
}

type fakeSheet struct {
	rows [][]any
}

func newFakeWorkbook() *fakeWorkbook {
	return &fakeWorkbook{sheets: make(map[string]*fakeSheet)}
}

func (w *fakeWorkbook) CreateSheet(name string) (Sheet, error) {
	if w.createErr != nil {
		return nil, w.createErr
	}
	sh := &fakeSheet{}
	w.sheets[name] = sh
	w.order = append(w.order, name)
	return sh, nil
}

func (w *fakeWorkbook) Serialize(ctx context.Context) ([]byte, error) {
	w.serialized++
	if w.serializeErr != nil {
		return nil, w.serializeErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte("xlsx"), nil
}

func (s *fakeSheet) AppendRows(rows [][]any) error {
	s.rows = append(s.rows, rows...)
	return nil
}

var errBoom = errors.New("boom")
