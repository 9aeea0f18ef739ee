package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is one row or configuration object: field name to Value.
type Record map[string]Value

// Get returns the field value, or Null when the field is absent.
func (r Record) Get(field string) Value {
	return r[field]
}

// Clone returns a shallow copy. Values are immutable, so this is enough to
// make the copy independent.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Fields returns the record's field names in sorted order.
func (r Record) Fields() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether two records hold the same fields and values.
func (r Record) Equal(o Record) bool {
	if len(r) != len(o) {
		return false
	}
	for k, v := range r {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// FromMap converts a plain map into a Record.
func FromMap(m map[string]any) Record {
	r := make(Record, len(m))
	for k, v := range m {
		r[k] = FromAny(v)
	}
	return r
}

// Dataset holds imported records keyed by table name.
type Dataset map[string][]Record

// RowCount returns the total number of records across all tables.
func (d Dataset) RowCount() int {
	n := 0
	for _, rows := range d {
		n += len(rows)
	}
	return n
}

// Tables returns the table names in sorted order.
func (d Dataset) Tables() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TableData is the export input for one table: either a sequence of records
// (array tables) or a single object (object tables).
type TableData struct {
	Records []Record
	Object  Record
}

// Rows builds TableData for an array table.
func Rows(rs ...Record) TableData {
	return TableData{Records: rs}
}

// Single builds TableData for an object table.
func Single(r Record) TableData {
	return TableData{Object: r}
}

// IsObject reports whether the data was given as a single object.
func (t TableData) IsObject() bool {
	return t.Object != nil
}

// List returns the sequence form of the data. A single object becomes a
// one-record sequence.
func (t TableData) List() []Record {
	if t.Object != nil {
		return []Record{t.Object}
	}
	return t.Records
}

// Merged returns the object form of the data. When only records are held,
// their fields are merged in order, later records winning. This turns the
// importer's one-record-per-property shape back into a single object.
func (t TableData) Merged() Record {
	if t.Object != nil {
		return t.Object
	}
	out := make(Record)
	for _, r := range t.Records {
		for k, v := range r {
			out[k] = v
		}
	}
	return out
}

// MarshalJSON writes an object table as a JSON object and an array table as
// a JSON array.
func (t TableData) MarshalJSON() ([]byte, error) {
	if t.Object != nil {
		return json.Marshal(t.Object)
	}
	if t.Records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.Records)
}

// UnmarshalJSON accepts either a JSON array of objects or a single object.
func (t *TableData) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = TableData{}
		return nil
	}

	switch trimmed[0] {
	case '[':
		var rs []Record
		if err := json.Unmarshal(trimmed, &rs); err != nil {
			return fmt.Errorf("record: decode table rows: %w", err)
		}
		*t = TableData{Records: rs}
	case '{':
		var r Record
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return fmt.Errorf("record: decode table object: %w", err)
		}
		*t = TableData{Object: r}
	default:
		return fmt.Errorf("record: table data must be an array or object")
	}
	return nil
}

// FromDataset converts imported data into export input.
func FromDataset(d Dataset) map[string]TableData {
	out := make(map[string]TableData, len(d))
	for name, rows := range d {
		out[name] = Rows(rows...)
	}
	return out
}
