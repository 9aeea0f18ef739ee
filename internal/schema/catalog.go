// Package schema describes the tables a workbook can hold: their shape
// (array of rows or a single object), field order, field types, visibility
// and localized display titles.
//
// The importer and exporter consume schemas through the read-only Catalog
// interface. JSONCatalog is the file-backed implementation.
package schema

// TableType is the shape of a table.
type TableType string

const (
	// TableArray tables hold one record per row under a header row.
	TableArray TableType = "array"
	// TableObject tables hold one (property, value) pair per row.
	TableObject TableType = "object"
)

// FieldType is the declared type of a field. It drives cell coercion on
// import and filter-kind selection in the UI.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldInteger FieldType = "integer"
	FieldBoolean FieldType = "boolean"
	FieldDate    FieldType = "date"
	FieldArray   FieldType = "array"
	FieldObject  FieldType = "object"
)

// IsNumeric reports whether values of t are numbers.
func (t FieldType) IsNumeric() bool {
	return t == FieldNumber || t == FieldInteger
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldNumber, FieldInteger, FieldBoolean, FieldDate, FieldArray, FieldObject:
		return true
	}
	return false
}

// Valid reports whether t is a known table type.
func (t TableType) Valid() bool {
	return t == TableArray || t == TableObject
}

// Catalog is read-only table metadata. Lookups on unknown tables or fields
// return defaults (array table, string field, visible) rather than errors.
type Catalog interface {
	// Tables lists declared table names in declaration order.
	Tables() []string
	TableType(table string) TableType
	TableVisible(table string) bool
	TableTitle(table, locale string) string

	// FieldNames lists required fields first, then the remaining declared
	// fields, each group in declaration order.
	FieldNames(table string) []string
	FieldType(table, field string) FieldType
	FieldVisible(table, field string) bool
	// FieldTitle falls back to the locale's base language, then the default
	// locale, then the field name itself.
	FieldTitle(table, field, locale string) string
	RequiredFields(table string) []string

	DefaultLocale() string
}
