package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// ErrInvalidCatalog is returned when a catalog document fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// DefaultLocale is used when a catalog document does not name one.
const DefaultLocale = "en"

// Titles maps locale tags to display text.
type Titles map[string]string

// TableSpec is one table in a catalog document.
type TableSpec struct {
	Name       string      `json:"name"`
	Type       TableType   `json:"type"`
	Visible    *bool       `json:"visible,omitempty"`
	Title      Titles      `json:"title,omitempty"`
	Required   []string    `json:"required,omitempty"`
	Properties []FieldSpec `json:"properties"`
}

// FieldSpec is one property of a table.
type FieldSpec struct {
	Name    string    `json:"name"`
	Type    FieldType `json:"type"`
	Visible *bool     `json:"visible,omitempty"`
	Title   Titles    `json:"title,omitempty"`
}

// Document is the on-disk catalog format.
type Document struct {
	DefaultLocale string      `json:"defaultLocale,omitempty"`
	Tables        []TableSpec `json:"tables"`
}

// JSONCatalog implements Catalog over a Document.
type JSONCatalog struct {
	doc           Document
	tables        map[string]*tableIndex
	defaultLocale string
}

type tableIndex struct {
	spec   TableSpec
	fields map[string]FieldSpec
	order  []string
}

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) (*JSONCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) (*JSONCatalog, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return NewCatalog(doc)
}

// NewCatalog validates doc and indexes it for lookups.
func NewCatalog(doc Document) (*JSONCatalog, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	c := &JSONCatalog{
		doc:           doc,
		tables:        make(map[string]*tableIndex, len(doc.Tables)),
		defaultLocale: canonicalLocale(doc.DefaultLocale),
	}
	if c.defaultLocale == "" {
		c.defaultLocale = DefaultLocale
	}

	for _, t := range doc.Tables {
		idx := &tableIndex{
			spec:   t,
			fields: make(map[string]FieldSpec, len(t.Properties)),
		}
		idx.spec.Title = canonicalTitles(t.Title)
		for _, f := range t.Properties {
			f.Title = canonicalTitles(f.Title)
			idx.fields[f.Name] = f
		}
		idx.order = orderFields(t)
		c.tables[t.Name] = idx
	}
	return c, nil
}

// orderFields puts required fields first, then the rest, each in
// declaration order.
func orderFields(t TableSpec) []string {
	required := make(map[string]bool, len(t.Required))
	for _, r := range t.Required {
		required[r] = true
	}

	order := make([]string, 0, len(t.Properties))
	for _, f := range t.Properties {
		if required[f.Name] {
			order = append(order, f.Name)
		}
	}
	for _, f := range t.Properties {
		if !required[f.Name] {
			order = append(order, f.Name)
		}
	}
	return order
}

// Validate reports every problem in the document at once.
func (d Document) Validate() error {
	var errs []string

	if d.DefaultLocale != "" {
		if _, err := language.Parse(d.DefaultLocale); err != nil {
			errs = append(errs, fmt.Sprintf("defaultLocale %q is not a valid language tag", d.DefaultLocale))
		}
	}

	seenTables := make(map[string]bool, len(d.Tables))
	for i, t := range d.Tables {
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("tables[%d]: name is required", i))
			continue
		}
		if seenTables[t.Name] {
			errs = append(errs, fmt.Sprintf("table %q: declared more than once", t.Name))
		}
		seenTables[t.Name] = true

		if !t.Type.Valid() {
			errs = append(errs, fmt.Sprintf("table %q: type %q must be array or object", t.Name, t.Type))
		}

		seenFields := make(map[string]bool, len(t.Properties))
		for j, f := range t.Properties {
			if f.Name == "" {
				errs = append(errs, fmt.Sprintf("table %q: properties[%d]: name is required", t.Name, j))
				continue
			}
			if seenFields[f.Name] {
				errs = append(errs, fmt.Sprintf("table %q: property %q declared more than once", t.Name, f.Name))
			}
			seenFields[f.Name] = true
			if !f.Type.Valid() {
				errs = append(errs, fmt.Sprintf("table %q: property %q: unknown type %q", t.Name, f.Name, f.Type))
			}
		}

		for _, r := range t.Required {
			if !seenFields[r] {
				errs = append(errs, fmt.Sprintf("table %q: required field %q is not declared", t.Name, r))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidCatalog, strings.Join(errs, "\n  - "))
	}
	return nil
}

// Document returns the catalog's source document.
func (c *JSONCatalog) Document() Document { return c.doc }

// Tables implements Catalog.
func (c *JSONCatalog) Tables() []string {
	names := make([]string, len(c.doc.Tables))
	for i, t := range c.doc.Tables {
		names[i] = t.Name
	}
	return names
}

// HasTable reports whether table is declared.
func (c *JSONCatalog) HasTable(table string) bool {
	_, ok := c.tables[table]
	return ok
}

// TableType implements Catalog.
func (c *JSONCatalog) TableType(table string) TableType {
	if t, ok := c.tables[table]; ok {
		return t.spec.Type
	}
	return TableArray
}

// TableVisible implements Catalog.
func (c *JSONCatalog) TableVisible(table string) bool {
	if t, ok := c.tables[table]; ok && t.spec.Visible != nil {
		return *t.spec.Visible
	}
	return true
}

// TableTitle implements Catalog.
func (c *JSONCatalog) TableTitle(table, locale string) string {
	if t, ok := c.tables[table]; ok {
		if s, ok := c.lookupTitle(t.spec.Title, locale); ok {
			return s
		}
	}
	return table
}

// FieldNames implements Catalog.
func (c *JSONCatalog) FieldNames(table string) []string {
	t, ok := c.tables[table]
	if !ok {
		return nil
	}
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// FieldType implements Catalog.
func (c *JSONCatalog) FieldType(table, field string) FieldType {
	if f, ok := c.field(table, field); ok {
		return f.Type
	}
	return FieldString
}

// FieldVisible implements Catalog.
func (c *JSONCatalog) FieldVisible(table, field string) bool {
	if f, ok := c.field(table, field); ok && f.Visible != nil {
		return *f.Visible
	}
	return true
}

// FieldTitle implements Catalog.
func (c *JSONCatalog) FieldTitle(table, field, locale string) string {
	if f, ok := c.field(table, field); ok {
		if s, ok := c.lookupTitle(f.Title, locale); ok {
			return s
		}
	}
	return field
}

// RequiredFields implements Catalog.
func (c *JSONCatalog) RequiredFields(table string) []string {
	t, ok := c.tables[table]
	if !ok {
		return nil
	}
	out := make([]string, len(t.spec.Required))
	copy(out, t.spec.Required)
	return out
}

// DefaultLocale implements Catalog.
func (c *JSONCatalog) DefaultLocale() string { return c.defaultLocale }

// Locales lists every locale with at least one title, default first.
func (c *JSONCatalog) Locales() []string {
	seen := map[string]bool{c.defaultLocale: true}
	add := func(ts Titles) {
		for loc := range ts {
			seen[loc] = true
		}
	}
	for _, t := range c.tables {
		add(t.spec.Title)
		for _, f := range t.fields {
			add(f.Title)
		}
	}

	var rest []string
	for loc := range seen {
		if loc != c.defaultLocale {
			rest = append(rest, loc)
		}
	}
	sort.Strings(rest)
	return append([]string{c.defaultLocale}, rest...)
}

// MatchLocale picks the catalog locale that best serves an Accept-Language
// header value (or a single tag). It returns the default locale when nothing
// matches.
func (c *JSONCatalog) MatchLocale(accept string) string {
	if strings.TrimSpace(accept) == "" {
		return c.defaultLocale
	}
	desired, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(desired) == 0 {
		return c.defaultLocale
	}

	locales := c.Locales()
	supported := make([]language.Tag, 0, len(locales))
	names := make([]string, 0, len(locales))
	for _, loc := range locales {
		tag, err := language.Parse(loc)
		if err != nil {
			continue
		}
		supported = append(supported, tag)
		names = append(names, loc)
	}
	if len(supported) == 0 {
		return c.defaultLocale
	}

	_, idx, conf := language.NewMatcher(supported).Match(desired...)
	if conf == language.No {
		return c.defaultLocale
	}
	return names[idx]
}

func (c *JSONCatalog) field(table, field string) (FieldSpec, bool) {
	t, ok := c.tables[table]
	if !ok {
		return FieldSpec{}, false
	}
	f, ok := t.fields[field]
	return f, ok
}

// lookupTitle resolves locale, then its base language, then the default.
func (c *JSONCatalog) lookupTitle(titles Titles, locale string) (string, bool) {
	if len(titles) == 0 {
		return "", false
	}
	for _, loc := range c.fallbackChain(locale) {
		if s, ok := titles[loc]; ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func (c *JSONCatalog) fallbackChain(locale string) []string {
	chain := make([]string, 0, 3)
	if loc := canonicalLocale(locale); loc != "" {
		chain = append(chain, loc)
		if tag, err := language.Parse(loc); err == nil {
			if base, conf := tag.Base(); conf != language.No && base.String() != loc {
				chain = append(chain, base.String())
			}
		}
	}
	return append(chain, c.defaultLocale)
}

// canonicalLocale normalizes tags such as "de_at" or "DE-at" to "de-AT".
// Strings that are not language tags are returned trimmed.
func canonicalLocale(locale string) string {
	locale = strings.TrimSpace(strings.ReplaceAll(locale, "_", "-"))
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	return tag.String()
}

func canonicalTitles(ts Titles) Titles {
	if len(ts) == 0 {
		return ts
	}
	out := make(Titles, len(ts))
	for loc, s := range ts {
		out[canonicalLocale(loc)] = s
	}
	return out
}
