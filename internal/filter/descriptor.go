package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// Descriptor is one field's filter configuration. It is a closed union:
// Checkbox, Range, DateRange and Other are the only implementations.
type Descriptor interface {
	// Kind returns the wire name of the descriptor ("checkbox", "range", ...).
	Kind() string
	descriptor()
}

// Spec maps field names to descriptors. A missing or nil entry leaves the
// field unconstrained. Descriptors on different fields combine with AND.
type Spec map[string]Descriptor

// Checkbox keeps records whose stringified field value is one of Selected.
// An empty selection matches nothing.
type Checkbox struct {
	Selected []string
}

// Range keeps records whose numeric field value lies in [Min, Max].
type Range struct {
	Min float64
	Max float64
}

// DateRange keeps records whose date field value lies in [Start, End].
// A bound parsed from a bare date compares at day granularity.
type DateRange struct {
	Start Bound
	End   Bound
}

// Other is any descriptor kind this engine does not know. It always passes,
// so unrecognized filters never hide data.
type Other struct {
	Type string
}

func (Checkbox) Kind() string  { return "checkbox" }
func (Range) Kind() string     { return "range" }
func (DateRange) Kind() string { return "daterange" }
func (o Other) Kind() string   { return o.Type }

func (Checkbox) descriptor()  {}
func (Range) descriptor()     {}
func (DateRange) descriptor() {}
func (Other) descriptor()     {}

// Bound is a DateRange endpoint.
type Bound struct {
	Time    time.Time
	DayOnly bool // parsed from a date without a time of day
}

// NewBound parses s with ParseDate.
func NewBound(s string) (Bound, error) {
	t, dayOnly, err := ParseDate(s)
	if err != nil {
		return Bound{}, err
	}
	return Bound{Time: t, DayOnly: dayOnly}, nil
}

// MustBound is NewBound for literals in tests and fixtures.
func MustBound(s string) Bound {
	b, err := NewBound(s)
	if err != nil {
		panic(err)
	}
	return b
}

// String renders the bound in the form it was parsed from.
func (b Bound) String() string {
	if b.DayOnly {
		return b.Time.Format(dateLayout)
	}
	return b.Time.Format(time.RFC3339)
}

// wireDescriptor is the JSON shape: {"type": "...", "value": ...}.
type wireDescriptor struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// ParseSpec decodes a JSON object of field name to descriptor.
//
// Entries that are null or malformed (no value, wrong arity, unparseable
// bounds) are dropped, leaving their field unconstrained. Unknown kinds
// decode to Other. Only a document that is not a JSON object is an error.
func ParseSpec(data []byte) (Spec, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Spec{}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse filter spec: %w", err)
	}

	spec := make(Spec, len(raw))
	for field, msg := range raw {
		d := DecodeDescriptor(msg)
		if d == nil {
			slog.Debug("filter: dropping malformed descriptor", "field", field)
			continue
		}
		spec[field] = d
	}
	return spec, nil
}

// UnmarshalJSON lets a Spec be embedded in request bodies.
func (s *Spec) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Spec{}
		return nil
	}
	parsed, err := ParseSpec(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON writes the spec in the same wire form ParseSpec reads.
func (s Spec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s))
	for field, d := range s {
		if d == nil {
			continue
		}
		out[field] = EncodeDescriptor(d)
	}
	return json.Marshal(out)
}

// DecodeDescriptor decodes one descriptor, returning nil when it is absent
// or malformed.
func DecodeDescriptor(msg json.RawMessage) Descriptor {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var w wireDescriptor
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil
	}

	kind := strings.ToLower(strings.TrimSpace(w.Type))
	switch kind {
	case "checkbox":
		return decodeCheckbox(w.Value)
	case "range":
		return decodeRange(w.Value)
	case "daterange":
		return decodeDateRange(w.Value)
	default:
		return Other{Type: w.Type}
	}
}

func decodeCheckbox(value json.RawMessage) Descriptor {
	if isAbsent(value) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(value, &items); err != nil {
		return nil
	}

	selected := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			selected = append(selected, s)
			continue
		}
		// Non-string options (true, 3) select by their text form.
		selected = append(selected, strings.TrimSpace(string(item)))
	}
	return Checkbox{Selected: selected}
}

func decodeRange(value json.RawMessage) Descriptor {
	if isAbsent(value) {
		return nil
	}
	var bounds []json.RawMessage
	if err := json.Unmarshal(value, &bounds); err != nil || len(bounds) != 2 {
		return nil
	}

	lo, ok := parseNumberBound(bounds[0])
	if !ok {
		return nil
	}
	hi, ok := parseNumberBound(bounds[1])
	if !ok {
		return nil
	}
	return Range{Min: lo, Max: hi}
}

func parseNumberBound(msg json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(msg, &f); err == nil {
		return f, !math.IsNaN(f)
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return 0, false
	}
	return parseFinite(s)
}

func decodeDateRange(value json.RawMessage) Descriptor {
	if isAbsent(value) {
		return nil
	}
	var bounds []string
	if err := json.Unmarshal(value, &bounds); err != nil || len(bounds) != 2 {
		return nil
	}

	start, err := NewBound(bounds[0])
	if err != nil {
		return nil
	}
	end, err := NewBound(bounds[1])
	if err != nil {
		return nil
	}
	return DateRange{Start: start, End: end}
}

// EncodeDescriptor returns the wire form of d.
func EncodeDescriptor(d Descriptor) map[string]any {
	switch t := d.(type) {
	case Checkbox:
		sel := t.Selected
		if sel == nil {
			sel = []string{}
		}
		return map[string]any{"type": t.Kind(), "value": sel}
	case Range:
		return map[string]any{"type": t.Kind(), "value": []float64{t.Min, t.Max}}
	case DateRange:
		return map[string]any{"type": t.Kind(), "value": []string{t.Start.String(), t.End.String()}}
	case Other:
		return map[string]any{"type": t.Type}
	}
	return nil
}

func isAbsent(value json.RawMessage) bool {
	trimmed := bytes.TrimSpace(value)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseFinite parses a trimmed decimal string into a finite float.
func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
