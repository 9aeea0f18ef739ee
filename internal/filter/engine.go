// Package filter searches and filters collections of nested records.
//
// Two independent mechanisms combine with AND:
//
//   - a free-text query, matched case-insensitively against every scalar in
//     the record tree;
//   - a Spec of per-field descriptors (checkbox, range, date range), also
//     combined with AND across fields.
//
// Filtering never fails: malformed descriptors are treated as absent,
// unknown kinds always pass, and values that cannot be read as the
// descriptor expects exclude only their own record.
package filter

import (
	"log/slog"
	"math"
	"strings"

	"github.com/JonMunkholm/sheetport/internal/record"
)

// Filter returns the records that match query and every descriptor in
// filters, preserving their order. Inputs are not modified. Top-level fields
// named in ignoredFields are not searched by the query.
func Filter(records []record.Record, query string, filters Spec, ignoredFields ...string) []record.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	ignored := toSet(ignoredFields)

	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if q != "" && !matchesQuery(r, q, ignored) {
			continue
		}
		if !MatchesSpec(r, filters) {
			continue
		}
		out = append(out, r)
	}

	slog.Debug("filter applied",
		"records", len(records),
		"kept", len(out),
		"query", q != "",
		"descriptors", len(filters),
	)
	return out
}

// MatchesQuery reports whether any scalar in r contains query,
// case-insensitively. An empty query matches every record.
func MatchesQuery(r record.Record, query string, ignoredFields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return matchesQuery(r, q, toSet(ignoredFields))
}

func matchesQuery(r record.Record, q string, ignored map[string]struct{}) bool {
	for field, v := range r {
		if _, skip := ignored[field]; skip {
			continue
		}
		if valueContains(v, q) {
			return true
		}
	}
	return false
}

// valueContains walks v depth-first, stopping at the first match.
func valueContains(v record.Value, q string) bool {
	switch v.Kind() {
	case record.KindNull:
		return false
	case record.KindArray, record.KindObject:
		found := false
		v.Each(func(e record.Value) bool {
			found = valueContains(e, q)
			return !found
		})
		return found
	default:
		text, _ := v.Text()
		return strings.Contains(strings.ToLower(text), q)
	}
}

// MatchesSpec reports whether r satisfies every non-nil descriptor.
func MatchesSpec(r record.Record, filters Spec) bool {
	for field, d := range filters {
		if d == nil {
			continue
		}
		if !MatchesDescriptor(r.Get(field), d) {
			return false
		}
	}
	return true
}

// MatchesDescriptor tests a single field value against d.
func MatchesDescriptor(v record.Value, d Descriptor) bool {
	switch t := d.(type) {
	case Checkbox:
		return matchCheckbox(v, t)
	case Range:
		return matchRange(v, t)
	case DateRange:
		return matchDateRange(v, t)
	default:
		return true
	}
}

func matchCheckbox(v record.Value, c Checkbox) bool {
	text, ok := v.Text()
	if !ok {
		text = "false"
	}
	for _, s := range c.Selected {
		if s == text {
			return true
		}
	}
	return false
}

func matchRange(v record.Value, r Range) bool {
	n, ok := numberOf(v)
	if !ok {
		return false
	}
	return n >= r.Min && n <= r.Max
}

func numberOf(v record.Value) (float64, bool) {
	if n, ok := v.AsNumber(); ok {
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	}
	if s, ok := v.AsString(); ok {
		return parseFinite(s)
	}
	return 0, false
}

func matchDateRange(v record.Value, dr DateRange) bool {
	s, ok := v.AsString()
	if !ok {
		return false
	}
	t, _, err := ParseDate(s)
	if err != nil {
		return false
	}

	lower := t
	if dr.Start.DayOnly {
		lower = truncateDay(t)
	}
	if lower.Before(dr.Start.Time) {
		return false
	}

	upper := t
	if dr.End.DayOnly {
		upper = truncateDay(t)
	}
	return !upper.After(dr.End.Time)
}

func toSet(items []string) map[string]struct{} {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}
