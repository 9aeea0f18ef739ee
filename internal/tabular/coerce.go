package tabular

// coerce.go converts raw spreadsheet cells into the values a field's
// declared type expects.
//
// Coercion never fails. Cells that cannot be read as a number for a numeric
// field become null; everything else passes through with strings trimmed.

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/sheetport/internal/record"
	"github.com/JonMunkholm/sheetport/internal/schema"
)

// NumberPlaces is the number of decimal places numeric cells keep.
const NumberPlaces = 4

const (
	dayFormat    = "2006-01-02"
	minuteFormat = "2006-01-02 15:04"
)

// numericRegex validates a numeric string after currency and separator cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Coerce converts a raw cell according to the declared field type.
func Coerce(cell any, t schema.FieldType) record.Value {
	switch {
	case t.IsNumeric():
		f, ok := CoerceNumber(cell)
		if !ok {
			return record.Null()
		}
		return record.Number(f)
	default:
		return passThrough(cell)
	}
}

// CoerceNumber reads a cell as a number rounded to NumberPlaces decimal
// places, half away from zero. ok is false when the cell is not a number.
func CoerceNumber(cell any) (f float64, ok bool) {
	switch v := cell.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case string:
		return parseNumber(v)
	case record.Value:
		if n, isNum := v.AsNumber(); isNum {
			f = n
		} else if s, isStr := v.AsString(); isStr {
			return parseNumber(s)
		} else {
			return 0, false
		}
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return RoundNumber(f), true
}

// RoundNumber rounds to NumberPlaces decimal places, half away from zero.
// The decimal representation of f is rounded, so 1.00005 becomes 1.0001
// even though its binary value is slightly below the midpoint.
func RoundNumber(f float64) float64 {
	rounded, _ := decimal.NewFromFloat(f).Round(NumberPlaces).Float64()
	return rounded
}

// parseNumber handles the messy number formats users type into cells:
// currency symbols, thousands separators and accounting negatives "(12.50)".
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Round(NumberPlaces).Float64()
	if math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatDate renders t with its own calendar fields: "YYYY-MM-DD" at
// midnight, "YYYY-MM-DD HH:MM" otherwise. Seconds are dropped.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(dayFormat)
	}
	return t.Format(minuteFormat)
}

func passThrough(cell any) record.Value {
	switch v := cell.(type) {
	case nil:
		return record.Null()
	case string:
		return record.String(strings.TrimSpace(v))
	case time.Time:
		return record.String(FormatDate(v))
	case *time.Time:
		if v == nil {
			return record.Null()
		}
		return record.String(FormatDate(*v))
	default:
		return record.FromAny(v)
	}
}
