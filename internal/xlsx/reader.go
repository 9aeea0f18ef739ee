package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetport/internal/sheet"
	"github.com/JonMunkholm/sheetport/internal/tabular"
)

// ErrInvalidWorkbook is returned when a document cannot be opened as .xlsx.
var ErrInvalidWorkbook = errors.New("invalid workbook")

// ReadFile opens an .xlsx file and reads every sheet.
func ReadFile(ctx context.Context, path string) (tabular.RawWorkbook, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer fh.Close()
	return ReadWorkbook(ctx, fh)
}

// ReadWorkbook reads every sheet of an .xlsx document into cell matrices.
//
// Cells come back typed: numbers as float64, booleans as bool, cells with a
// date number format as time.Time (UTC), everything else as string. Empty
// cells are nil.
func ReadWorkbook(ctx context.Context, r io.Reader) (tabular.RawWorkbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w: %w", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	rd := &reader{f: f, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		rd.date1904 = *props.Date1904
	}

	raw := make(tabular.RawWorkbook)
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := rd.readSheet(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		raw[name] = rows
	}
	return raw, nil
}

type reader struct {
	f          *excelize.File
	date1904   bool
	dateStyles map[int]bool
}

func (rd *reader) readSheet(name string) ([][]any, error) {
	rows, err := rd.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, text := range row {
			if text == "" {
				continue
			}
			ref, err := sheet.CellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			cells[j] = rd.cellValue(name, ref, text)
		}
		out[i] = cells
	}
	return out, nil
}

func (rd *reader) cellValue(sheetName, ref, text string) any {
	typ, err := rd.f.GetCellType(sheetName, ref)
	if err != nil {
		return text
	}

	switch typ {
	case excelize.CellTypeBool:
		return text == "1" || strings.EqualFold(text, "true")
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
			return t.UTC()
		}
		return text
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return text
		}
		if rd.isDateCell(sheetName, ref) {
			t, err := excelize.ExcelDateToTime(n, rd.date1904)
			if err == nil {
				return t.UTC()
			}
			slog.Debug("xlsx: bad date serial", "sheet", sheetName, "cell", ref, "value", n)
		}
		return n
	default:
		return text
	}
}

func (rd *reader) isDateCell(sheetName, ref string) bool {
	idx, err := rd.f.GetCellStyle(sheetName, ref)
	if err != nil || idx == 0 {
		return false
	}
	if isDate, ok := rd.dateStyles[idx]; ok {
		return isDate
	}

	isDate := false
	if style, err := rd.f.GetStyle(idx); err == nil && style != nil {
		isDate = isDateFormat(style.NumFmt, style.CustomNumFmt)
	}
	rd.dateStyles[idx] = isDate
	return isDate
}

// isDateFormat reports whether a number format renders dates or times.
// Built-in formats 14-22 and 45-47 are the date/time ones.
func isDateFormat(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDatePattern(*custom)
	}
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

// isDatePattern looks for date tokens outside quoted literals and bracketed
// sections such as colors or locale codes.
func isDatePattern(format string) bool {
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'y', r == 'd', r == 'h', r == 's', r == 'm':
			return true
		}
	}
	return false
}
