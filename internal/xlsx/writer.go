// Package xlsx adapts excelize to the tabular Workbook interface and reads
// .xlsx files into raw cell matrices.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetport/internal/sheet"
	"github.com/JonMunkholm/sheetport/internal/tabular"
)

// ContentType is the MIME type of .xlsx documents.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MaxSheetName is the longest sheet name Excel accepts.
const MaxSheetName = 31

const defaultSheet = "Sheet1"

// Workbook is an in-memory .xlsx document. The zero value is not usable;
// call NewWorkbook.
type Workbook struct {
	f       *excelize.File
	names   map[string]bool // lower-cased names already in use
	created int
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{
		f:     excelize.NewFile(),
		names: make(map[string]bool),
	}
}

var _ tabular.Workbook = (*Workbook)(nil)

// CreateSheet adds a sheet. The name is sanitized to what Excel accepts and
// made unique within the workbook.
func (w *Workbook) CreateSheet(name string) (tabular.Sheet, error) {
	name = w.uniqueName(SanitizeSheetName(name))

	// A new file starts with one blank sheet. The first sheet we create
	// takes it over so the output has no stray default sheet.
	if w.created == 0 {
		if name != defaultSheet {
			if err := w.f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("rename sheet %q: %w", name, err)
			}
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return nil, fmt.Errorf("new sheet %q: %w", name, err)
	}

	w.created++
	w.names[strings.ToLower(name)] = true
	return &Sheet{f: w.f, name: name, next: 1}, nil
}

// Serialize renders the workbook as .xlsx bytes.
func (w *Workbook) Serialize(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.f.SetActiveSheet(0)

	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases resources held by the underlying file.
func (w *Workbook) Close() error {
	return w.f.Close()
}

func (w *Workbook) uniqueName(name string) string {
	if !w.names[strings.ToLower(name)] {
		return name
	}
	for i := 2; ; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		base := name
		if len([]rune(base))+len(suffix) > MaxSheetName {
			base = string([]rune(base)[:MaxSheetName-len(suffix)])
		}
		candidate := base + suffix
		if !w.names[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

// Sheet writes rows into one worksheet.
type Sheet struct {
	f    *excelize.File
	name string
	next int
}

// Name returns the sheet's final, sanitized name.
func (s *Sheet) Name() string { return s.name }

// AppendRows writes rows below any rows already appended.
func (s *Sheet) AppendRows(rows [][]any) error {
	for _, row := range rows {
		cell, err := sheet.CellName(1, s.next)
		if err != nil {
			return fmt.Errorf("sheet %q: %w", s.name, err)
		}
		if len(row) > 0 {
			if err := s.f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("sheet %q row %d: %w", s.name, s.next, err)
			}
		}
		s.next++
	}
	return nil
}

// SanitizeSheetName replaces characters Excel rejects in sheet names,
// strips surrounding apostrophes and truncates to MaxSheetName runes.
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")

	if r := []rune(name); len(r) > MaxSheetName {
		name = string(r[:MaxSheetName])
	}
	if name == "" {
		name = "Sheet"
	}
	return name
}
