package sheet

import (
	"errors"
	"strings"
	"testing"
)

// ----------------------------------------------------------------------------
// ColumnName Tests
// ----------------------------------------------------------------------------

func TestColumnName(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
		{28, "AB"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
		{16384, "XFD"},
		{18278, "ZZZ"},
		{18279, "AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := ColumnName(tt.n)
			if err != nil {
				t.Fatalf("ColumnName(%d) error = %v", tt.n, err)
			}
			if got != tt.want {
				t.Errorf("ColumnName(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestColumnName_Invalid(t *testing.T) {
	for _, n := range []int{0, -1, -26} {
		_, err := ColumnName(n)
		if !errors.Is(err, ErrInvalidColumn) {
			t.Errorf("ColumnName(%d) error = %v, want ErrInvalidColumn", n, err)
		}
	}
}

func TestMustColumnName_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustColumnName(0) did not panic")
		}
	}()
	MustColumnName(0)
}

// ----------------------------------------------------------------------------
// ColumnNumber Tests
// ----------------------------------------------------------------------------

func TestColumnNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"A", 1},
		{"Z", 26},
		{"AA", 27},
		{"AZ", 52},
		{"ZZ", 702},
		{"AAA", 703},
		{"xfd", 16384},
		{"aB", 28},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ColumnNumber(tt.in)
			if err != nil {
				t.Fatalf("ColumnNumber(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ColumnNumber(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestColumnNumber_Invalid(t *testing.T) {
	inputs := []string{"", "A1", "1", "A-B", " A", "Ä", strings.Repeat("Z", 20)}
	for _, in := range inputs {
		_, err := ColumnNumber(in)
		if !errors.Is(err, ErrInvalidColumn) {
			t.Errorf("ColumnNumber(%q) error = %v, want ErrInvalidColumn", in, err)
		}
	}
}

// ----------------------------------------------------------------------------
// Round-trip Tests
// ----------------------------------------------------------------------------

func TestColumnRoundTrip_Numbers(t *testing.T) {
	for n := 1; n <= 10000; n++ {
		name, err := ColumnName(n)
		if err != nil {
			t.Fatalf("ColumnName(%d) error = %v", n, err)
		}
		got, err := ColumnNumber(name)
		if err != nil {
			t.Fatalf("ColumnNumber(%q) error = %v", name, err)
		}
		if got != n {
			t.Fatalf("ColumnNumber(ColumnName(%d)) = %d", n, got)
		}
	}
}

func TestColumnRoundTrip_Letters(t *testing.T) {
	for _, s := range []string{"A", "Z", "AA", "AZ", "ZZ", "AAA", "abc", "ZZZZ", "QWER"} {
		n, err := ColumnNumber(s)
		if err != nil {
			t.Fatalf("ColumnNumber(%q) error = %v", s, err)
		}
		got, err := ColumnName(n)
		if err != nil {
			t.Fatalf("ColumnName(%d) error = %v", n, err)
		}
		if got != strings.ToUpper(s) {
			t.Errorf("ColumnName(ColumnNumber(%q)) = %q, want %q", s, got, strings.ToUpper(s))
		}
	}
}

// ----------------------------------------------------------------------------
// Cell address Tests
// ----------------------------------------------------------------------------

func TestCellName(t *testing.T) {
	got, err := CellName(28, 7)
	if err != nil {
		t.Fatalf("CellName error = %v", err)
	}
	if got != "AB7" {
		t.Errorf("CellName(28, 7) = %q, want %q", got, "AB7")
	}

	if _, err := CellName(1, 0); !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("CellName(1, 0) error = %v, want ErrInvalidColumn", err)
	}
}

func TestSplitCellName(t *testing.T) {
	tests := []struct {
		in      string
		col     int
		row     int
		wantErr bool
	}{
		{in: "A1", col: 1, row: 1},
		{in: "c7", col: 3, row: 7},
		{in: "XFD1048576", col: 16384, row: 1048576},
		{in: "", wantErr: true},
		{in: "A", wantErr: true},
		{in: "12", wantErr: true},
		{in: "A0", wantErr: true},
		{in: "A1B", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			col, row, err := SplitCellName(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("SplitCellName(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitCellName(%q) error = %v", tt.in, err)
			}
			if col != tt.col || row != tt.row {
				t.Errorf("SplitCellName(%q) = (%d, %d), want (%d, %d)", tt.in, col, row, tt.col, tt.row)
			}
		})
	}
}
