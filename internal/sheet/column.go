// Package sheet converts between spreadsheet column numbers and their
// letter addresses (A, B, ..., Z, AA, AB, ...).
//
// Column letters are a bijective base-26 numbering: there is no zero digit,
// so A=1, Z=26, AA=27, AZ=52, ZZ=702 and AAA=703. The two conversions are
// exact inverses of each other over their valid domains.
package sheet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxColumns is the widest sheet Excel supports (column XFD).
// The codec itself accepts any positive column number.
const MaxColumns = 16384

// ErrInvalidColumn is returned for column numbers below 1 and for letter
// strings that are empty, contain non-letters, or overflow an int.
var ErrInvalidColumn = errors.New("invalid column")

// ColumnName returns the letter address of the 1-based column n.
func ColumnName(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("%w: number %d must be >= 1", ErrInvalidColumn, n)
	}

	// Longest possible name for a 64-bit int is 14 letters.
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		n-- // shift to 0-based digit, since there is no zero letter
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:]), nil
}

// MustColumnName is like ColumnName but panics on n < 1.
// Use it only where n is known to be valid, e.g. loop indexes.
func MustColumnName(n int) string {
	name, err := ColumnName(n)
	if err != nil {
		panic(err)
	}
	return name
}

// ColumnNumber returns the 1-based column number for a letter address.
// Input is case-insensitive.
func ColumnNumber(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty column name", ErrInvalidColumn)
	}

	upper := strings.ToUpper(s)
	n := 0
	for i := 0; i < len(upper); i++ {
		c := upper[i]
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("%w: %q contains non-letter %q", ErrInvalidColumn, s, c)
		}
		if n > (math.MaxInt-26)/26 {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidColumn, s)
		}
		n = n*26 + int(c-'A'+1)
	}
	return n, nil
}

// CellName joins a column number and a 1-based row into an address like "C7".
func CellName(col, row int) (string, error) {
	if row < 1 {
		return "", fmt.Errorf("%w: row %d must be >= 1", ErrInvalidColumn, row)
	}
	name, err := ColumnName(col)
	if err != nil {
		return "", err
	}
	return name + strconv.Itoa(row), nil
}

// SplitCellName parses an address like "c7" into column 3 and row 7.
func SplitCellName(cell string) (col, row int, err error) {
	i := 0
	for i < len(cell) && isLetter(cell[i]) {
		i++
	}
	if i == 0 || i == len(cell) {
		return 0, 0, fmt.Errorf("%w: bad cell address %q", ErrInvalidColumn, cell)
	}

	col, err = ColumnNumber(cell[:i])
	if err != nil {
		return 0, 0, err
	}
	row, err = strconv.Atoi(cell[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("%w: bad row in cell address %q", ErrInvalidColumn, cell)
	}
	return col, row, nil
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
