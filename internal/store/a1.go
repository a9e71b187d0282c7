package store

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnLetter converts a 1-based column number to its A1 letter form
// (1 -> A, 26 -> Z, 27 -> AA).
func ColumnLetter(n int) string {
	if n < 1 {
		return ""
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// columnNumber is the inverse of ColumnLetter. Returns 0 for an empty
// or malformed reference.
func columnNumber(s string) int {
	n := 0
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return 0
		}
		n = n*26 + int(c-'A') + 1
	}
	return n
}

// HeaderRange is the range spec covering row 1 for a header of the
// given width, e.g. 7 -> "A1:G1".
func HeaderRange(width int) string {
	return fmt.Sprintf("A1:%s1", ColumnLetter(width))
}

// DataRange is the open-ended range spec covering all rows of the
// given width, e.g. 7 -> "A1:G".
func DataRange(width int) string {
	return fmt.Sprintf("A1:%s", ColumnLetter(width))
}

// RowRange addresses an entire row without a column bound,
// e.g. 1 -> "1:1".
func RowRange(n int) string {
	return fmt.Sprintf("%d:%d", n, n)
}

// Range is a parsed A1-style range. Zero bounds mean unbounded; both
// rows and columns are 1-based inclusive.
type Range struct {
	StartCol, StartRow int
	EndCol, EndRow     int
}

// ParseRange parses specs like "A1:G1", "A1:Z", "A2:D100" or "A1".
// Used by the SQLite backend, which has no native range addressing.
func ParseRange(spec string) (Range, error) {
	var r Range
	start, end, found := strings.Cut(spec, ":")
	sc, sr, err := parseCellRef(start)
	if err != nil {
		return r, fmt.Errorf("parse range %q: %w", spec, err)
	}
	r.StartCol, r.StartRow = sc, sr
	if !found {
		r.EndCol, r.EndRow = sc, sr
		return r, nil
	}
	ec, er, err := parseCellRef(end)
	if err != nil {
		return r, fmt.Errorf("parse range %q: %w", spec, err)
	}
	r.EndCol, r.EndRow = ec, er
	return r, nil
}

// parseCellRef splits "G12" into column 7, row 12. A bare column
// reference ("G") yields row 0 and a bare row reference ("12")
// yields column 0, both meaning unbounded on that axis.
func parseCellRef(ref string) (col, row int, err error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return 0, 0, fmt.Errorf("empty cell reference")
	}
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	col = columnNumber(ref[:i])
	if i == len(ref) {
		if col == 0 {
			return 0, 0, fmt.Errorf("bad column in %q", ref)
		}
		return col, 0, nil
	}
	row, err = strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("bad row in %q", ref)
	}
	return col, row, nil
}
