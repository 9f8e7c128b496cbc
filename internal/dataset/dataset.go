// Package dataset holds the in-memory table that every sweep operates on.
//
// A Dataset is an ordered list of named columns of equal length. Row i is
// position i of every column. Cells remember the raw text they were parsed
// from so a file can be written back out without reformatting values the
// user never touched.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrRowTooLong is returned when a data row has more fields than the header.
var ErrRowTooLong = errors.New("row has more fields than header")

// ErrUnknownColumn is returned when an operation names a column the dataset does not have.
var ErrUnknownColumn = errors.New("column not found")

// CellKind classifies a single value.
type CellKind uint8

const (
	Missing CellKind = iota
	Number
	Text
)

// Cell is one value of a column.
type Cell struct {
	Kind CellKind
	Raw  string  // Text as read from the source (or as produced by an operation)
	Num  float64 // Valid only when Kind == Number
}

// String returns the textual representation used for display and export.
func (c Cell) String() string {
	return c.Raw
}

// Kind is the inferred type of a whole column.
type Kind uint8

const (
	KindText Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// Dataset is an ordered set of equal-length columns.
type Dataset struct {
	columns []*Column
	rows    int
}

// missingTokens are the values treated as missing in addition to blank cells.
// They follow the defaults of common dataframe readers so files exported by
// those tools load the same way here.
// Any spelling of NaN is missing too, see IsMissingToken.
var missingTokens = map[string]struct{}{
	"NA": {}, "N/A": {}, "n/a": {}, "null": {}, "NULL": {}, "None": {},
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "<NA>": {},
	"-1.#IND": {}, "1.#IND": {}, "-1.#QNAN": {}, "1.#QNAN": {},
}

// IsMissingToken reports whether raw should be read as a missing value.
func IsMissingToken(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return true
	}
	if _, ok := missingTokens[s]; ok {
		return true
	}
	return isNaN(s)
}

// isNaN matches every spelling strconv.ParseFloat reads as NaN.
func isNaN(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return strings.EqualFold(s, "nan")
}

// New builds a Dataset from a header and data rows, inferring column kinds.
//
// Rows shorter than the header are padded with missing cells. A row longer
// than the header is an error. Blank header names become "Unnamed: <i>" and
// repeated names are suffixed ".1", ".2", ...
func New(header []string, rows [][]string) (*Dataset, error) {
	names := NormalizeHeader(header)

	raw := make([][]string, len(names))
	for c := range raw {
		raw[c] = make([]string, len(rows))
	}

	for r, row := range rows {
		if len(row) > len(names) {
			return nil, fmt.Errorf("line %d: %w (expected %d, got %d)", r+2, ErrRowTooLong, len(names), len(row))
		}
		for c, v := range row {
			raw[c][r] = v
		}
	}

	d := &Dataset{
		columns: make([]*Column, len(names)),
		rows:    len(rows),
	}
	for c, name := range names {
		d.columns[c] = newColumn(name, raw[c])
	}
	return d, nil
}

// newColumn parses raw values into cells. The column is numeric when it has
// at least one value and every non-missing value parses as a float.
func newColumn(name string, values []string) *Column {
	col := &Column{Name: name, Cells: make([]Cell, len(values))}

	numeric := false
	nums := make([]float64, len(values))
	for i, v := range values {
		if IsMissingToken(v) {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			numeric = false
			break
		}
		if math.IsNaN(f) {
			continue
		}
		nums[i] = f
		numeric = true
	}

	if numeric {
		col.Kind = KindNumeric
	}
	for i, v := range values {
		switch {
		case IsMissingToken(v):
			col.Cells[i] = Cell{Kind: Missing, Raw: v}
		case numeric:
			col.Cells[i] = Cell{Kind: Number, Raw: v, Num: nums[i]}
		default:
			col.Cells[i] = Cell{Kind: Text, Raw: v}
		}
	}
	return col
}

// NormalizeHeader returns column names with blanks filled in and duplicates
// made unique.
func NormalizeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				name = base + "." + strconv.Itoa(n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}

// NumRows returns the number of data rows.
func (d *Dataset) NumRows() int { return d.rows }

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int { return len(d.columns) }

// Columns returns the columns in order. The slice must not be modified.
func (d *Dataset) Columns() []*Column { return d.columns }

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// NumericColumns returns the numeric columns in column order.
func (d *Dataset) NumericColumns() []*Column {
	var out []*Column
	for _, c := range d.columns {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// Row returns the cells of row i across all columns.
func (d *Dataset) Row(i int) []Cell {
	row := make([]Cell, len(d.columns))
	for c, col := range d.columns {
		row[c] = col.Cells[i]
	}
	return row
}

// Head returns up to n rows as text.
func (d *Dataset) Head(n int) [][]string {
	if n > d.rows {
		n = d.rows
	}
	if n < 0 {
		n = 0
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		out[i] = d.textRow(i)
	}
	return out
}

// Records returns the header followed by every row as text, without a row
// index. A dataset with no columns has no records.
func (d *Dataset) Records() [][]string {
	if len(d.columns) == 0 {
		return nil
	}
	out := make([][]string, 0, d.rows+1)
	out = append(out, d.Names())
	for i := 0; i < d.rows; i++ {
		out = append(out, d.textRow(i))
	}
	return out
}

func (d *Dataset) textRow(i int) []string {
	row := make([]string, len(d.columns))
	for c, col := range d.columns {
		row[c] = col.Cells[i].String()
	}
	return row
}

// Values returns the non-missing numbers of a numeric column.
func (c *Column) Values() []float64 {
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if cell.Kind == Number {
			out = append(out, cell.Num)
		}
	}
	return out
}

// MissingCount returns how many cells are missing.
func (c *Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.Kind == Missing {
			n++
		}
	}
	return n
}

// FormatNumber renders a float the way filled-in values are written out.
func FormatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
