package dataset

import (
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

// DropDuplicates removes rows equal to an earlier row across all columns.
// The first occurrence is kept and the order of the remaining rows is
// preserved. It returns the number of rows removed.
//
// Numbers compare by value, so "1" and "1.0" in a numeric column are equal.
// Missing cells compare equal to each other.
func (d *Dataset) DropDuplicates() int {
	if d.rows == 0 || len(d.columns) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, d.rows)
	keep := make([]int, 0, d.rows)
	for i := 0; i < d.rows; i++ {
		key := d.rowKey(i)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	removed := d.rows - len(keep)
	if removed == 0 {
		return 0
	}

	for _, col := range d.columns {
		cells := make([]Cell, len(keep))
		for j, i := range keep {
			cells[j] = col.Cells[i]
		}
		col.Cells = cells
	}
	d.rows = len(keep)
	return removed
}

// rowKey builds an unambiguous key for row i. Each cell is written as
// kind, length, value so no choice of separator can collide.
func (d *Dataset) rowKey(i int) string {
	var b strings.Builder
	for _, col := range d.columns {
		cell := col.Cells[i]
		var v string
		switch cell.Kind {
		case Number:
			v = strconv.FormatFloat(cell.Num, 'g', -1, 64)
		case Text:
			v = cell.Raw
		}
		b.WriteByte(byte('0' + cell.Kind))
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

// FillResult reports what FillMissingMean changed.
type FillResult struct {
	Filled int                // Cells replaced across all columns
	Means  map[string]float64 // Fill value per column that had missing cells
}

// FillMissingMean replaces missing cells of numeric columns with that
// column's mean. The mean is taken over the values present before any
// replacement. Text columns are left alone, as are numeric columns with no
// values at all.
func (d *Dataset) FillMissingMean() FillResult {
	res := FillResult{Means: make(map[string]float64)}

	for _, col := range d.columns {
		if col.Kind != KindNumeric || col.MissingCount() == 0 {
			continue
		}

		mean, err := stats.Mean(col.Values())
		if err != nil {
			continue
		}

		fill := Cell{Kind: Number, Raw: FormatNumber(mean), Num: mean}
		for i := range col.Cells {
			if col.Cells[i].Kind == Missing {
				col.Cells[i] = fill
				res.Filled++
			}
		}
		res.Means[col.Name] = mean
	}

	return res
}
