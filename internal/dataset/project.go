package dataset

import "fmt"

// Project narrows the dataset to the named columns, in the order given, and
// converts every retained cell to text. Names repeated in the selection are
// kept once. Selecting no columns leaves an empty dataset.
//
// The dataset is changed in place; dropped columns cannot be recovered.
func (d *Dataset) Project(names []string) error {
	index := make(map[string]*Column, len(d.columns))
	for _, c := range d.columns {
		index[c.Name] = c
	}

	picked := make([]*Column, 0, len(names))
	used := make(map[string]bool, len(names))
	for _, name := range names {
		col, ok := index[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		if used[name] {
			continue
		}
		used[name] = true
		picked = append(picked, col)
	}

	for _, col := range picked {
		col.Kind = KindText
		for i, cell := range col.Cells {
			col.Cells[i] = Cell{Kind: Text, Raw: cell.String()}
		}
	}

	d.columns = picked
	if len(picked) == 0 {
		d.rows = 0
	}
	return nil
}
