// Package export serializes a dataset into a downloadable file.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sweeper/internal/dataset"
)

// ErrUnknownTarget is returned for a conversion target other than CSV or Excel.
var ErrUnknownTarget = errors.New("unknown conversion target")

// Target is an output format.
type Target int

const (
	TargetNone Target = iota
	TargetCSV
	TargetExcel
)

const (
	MIMECSV   = "text/csv"
	MIMEExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// SheetName is the worksheet written by Excel exports.
const SheetName = "Sheet1"

// ParseTarget maps a user choice to a Target. The empty string means no export.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return TargetNone, nil
	case "csv":
		return TargetCSV, nil
	case "excel", "xlsx":
		return TargetExcel, nil
	default:
		return TargetNone, fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
}

// String returns the label shown to users.
func (t Target) String() string {
	switch t {
	case TargetCSV:
		return "CSV"
	case TargetExcel:
		return "Excel"
	case TargetNone:
		return "none"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// Ext returns the file extension for t, including the dot.
func (t Target) Ext() string {
	switch t {
	case TargetCSV:
		return ".csv"
	case TargetExcel:
		return ".xlsx"
	}
	return ""
}

// MIMEType returns the content type for t.
func (t Target) MIMEType() string {
	switch t {
	case TargetCSV:
		return MIMECSV
	case TargetExcel:
		return MIMEExcel
	}
	return ""
}

// Artifact is a serialized dataset ready for download.
type Artifact struct {
	FileName string
	MIMEType string
	Target   Target
	Data     []byte
}

// FileName swaps the extension of the original upload name for t's extension.
func FileName(original string, t Target) string {
	base := strings.TrimSuffix(original, filepath.Ext(original))
	if base == "" {
		base = "export"
	}
	return base + t.Ext()
}

// Export writes ds in the target format. Row indices are never written.
func Export(ds *dataset.Dataset, t Target, originalName string) (*Artifact, error) {
	var (
		data []byte
		err  error
	)
	switch t {
	case TargetCSV:
		data, err = WriteCSV(ds)
	case TargetExcel:
		data, err = WriteExcel(ds)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, t)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", t, err)
	}

	return &Artifact{
		FileName: FileName(originalName, t),
		MIMEType: t.MIMEType(),
		Target:   t,
		Data:     data,
	}, nil
}

// WriteCSV renders the header and all rows as CSV.
func WriteCSV(ds *dataset.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(ds.Records()); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteExcel renders the dataset as a single-sheet workbook. Numeric cells
// are stored as numbers, text as strings, and missing cells are left blank.
func WriteExcel(ds *dataset.Dataset) ([]byte, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	sw, err := wb.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("stream writer: %w", err)
	}

	if ds.NumCols() > 0 {
		header := make([]any, ds.NumCols())
		for i, name := range ds.Names() {
			header[i] = name
		}
		if err := sw.SetRow("A1", header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}

		for r := 0; r < ds.NumRows(); r++ {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			if err := sw.SetRow(cell, excelRow(ds.Row(r))); err != nil {
				return nil, fmt.Errorf("write row %d: %w", r+1, err)
			}
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func excelRow(cells []dataset.Cell) []any {
	row := make([]any, len(cells))
	for i, c := range cells {
		switch c.Kind {
		case dataset.Number:
			if math.IsInf(c.Num, 0) || math.IsNaN(c.Num) {
				row[i] = c.Raw
				continue
			}
			row[i] = c.Num
		case dataset.Text:
			row[i] = c.Raw
		default:
			row[i] = nil
		}
	}
	return row
}
