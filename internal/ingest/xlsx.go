package ingest

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
	"github.com/xuri/nfp"

	"github.com/JonMunkholm/sweeper/internal/dataset"
)

// ParseXLSX reads the first worksheet of an Office Open XML workbook. The
// first non-blank row is the header. Blank rows between data rows are kept
// as rows of missing values; blank rows at the end are dropped.
//
// Numbers are read raw so they are not rounded by the sheet's display
// format. Date cells become ISO text and boolean cells become True or
// False, so neither is treated as a number.
func ParseXLSX(data []byte) (*dataset.Dataset, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrMalformedFile, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrMalformedFile, sheets[0], err)
	}

	first := 0
	for first < len(rows) && isBlankRow(rows[first]) {
		first++
	}
	last := len(rows)
	for last > first && isBlankRow(rows[last-1]) {
		last--
	}
	if first == last {
		return nil, ErrEmptyFile
	}

	sr := newSheetReader(wb, sheets[0])
	records := make([][]string, 0, last-first)
	width := 0
	for r := first; r < last; r++ {
		row := rows[r]
		if r > first {
			for c, v := range row {
				if v == "" {
					continue
				}
				if row[c], err = sr.cellText(c, r, v); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
				}
			}
		}
		records = append(records, row)
		width = max(width, len(row))
	}

	// Trailing empty header cells are trimmed by the reader; a data row
	// reaching past them gets an unnamed column rather than an error.
	if len(records[0]) < width {
		header := make([]string, width)
		copy(header, records[0])
		records[0] = header
	}

	return build(records)
}

// sheetReader resolves cell types and number formats for one worksheet.
type sheetReader struct {
	wb         *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func newSheetReader(wb *excelize.File, sheet string) *sheetReader {
	sr := &sheetReader{
		wb:         wb,
		sheet:      sheet,
		dateStyles: make(map[int]bool),
	}
	if props, err := wb.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		sr.date1904 = *props.Date1904
	}
	return sr
}

// cellText returns the text kept for the non-empty cell at zero-based
// column c and row r.
func (sr *sheetReader) cellText(c, r int, raw string) (string, error) {
	ref, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return "", err
	}

	typ, err := sr.wb.GetCellType(sr.sheet, ref)
	if err != nil {
		return "", err
	}
	switch typ {
	case excelize.CellTypeBool:
		if raw == "1" || raw == "TRUE" || raw == "true" {
			return "True", nil
		}
		return "False", nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
	default:
		return raw, nil
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}
	style, err := sr.wb.GetCellStyle(sr.sheet, ref)
	if err != nil || !sr.isDateStyle(style) {
		return raw, nil
	}
	return sr.formatDate(serial, raw), nil
}

func (sr *sheetReader) formatDate(serial float64, raw string) string {
	t, err := excelize.ExcelDateToTime(serial, sr.date1904)
	if err != nil {
		return raw
	}
	switch {
	case serial < 1:
		return t.Format("15:04:05")
	case t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0:
		return t.Format("2006-01-02")
	default:
		return t.Format("2006-01-02 15:04:05")
	}
}

// isDateStyle reports whether the style's number format shows a date or
// time. Results are cached per style index.
func (sr *sheetReader) isDateStyle(idx int) bool {
	if isDate, ok := sr.dateStyles[idx]; ok {
		return isDate
	}

	isDate := false
	if style, err := sr.wb.GetStyle(idx); err == nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormat(*style.CustomNumFmt)
		} else {
			isDate = isBuiltInDateFormat(style.NumFmt)
		}
	}
	sr.dateStyles[idx] = isDate
	return isDate
}

// isDateFormat tokenizes a custom number format. A parser keeps its
// position between calls, so each code gets a new one.
func isDateFormat(code string) bool {
	p := nfp.NumberFormatParser()
	for _, section := range p.Parse(code) {
		for _, tok := range section.Items {
			if tok.TType == nfp.TokenTypeDateTimes || tok.TType == nfp.TokenTypeElapsedDateTimes {
				return true
			}
		}
	}
	return false
}

// isBuiltInDateFormat covers the built-in date and time formats, including
// the East Asian locale ones.
func isBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}
