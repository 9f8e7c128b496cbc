package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/sweeper/internal/dataset"
)

// utf8BOM is prepended by Windows tools such as Excel's "CSV UTF-8" export.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV parses comma-separated data. The first record is the header.
//
// A leading UTF-8 BOM is dropped and invalid UTF-8 sequences are replaced
// with U+FFFD before parsing. Blank lines are skipped.
func ParseCSV(data []byte) (*dataset.Dataset, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.ToValidUTF8(data, []byte("\uFFFD"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w: %v", ErrMalformedFile, ErrInvalidCSV, err)
		}
		if len(records) > 0 && isBlankRow(rec) && len(rec) == 1 {
			continue
		}
		records = append(records, rec)
	}

	return build(records)
}
