// Package ingest turns uploaded bytes into a dataset.
//
// The format is chosen from the file name's extension, compared
// case-insensitively. Only .csv and .xlsx are accepted; anything else is
// reported with ErrUnsupportedFormat so callers can skip that file and keep
// going with the rest of an upload.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/sweeper/internal/dataset"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than .csv and .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMalformedFile is returned when the bytes cannot be parsed as the detected format.
	ErrMalformedFile = errors.New("malformed file")

	// ErrInvalidCSV is returned, together with ErrMalformedFile, for CSV reader errors.
	ErrInvalidCSV = errors.New("invalid csv")

	// ErrEmptyFile is returned when a file has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrFileTooLarge is returned by CheckSize.
	ErrFileTooLarge = errors.New("file too large")
)

// Format is a supported input format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// File is one uploaded file. It is never modified after it is received.
type File struct {
	Name string
	Size int64
	Data []byte
}

// NewFile wraps raw bytes, deriving Size from the data.
func NewFile(name string, data []byte) File {
	return File{Name: name, Size: int64(len(data)), Data: data}
}

// Ext returns the lower-cased extension including the dot.
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// DetectFormat picks the parser for a file name.
func DetectFormat(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case "":
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// CheckSize rejects files above max bytes. A max of zero or less disables the check.
func CheckSize(f File, max int64) error {
	if max > 0 && f.Size > max {
		return fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, f.Name, f.Size, max)
	}
	return nil
}

// Parse detects the format of f and parses it.
func Parse(f File) (*dataset.Dataset, Format, error) {
	format, err := DetectFormat(f.Name)
	if err != nil {
		return nil, "", err
	}

	var ds *dataset.Dataset
	switch format {
	case FormatCSV:
		ds, err = ParseCSV(f.Data)
	case FormatXLSX:
		ds, err = ParseXLSX(f.Data)
	}
	if err != nil {
		return nil, format, fmt.Errorf("parse %s: %w", f.Name, err)
	}
	return ds, format, nil
}

// build creates the dataset from records whose first entry is the header.
func build(records [][]string) (*dataset.Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	ds, err := dataset.New(records[0], records[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFile, err)
	}
	return ds, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
