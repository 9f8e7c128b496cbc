package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/sweeper/internal/dataset"
	"github.com/JonMunkholm/sweeper/internal/export"
	"github.com/JonMunkholm/sweeper/internal/ingest"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"unsupported format", fmt.Errorf("%w: .txt", ingest.ErrUnsupportedFormat), "FILE006"},
		{"csv read error", fmt.Errorf("parse a.csv: %w: %w: bare quote", ingest.ErrMalformedFile, ingest.ErrInvalidCSV), "FILE002"},
		{"corrupt workbook", fmt.Errorf("parse a.xlsx: %w: open workbook: zip", ingest.ErrMalformedFile), "FILE003"},
		{"empty file", fmt.Errorf("parse a.csv: %w", ingest.ErrEmptyFile), "FILE005"},
		{"too large", fmt.Errorf("%w: a.csv", ingest.ErrFileTooLarge), "FILE001"},
		{"http body limit", errors.New("http: request body too large"), "FILE001"},
		{"no file", errors.New("no file provided"), "FILE004"},
		{"too many files", errors.New("too many files: 30 > 20"), "FILE007"},
		{"bad email", errors.New("invalid email address"), "FORM001"},
		{"unknown column", fmt.Errorf("%w: %q", dataset.ErrUnknownColumn, "zip"), "COL001"},
		{"unknown target", fmt.Errorf("%w: parquet", export.ErrUnknownTarget), "CNV001"},
		{"session", ErrSessionNotFound, "SES001"},
		{"file", ErrFileNotFound, "SES002"},
		{"artifact", ErrNoArtifact, "SES003"},
		{"busy", ErrTooManyJobs, "JOB001"},
		{"cancelled", context.Canceled, "JOB002"},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), "JOB003"},
		{"rate limit text", errors.New("Rate limit exceeded"), "RATE001"},
		{"missing key", errors.New("missing API key"), "AUTH001"},
		{"wrong key", errors.New("invalid API key"), "AUTH002"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, MapError(tt.err).Code)
		})
	}
}

func TestMapError_FileNameDoesNotMatchPattern(t *testing.T) {
	err := fmt.Errorf("parse file too large.csv: %w", ingest.ErrEmptyFile)
	assert.Equal(t, "FILE005", MapError(err).Code)

	_, err = ingest.ParseXLSX([]byte("not a workbook"))
	err = fmt.Errorf("parse invalid csv.xlsx: %w", err)
	assert.Equal(t, "FILE003", MapError(err).Code)
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrTooManyJobs)
	assert.Equal(t, "System is busy processing other files (Code: JOB001). Please wait a moment and try again", got)
	assert.Empty(t, FormatUserError(nil))
}

func TestIsUserFacing(t *testing.T) {
	assert.False(t, IsUserFacing(nil))
	assert.True(t, IsUserFacing(ingest.ErrUnsupportedFormat))
	assert.False(t, IsUserFacing(errors.New("random internal error xyz")))
}
