package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sweeper/internal/dataset"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    Format
		wantErr bool
	}{
		{"csv", "data.csv", FormatCSV, false},
		{"csv upper case", "DATA.CSV", FormatCSV, false},
		{"xlsx", "report.xlsx", FormatXLSX, false},
		{"xlsx mixed case", "Report.XlSx", FormatXLSX, false},
		{"txt", "notes.txt", "", true},
		{"legacy xls", "old.xls", "", true},
		{"no extension", "README", "", true},
		{"dot in name", "archive.csv.bak", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.file)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_CSV(t *testing.T) {
	f := NewFile("people.csv", []byte("name,age,city\nann,31,Oslo\nbo,,Bergen\ncy,27,\n"))

	ds, format, err := Parse(f)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)
	assert.Equal(t, []string{"name", "age", "city"}, ds.Names())
	assert.Equal(t, 3, ds.NumRows())

	age, _ := ds.Column("age")
	assert.Equal(t, dataset.KindNumeric, age.Kind)
	assert.Equal(t, 1, age.MissingCount())
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, _, err := Parse(NewFile("notes.txt", []byte("a,b\n1,2\n")))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseCSV_BOMAndInvalidUTF8(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,name\n1,caf\xe9\n")...)

	ds, err := ParseCSV(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, ds.Names())
	assert.Equal(t, [][]string{{"1", "caf�"}}, ds.Head(1))
}

func TestParseCSV_QuotedFields(t *testing.T) {
	ds, err := ParseCSV([]byte("a,b\n\"x, y\",\"say \"\"hi\"\"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x, y", `say "hi"`}}, ds.Head(1))
}

func TestParseCSV_SkipsBlankLines(t *testing.T) {
	ds, err := ParseCSV([]byte("a,b\n1,2\n\n3,4\n\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, ds.NumRows())
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ParseCSV([]byte("a,b\n1,2,3\n"))
	assert.ErrorIs(t, err, ErrMalformedFile)
	assert.ErrorIs(t, err, dataset.ErrRowTooLong)
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	ds, err := ParseCSV([]byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.Names())
	assert.Zero(t, ds.NumRows())
}

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParse_XLSX(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"product", "price", "qty"},
		{"pen", 1.25, 10},
		{"ink", 3.5, nil},
		{"pad", 2, 4},
	})

	ds, format, err := Parse(NewFile("stock.XLSX", data))
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)
	assert.Equal(t, []string{"product", "price", "qty"}, ds.Names())
	assert.Equal(t, 3, ds.NumRows())
	assert.Len(t, ds.NumericColumns(), 2)

	qty, _ := ds.Column("qty")
	assert.Equal(t, 1, qty.MissingCount())
}

func TestParseXLSX_WideRowAddsUnnamedColumn(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{"a", "b"},
		{1, 2, 3},
	})

	ds, err := ParseXLSX(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "Unnamed: 2"}, ds.Names())
}

func TestParseXLSX_BlankRows(t *testing.T) {
	data := buildWorkbook(t, [][]any{
		{},
		{"a", "b"},
		{1, "x"},
		{},
		{3, "y"},
	})

	ds, err := ParseXLSX(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.Names())
	require.Equal(t, 3, ds.NumRows())
	assert.Equal(t, [][]string{{"1", "x"}, {"", ""}, {"3", "y"}}, ds.Head(3))

	a, _ := ds.Column("a")
	assert.Equal(t, dataset.KindNumeric, a.Kind)
	assert.Equal(t, 1, a.MissingCount())
}

func TestParseXLSX_DatesAndBoolsAreText(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	data := buildWorkbook(t, [][]any{
		{"when", "flag", "amount"},
		{day, true, 10},
		{day.AddDate(0, 0, 1).Add(12 * time.Hour), false, 20},
	})

	ds, err := ParseXLSX(data)
	require.NoError(t, err)

	when, _ := ds.Column("when")
	assert.Equal(t, dataset.KindText, when.Kind)
	flag, _ := ds.Column("flag")
	assert.Equal(t, dataset.KindText, flag.Kind)
	assert.Equal(t, [][]string{
		{"2024-01-02", "True", "10"},
		{"2024-01-03 12:00:00", "False", "20"},
	}, ds.Head(2))

	numeric := ds.NumericColumns()
	require.Len(t, numeric, 1)
	assert.Equal(t, "amount", numeric[0].Name)
}

func TestParseXLSX_CustomDateFormat(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()

	custom := func(code string) int {
		id, err := wb.NewStyle(&excelize.Style{CustomNumFmt: &code})
		require.NoError(t, err)
		return id
	}
	day := custom("yyyy/mm/dd")
	weight := custom(`0.0 "kg"`)
	stamp := custom("dd-mm-yyyy hh:mm")
	money, err := wb.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)

	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]any{"day", "cost", "weight", "at"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]any{45293, 1234.5, 7.25, 45293.5}))
	require.NoError(t, wb.SetCellStyle("Sheet1", "A2", "A2", day))
	require.NoError(t, wb.SetCellStyle("Sheet1", "B2", "B2", money))
	require.NoError(t, wb.SetCellStyle("Sheet1", "C2", "C2", weight))
	require.NoError(t, wb.SetCellStyle("Sheet1", "D2", "D2", stamp))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	ds, err := ParseXLSX(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2024-01-02", "1234.5", "7.25", "2024-01-02 12:00:00"}}, ds.Head(1))
}

func TestParseXLSX_BlankSheet(t *testing.T) {
	_, err := ParseXLSX(buildWorkbook(t, nil))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestParseXLSX_Corrupt(t *testing.T) {
	_, err := ParseXLSX([]byte("this is not a zip archive"))
	assert.ErrorIs(t, err, ErrMalformedFile)
}

func TestCheckSize(t *testing.T) {
	f := NewFile("a.csv", make([]byte, 10))
	assert.NoError(t, CheckSize(f, 10))
	assert.NoError(t, CheckSize(f, 0))
	assert.ErrorIs(t, CheckSize(f, 9), ErrFileTooLarge)
}
