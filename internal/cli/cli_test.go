package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestInspect_Table(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sales.csv", "region,amount\nnorth,10\nsouth,\n")

	out, err := run(t, "inspect", path)
	require.NoError(t, err)

	assert.Contains(t, out, "== sales.csv")
	assert.Contains(t, out, "rows: 2")
	assert.Regexp(t, `amount\s+numeric\s+1`, out)
	assert.Regexp(t, `north\s+10`, out)
}

func TestInspect_JSONReportsFailedFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "a.csv", "x\n1\n")
	bad := writeFile(t, dir, "b.txt", "x\n1\n")

	out, err := run(t, "inspect", "-o", "json", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files")

	var reports []struct {
		FileName string `json:"file_name"`
		Rows     int    `json:"rows"`
		Error    *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, 1, reports[0].Rows)
	assert.Nil(t, reports[0].Error)
	require.NotNil(t, reports[1].Error)
	assert.Equal(t, "FILE006", reports[1].Error.Code)
}

func TestInspect_MissingFile(t *testing.T) {
	_, err := run(t, "inspect", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
}

func TestConvert_CleansAndWrites(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	path := writeFile(t, dir, "data.csv", "k,n\na,1\na,1\nb,\nc,4\n")

	stdout, err := run(t, "convert", "--dedupe", "--fill-missing", "--out", out, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "- Duplicates removed: 1")
	assert.Contains(t, stdout, "- Missing values filled: 1")

	got, err := os.ReadFile(filepath.Join(out, "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "k,n\na,1\nb,2.5\nc,4\n", string(got))
}

func TestConvert_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.csv", "a\n1\n1\n")

	out, err := run(t, "convert", "--out", dir, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 files failed")
	assert.Contains(t, out, "output would replace the input file")

	other := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(other, []byte("old"), 0o644))
	_, err = run(t, "convert", "--out", filepath.Dir(other), path)
	require.Error(t, err)
	kept, err := os.ReadFile(other)
	require.NoError(t, err)
	assert.Equal(t, "old", string(kept))

	_, err = run(t, "convert", "--dedupe", "--force", "--out", dir, path)
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(got))
}

func TestConvert_WriteErrorDoesNotStopOtherFiles(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.csv", "x\n1\n")
	second := writeFile(t, t.TempDir(), "b.csv", "y\n2\n")

	out, err := run(t, "convert", "--out", dir, first, second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, "== a.csv")
	assert.Contains(t, out, "not written:")
	assert.Contains(t, out, "== b.csv")
	assert.Contains(t, out, "wrote "+filepath.Join(dir, "b.csv"))

	got, err := os.ReadFile(filepath.Join(dir, "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, "y\n2\n", string(got))
}

func TestConvert_ExcelAndChart(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	path := writeFile(t, dir, "nums.csv", "x,y,z\n1,2,3\n4,5,6\n")

	stdout, err := run(t, "convert", "--to", "excel", "--visualize", "--out", out, path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Charted 2 numeric column(s)")

	xlsx, err := os.ReadFile(filepath.Join(out, "nums.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "PK", string(xlsx[:2]))

	svg, err := os.ReadFile(filepath.Join(out, "nums.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, string(svg), "<title>x row 0: 1</title>")
}

func TestConvert_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.csv", "a\n1\n")

	_, err := run(t, "convert", "--to", "parquet", "--out", dir, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parquet")

	out, err := run(t, "convert", "--columns", "zip", "--out", filepath.Join(dir, "o"), path)
	require.Error(t, err)
	assert.Contains(t, out, "Code: COL001")

	_, err = run(t, "inspect", "-o", "yaml", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestInspect_TooLarge(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.csv", "a,b\n1,2\n3,4\n")

	out, err := run(t, "inspect", "--max-file-size", "4", path)
	require.Error(t, err)
	assert.Contains(t, out, "Code: FILE001")
}
