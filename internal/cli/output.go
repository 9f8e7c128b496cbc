package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/sweeper/internal/core"
)

// fileReport is the JSON shape of one file, matching the web API.
type fileReport struct {
	core.Result
	OutputFile string            `json:"output,omitempty"`
	ChartFile  string            `json:"chart,omitempty"`
	SaveError  string            `json:"save_error,omitempty"`
	Error      *core.UserMessage `json:"error,omitempty"`
}

func newReport(res core.Result) fileReport {
	r := fileReport{Result: res}
	if !res.OK() {
		msg := res.UserError()
		r.Error = &msg
	}
	return r
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReports writes one block per file: summary, steps, columns and the
// preview rows.
func printReports(w io.Writer, reports []fileReport) error {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := printReport(w, r); err != nil {
			return err
		}
	}
	return nil
}

func printReport(w io.Writer, r fileReport) error {
	fmt.Fprintf(w, "== %s (%d bytes)\n", r.FileName, r.Size)
	if r.Err != nil {
		fmt.Fprintf(w, "error: %s\n", core.FormatUserError(r.Err))
	}
	for _, step := range r.Steps {
		fmt.Fprintf(w, "- %s\n", step)
	}
	if r.SaveError != "" {
		fmt.Fprintf(w, "not written: %s\n", r.SaveError)
	}
	if r.OutputFile != "" {
		fmt.Fprintf(w, "wrote %s\n", r.OutputFile)
	}
	if r.ChartFile != "" {
		fmt.Fprintf(w, "chart %s\n", r.ChartFile)
	}
	if len(r.Header) == 0 {
		return nil
	}

	fmt.Fprintf(w, "format: %s  rows: %d  columns: %d\n\n", r.Format, r.Rows, len(r.Columns))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tKIND\tMISSING")
	for _, c := range r.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Name, c.Kind, c.Missing)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Preview) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.Header, "\t"))
	for _, row := range r.Preview {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
