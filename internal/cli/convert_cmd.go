package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sweeper/internal/chart"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/export"
)

func newConvertCmd(root *rootOptions) *cobra.Command {
	var (
		dedupe    bool
		fill      bool
		columns   []string
		visualize bool
		to        string
		outDir    string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Clean files and write them as CSV or Excel",
		Long: "Applies the selected cleaning steps to each file and writes the result to the output directory.\n" +
			"Steps run in order: remove duplicates, fill missing numbers with the column mean, keep columns, chart, convert.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := export.ParseTarget(to)
			if err != nil {
				return err
			}
			if target == export.TargetNone {
				target = export.TargetCSV
			}

			opts := core.Options{
				RemoveDuplicates: dedupe,
				FillMissing:      fill,
				Project:          len(columns) > 0,
				Columns:          columns,
				Visualize:        visualize,
				Target:           target,
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			reqs, err := requests(args, root.maxFileSize, opts)
			if err != nil {
				return err
			}

			results := root.service().ProcessAll(cliContext(cmd), reqs)
			reports := make([]fileReport, len(results))
			failed := countFailed(results)
			for i, res := range results {
				reports[i] = newReport(res)
				if !res.OK() {
					continue
				}
				if err := saveOutputs(cmd, &reports[i], args[i], outDir, force); err != nil {
					reports[i].SaveError = err.Error()
					failed++
				}
			}

			out := cmd.OutOrStdout()
			if root.output == "json" {
				err = printJSON(out, reports)
			} else {
				err = printReports(out, reports)
			}
			if err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&dedupe, "dedupe", false, "Remove duplicate rows")
	f.BoolVar(&fill, "fill-missing", false, "Fill missing numeric values with the column mean")
	f.StringSliceVar(&columns, "columns", nil, "Keep only these columns, converted to text")
	f.BoolVar(&visualize, "visualize", false, "Write an SVG bar chart of the first two numeric columns")
	f.StringVar(&to, "to", "csv", "Output format: csv or excel")
	f.StringVar(&outDir, "out", ".", "Output directory")
	f.BoolVar(&force, "force", false, "Overwrite existing output files")

	return cmd
}

// saveOutputs writes the export, plus the chart when one was drawn. The
// input file is only replaced when force is set.
func saveOutputs(cmd *cobra.Command, r *fileReport, input, outDir string, force bool) error {
	if r.Artifact != nil {
		path := filepath.Join(outDir, r.Artifact.FileName)
		if !force && sameFile(input, path) {
			return fmt.Errorf("%s: %w, use --force to replace it", path, errOverwritesInput)
		}
		if err := writeNew(path, r.Artifact.Data, force); err != nil {
			return err
		}
		r.OutputFile = path
	}

	if r.Result.Chart != nil && !r.Result.Chart.Empty() {
		var buf bytes.Buffer
		if err := chart.SVG(r.Result.Chart).Render(cliContext(cmd), &buf); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		base := strings.TrimSuffix(r.FileName, filepath.Ext(r.FileName))
		path := filepath.Join(outDir, base+".svg")
		if err := writeNew(path, buf.Bytes(), force); err != nil {
			return err
		}
		r.ChartFile = path
	}
	return nil
}
