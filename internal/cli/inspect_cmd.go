package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sweeper/internal/core"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Show the size, columns and first rows of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := requests(args, root.maxFileSize, core.Options{})
			if err != nil {
				return err
			}

			results := root.service().ProcessAll(cliContext(cmd), reqs)
			reports := make([]fileReport, len(results))
			for i, res := range results {
				reports[i] = newReport(res)
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

			if n := countFailed(results); n > 0 {
				return fmt.Errorf("%d of %d files could not be read", n, len(results))
			}
			return nil
		},
	}
}
