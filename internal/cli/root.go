// Package cli is the sweep command line. It runs the same pipeline as the
// web server on local files.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
)

const defaultMaxFileSize = 100 << 20

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type rootOptions struct {
	logLevel    string
	logFormat   string
	output      string
	maxFileSize int64
	previewRows int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "sweep",
		Short:         "Inspect, clean and convert CSV and Excel files",
		Long:          "Runs the Data Sweeper pipeline on local .csv and .xlsx files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(opts.output); err != nil {
				return err
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVarP(&opts.output, "output", "o", "table", "Output format: table or json")
	pf.Int64Var(&opts.maxFileSize, "max-file-size", defaultMaxFileSize, "Largest file accepted, in bytes")
	pf.IntVar(&opts.previewRows, "preview-rows", core.DefaultPreviewRows, "Rows shown in previews")

	rootCmd.AddCommand(newInspectCmd(opts))
	rootCmd.AddCommand(newConvertCmd(opts))

	return rootCmd
}

// service builds a pipeline service for one command run. The CLI handles one
// file at a time so a single slot is enough.
func (o *rootOptions) service() *core.Service {
	return core.NewService(core.ServiceConfig{
		MaxFileSize:   o.maxFileSize,
		PreviewRows:   o.previewRows,
		MaxConcurrent: 1,
	}, nil)
}

func cliContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return core.ContextWithClient(ctx, "cli")
}

func validateOutputFormat(output string) error {
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}
