package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/JonMunkholm/sweeper/internal/chart"
	"github.com/JonMunkholm/sweeper/internal/dataset"
	"github.com/JonMunkholm/sweeper/internal/export"
	"github.com/JonMunkholm/sweeper/internal/ingest"
	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/metrics"
)

// DefaultPreviewRows is how many rows a Summary shows when unset.
const DefaultPreviewRows = 5

// Options selects the steps applied to one file. The zero value ingests and
// summarizes the file without changing it.
type Options struct {
	RemoveDuplicates bool          `json:"remove_duplicates"`
	FillMissing      bool          `json:"fill_missing"`
	Project          bool          `json:"project"`
	Columns          []string      `json:"columns,omitempty"`
	Visualize        bool          `json:"visualize"`
	Target           export.Target `json:"-"`
}

// Request is one file plus the options to run on it.
type Request struct {
	File    ingest.File
	Options Options
}

// ColumnInfo describes a column after processing.
type ColumnInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}

// Summary is what the preview pages show for a file.
type Summary struct {
	FileName string        `json:"file_name"`
	Size     int64         `json:"size"`
	Format   ingest.Format `json:"format,omitempty"`
	Rows     int           `json:"rows"`
	Columns  []ColumnInfo  `json:"columns"`
	Header   []string      `json:"header"`
	Preview  [][]string    `json:"preview"`
}

// Result is the outcome for a single file. Err is set when the file failed;
// steps completed before the failure are still listed.
type Result struct {
	Summary
	Steps    []string         `json:"steps"`
	Removed  int              `json:"duplicates_removed"`
	Filled   int              `json:"missing_filled"`
	Chart    *chart.BarChart  `json:"-"`
	Artifact *export.Artifact `json:"-"`
	Err      error            `json:"-"`
	Duration time.Duration    `json:"-"`
}

// OK reports whether the file went through without error.
func (r *Result) OK() bool {
	return r.Err == nil
}

// UserError maps Err for display. It is the zero value when Err is nil.
func (r *Result) UserError() UserMessage {
	return MapError(r.Err)
}

// ServiceConfig holds the limits applied to every request.
type ServiceConfig struct {
	MaxFileSize   int64
	PreviewRows   int
	MaxConcurrent int
	MaxWait       time.Duration
}

// Service runs the file pipeline. It holds no per-file state, so the web
// handlers and the CLI share one instance.
type Service struct {
	cfg     ServiceConfig
	limiter *Limiter
	metrics *metrics.Metrics
}

// NewService builds a Service. m may be nil.
func NewService(cfg ServiceConfig, m *metrics.Metrics) *Service {
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	return &Service{
		cfg:     cfg,
		limiter: NewLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		metrics: m,
	}
}

// Limiter exposes the job limiter for status reporting.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}

// WaitForJobs blocks until running pipelines finish or ctx ends.
func (s *Service) WaitForJobs(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Inspect parses f and returns its summary without applying any step.
func (s *Service) Inspect(ctx context.Context, f ingest.File) Result {
	return s.Process(ctx, Request{File: f})
}

// ProcessAll runs each request in order. A failing file never stops the
// ones after it; only a cancelled context does, and the remaining files
// then report the context error.
func (s *Service) ProcessAll(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			results = append(results, failed(req.File, err))
			continue
		}
		results = append(results, s.Process(ctx, req))
	}
	return results
}

// Process runs the pipeline for one file:
// ingest, drop duplicates, fill missing, project, visualize, export.
func (s *Service) Process(ctx context.Context, req Request) (res Result) {
	log := logging.WithFields(ctx,
		"file", req.File.Name,
		"size", req.File.Size,
		"client", ClientFromContext(ctx),
	)
	start := time.Now()

	res = Result{Summary: Summary{FileName: req.File.Name, Size: req.File.Size}}

	if err := s.limiter.Acquire(ctx); err != nil {
		res.Err = err
		s.reject(log, &res)
		return res
	}
	defer s.limiter.Release()

	defer func() {
		if p := recover(); p != nil {
			log.Error("pipeline panic", "panic", p, "stack", string(debug.Stack()))
			res.Err = fmt.Errorf("pipeline panic: %v", p)
		}
		res.Duration = time.Since(start)
		s.metrics.ObservePipeline(res.Duration)
		if res.Err != nil {
			s.reject(log, &res)
			return
		}
		log.Info("file processed",
			"rows", res.Rows,
			"columns", len(res.Columns),
			"steps", len(res.Steps),
			"duration_ms", res.Duration.Milliseconds(),
		)
	}()

	res.Err = s.run(ctx, req, &res)
	return res
}

func (s *Service) run(ctx context.Context, req Request, res *Result) error {
	if s.cfg.MaxFileSize > 0 {
		if err := ingest.CheckSize(req.File, s.cfg.MaxFileSize); err != nil {
			return err
		}
	}

	ds, format, err := ingest.Parse(req.File)
	if err != nil {
		return err
	}
	res.Format = format
	s.metrics.FileIngested(string(format))
	defer s.summarize(ds, &res.Summary)

	opts := req.Options

	if opts.RemoveDuplicates {
		res.Removed = ds.DropDuplicates()
		s.metrics.RowsDropped(res.Removed)
		res.Steps = append(res.Steps, fmt.Sprintf("Duplicates removed: %d", res.Removed))
	}

	if opts.FillMissing {
		fill := ds.FillMissingMean()
		res.Filled = fill.Filled
		s.metrics.CellsFilled(fill.Filled)
		res.Steps = append(res.Steps, fillStep(ds, fill))
	}

	if opts.Project {
		if err := ds.Project(opts.Columns); err != nil {
			return err
		}
		res.Steps = append(res.Steps, fmt.Sprintf("Columns kept and converted to text: %d", ds.NumCols()))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if opts.Visualize {
		res.Chart = chart.FromDataset(ds)
		if res.Chart.Empty() {
			res.Steps = append(res.Steps, "No numeric columns to chart")
		} else {
			res.Steps = append(res.Steps, fmt.Sprintf("Charted %d numeric column(s)", len(res.Chart.Series)))
		}
	}

	if opts.Target != export.TargetNone {
		art, err := export.Export(ds, opts.Target, req.File.Name)
		if err != nil {
			return err
		}
		res.Artifact = art
		s.metrics.Exported(opts.Target.String())
		res.Steps = append(res.Steps, fmt.Sprintf("Converted to %s: %s", opts.Target, art.FileName))
	}

	return nil
}

func (s *Service) summarize(ds *dataset.Dataset, sum *Summary) {
	sum.Rows = ds.NumRows()
	sum.Header = ds.Names()
	sum.Preview = ds.Head(s.cfg.PreviewRows)
	sum.Columns = make([]ColumnInfo, 0, ds.NumCols())
	for _, col := range ds.Columns() {
		sum.Columns = append(sum.Columns, ColumnInfo{
			Name:    col.Name,
			Kind:    col.Kind.String(),
			Missing: col.MissingCount(),
		})
	}
}

// fillStep describes a mean fill, listing the value used per column in
// column order.
func fillStep(ds *dataset.Dataset, fill dataset.FillResult) string {
	step := fmt.Sprintf("Missing values filled: %d", fill.Filled)
	var used []string
	for _, name := range ds.Names() {
		if mean, ok := fill.Means[name]; ok {
			used = append(used, fmt.Sprintf("%s = %s", name, dataset.FormatNumber(mean)))
		}
	}
	if len(used) == 0 {
		return step
	}
	return step + " (" + strings.Join(used, ", ") + ")"
}

func (s *Service) reject(log *slog.Logger, res *Result) {
	msg := MapError(res.Err)
	s.metrics.FileRejected(msg.Code)
	log.Warn("file rejected", "code", msg.Code, "error", res.Err)
}

func failed(f ingest.File, err error) Result {
	return Result{
		Summary: Summary{FileName: f.Name, Size: f.Size},
		Err:     err,
	}
}
