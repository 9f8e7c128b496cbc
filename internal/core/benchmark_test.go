package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strconv"
	"testing"

	"github.com/JonMunkholm/sweeper/internal/export"
	"github.com/JonMunkholm/sweeper/internal/ingest"
)

// ============================================================================
// Pipeline Benchmarks
// ============================================================================

// BenchmarkInspect measures parsing plus summary, the work done on upload.
func BenchmarkInspect(b *testing.B) {
	svc := NewService(ServiceConfig{}, nil)
	f := ingest.NewFile("bench.csv", generateTestCSV(1000, 10))
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if res := svc.Inspect(ctx, f); !res.OK() {
			b.Fatal(res.Err)
		}
	}
}

// BenchmarkProcess_AllSteps runs every cleaning step and a CSV export.
func BenchmarkProcess_AllSteps(b *testing.B) {
	svc := NewService(ServiceConfig{}, nil)
	req := Request{
		File: ingest.NewFile("bench.csv", generateTestCSV(1000, 10)),
		Options: Options{
			RemoveDuplicates: true,
			FillMissing:      true,
			Visualize:        true,
			Target:           export.TargetCSV,
		},
	}
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if res := svc.Process(ctx, req); !res.OK() {
			b.Fatal(res.Err)
		}
	}
}

// BenchmarkProcess_Excel exports to a workbook, the slowest target.
func BenchmarkProcess_Excel(b *testing.B) {
	svc := NewService(ServiceConfig{}, nil)
	req := Request{
		File:    ingest.NewFile("bench.csv", generateTestCSV(1000, 10)),
		Options: Options{Target: export.TargetExcel},
	}
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if res := svc.Process(ctx, req); !res.OK() {
			b.Fatal(res.Err)
		}
	}
}

// BenchmarkProcessParallel shows how the limiter behaves under load.
func BenchmarkProcessParallel(b *testing.B) {
	svc := NewService(ServiceConfig{MaxConcurrent: 4}, nil)
	req := Request{
		File:    ingest.NewFile("bench.csv", generateTestCSV(200, 10)),
		Options: Options{RemoveDuplicates: true, FillMissing: true},
	}
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			svc.Process(ctx, req)
		}
	})
}

// ============================================================================
// Error Mapping Benchmarks
// ============================================================================

// BenchmarkMapError_Pattern hits the substring fallback, the slowest path.
func BenchmarkMapError_Pattern(b *testing.B) {
	err := errors.New("http: request body too large")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MapError(err)
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

// generateTestCSV builds rows x 4 columns where every dupEvery-th row repeats
// the one before it and every seventh amount is blank.
func generateTestCSV(rows, dupEvery int) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"id", "region", "amount", "qty"})
	for i := 0; i < rows; i++ {
		id := i
		if dupEvery > 0 && i%dupEvery == dupEvery-1 {
			id = i - 1
		}
		amount := strconv.Itoa(id*3) + ".5"
		if id%7 == 0 {
			amount = ""
		}
		w.Write([]string{
			strconv.Itoa(id),
			"north",
			amount,
			strconv.Itoa(id % 13),
		})
	}
	w.Flush()

	return buf.Bytes()
}
