package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/ingest"
)

// readFile loads a local file. Files over max are returned without data
// so the pipeline rejects them with the usual size error.
func readFile(path string, max int64) (ingest.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ingest.File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return ingest.File{}, fmt.Errorf("%s is a directory", path)
	}

	name := filepath.Base(path)
	if max > 0 && info.Size() > max {
		return ingest.File{Name: name, Size: info.Size()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ingest.NewFile(name, data), nil
}

// requests reads every path. A file that cannot be read is an error for
// the whole command; format problems are reported per file later.
func requests(paths []string, max int64, opts core.Options) ([]core.Request, error) {
	reqs := make([]core.Request, 0, len(paths))
	for _, p := range paths {
		f, err := readFile(p, max)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, core.Request{File: f, Options: opts})
	}
	return reqs, nil
}

// countFailed returns how many results carry an error.
func countFailed(results []core.Result) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}

var errOverwritesInput = errors.New("output would replace the input file")

// sameFile reports whether out already exists and is the file at in.
func sameFile(in, out string) bool {
	inInfo, err := os.Stat(in)
	if err != nil {
		return false
	}
	outInfo, err := os.Stat(out)
	if err != nil {
		return false
	}
	return os.SameFile(inInfo, outInfo)
}

// writeNew writes data to path, refusing to replace an existing file
// unless force is set.
func writeNew(path string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
