// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/pdiddy/paper-enrich/pkg/types"
)

// ErrHeaderMismatch is returned when appending to a CSV whose header does
// not match the rows being appended.
var ErrHeaderMismatch = errors.New("header mismatch")

// Writer persists the outputs of one enrich run.
type Writer struct {
	ResultsPath    string
	ProjectionPath string
	FailuresPath   string
	DedupeFailures bool
}

// NewWriter returns a Writer for the configured output paths.
func NewWriter(cfg types.OutputConfig) *Writer {
	return &Writer{
		ResultsPath:    cfg.ResultsPath,
		ProjectionPath: cfg.ProjectionPath,
		FailuresPath:   cfg.FailuresPath,
		DedupeFailures: cfg.DedupeFailures,
	}
}

// Write dispatches to Append for incremental runs and WriteFull otherwise.
func (w *Writer) Write(incremental bool, results, projection Table, failures types.FailureList) error {
	if incremental {
		return w.Append(results, projection, failures)
	}
	return w.WriteFull(results, projection, failures)
}

// WriteFull replaces all three outputs.
func (w *Writer) WriteFull(results, projection Table, failures types.FailureList) error {
	if err := WriteCSV(w.ResultsPath, results); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	if err := WriteCSV(w.ProjectionPath, projection); err != nil {
		return fmt.Errorf("writing projection: %w", err)
	}
	if w.DedupeFailures {
		failures = failures.Dedupe()
	}
	if err := WriteFailures(w.FailuresPath, failures); err != nil {
		return fmt.Errorf("writing failures: %w", err)
	}
	return nil
}

// Append adds rows to the existing tables without repeating the header and
// rewrites the failure list as the previous entries followed by the new
// ones. Repeated identifiers accumulate unless DedupeFailures is set.
func (w *Writer) Append(results, projection Table, failures types.FailureList) error {
	if err := AppendCSV(w.ResultsPath, results); err != nil {
		return fmt.Errorf("appending results: %w", err)
	}
	if err := AppendCSV(w.ProjectionPath, projection); err != nil {
		return fmt.Errorf("appending projection: %w", err)
	}

	existing, err := ReadFailures(w.FailuresPath)
	if err != nil {
		return fmt.Errorf("reading failures: %w", err)
	}
	combined := append(existing, failures...)
	if w.DedupeFailures {
		combined = combined.Dedupe()
	}
	if err := WriteFailures(w.FailuresPath, combined); err != nil {
		return fmt.Errorf("writing failures: %w", err)
	}
	return nil
}

// WriteCSV writes t with its header to path, replacing any existing file.
// The data goes to a temporary file first and is renamed into place.
func WriteCSV(path string, t Table) error {
	return writeAtomic(path, func(f io.Writer) error {
		cw := csv.NewWriter(f)
		if err := cw.Write(t.Header); err != nil {
			return err
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return err
		}
		return cw.Error()
	})
}

// AppendCSV appends the rows of t to path. The header is written only when
// the file does not exist or is empty; otherwise the existing header must
// equal t.Header.
func AppendCSV(path string, t Table) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	header, err := readHeader(path)
	if err != nil {
		return err
	}
	if header != nil && !slices.Equal(header, t.Header) {
		return fmt.Errorf("%w in %s: have %v, appending %v", ErrHeaderMismatch, path, header, t.Header)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	writeErr := appendRows(f, t, header == nil)
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("appending to %s: %w", path, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing %s: %w", path, closeErr)
	}
	return nil
}

// appendRows encodes the rows of t to w, preceded by the header when
// withHeader is set.
func appendRows(w io.Writer, t Table, withHeader bool) error {
	cw := csv.NewWriter(w)
	if withHeader {
		if err := cw.Write(t.Header); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// readHeader returns the first CSV record of path, or nil when the file is
// missing or empty.
func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	return header, nil
}

// ReadFailures loads a failure list. A missing file is an empty list.
func ReadFailures(path string) (types.FailureList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.FailureList{}, nil
		}
		return nil, err
	}
	var list types.FailureList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if list == nil {
		list = types.FailureList{}
	}
	return list, nil
}

// WriteFailures writes list to path as a JSON array, replacing the file.
// A nil list is written as [].
func WriteFailures(path string, list types.FailureList) error {
	if list == nil {
		list = types.FailureList{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding failure list: %w", err)
	}
	return writeAtomic(path, func(f io.Writer) error {
		_, err := f.Write(data)
		return err
	})
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// writeAtomic writes via a temporary file in the destination directory and
// renames it over path on success.
func writeAtomic(path string, fill func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".enrich-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	fillErr := fill(tmpFile)
	closeErr := tmpFile.Close()
	if fillErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, fillErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
