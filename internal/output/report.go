// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Run modes recorded in the report.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// Report summarises one enrich run.
type Report struct {
	Mode         string    `yaml:"mode"`
	Input        string    `yaml:"input"`
	Identifiers  int       `yaml:"identifiers"`
	Chunks       int       `yaml:"chunks"`
	FailedChunks int       `yaml:"failed_chunks"`
	Resolved     int       `yaml:"resolved"`
	Unresolved   int       `yaml:"unresolved"`
	Rows         int       `yaml:"rows_written"`
	JoinDropped  int       `yaml:"join_dropped"`
	StartedAt    time.Time `yaml:"started_at"`
	FinishedAt   time.Time `yaml:"finished_at"`
}

// Duration returns the wall time of the run.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// WriteReport writes r to path as YAML, replacing the file.
func WriteReport(path string, r Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return writeAtomic(path, func(f io.Writer) error {
		_, err := f.Write(data)
		return err
	})
}

// ReadReport reads a report written by WriteReport.
func ReadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}
