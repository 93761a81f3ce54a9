// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus counters for an enrich run. A batch
// job has no scrape endpoint, so the registry is exported to a textfile at
// the end of the run for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for chunk counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Recorder collects per-run counters on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	Chunks      *prometheus.CounterVec
	Retries     prometheus.Counter
	Resolved    prometheus.Counter
	Unresolved  prometheus.Counter
	JoinDropped prometheus.Counter
	RequestTime prometheus.Histogram
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paper_enrich_chunks_total",
			Help: "Batch lookups by outcome",
		}, []string{"outcome"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paper_enrich_retries_total",
			Help: "Batch lookup attempts that were retried",
		}),
		Resolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paper_enrich_papers_resolved_total",
			Help: "Identifiers that produced a metadata record",
		}),
		Unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paper_enrich_papers_unresolved_total",
			Help: "Identifiers added to the failure list",
		}),
		JoinDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paper_enrich_join_dropped_total",
			Help: "Metadata records with no matching input row",
		}),
		RequestTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "paper_enrich_request_duration_seconds",
			Help:    "Duration of a single batch lookup request",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}
	r.registry.MustRegister(r.Chunks, r.Retries, r.Resolved, r.Unresolved, r.JoinDropped, r.RequestTime)
	return r
}

// Gatherer exposes the registry for tests and exporters.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the registry in Prometheus text format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
