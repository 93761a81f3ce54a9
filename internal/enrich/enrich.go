// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich runs the batch lookup pipeline: chunk the input
// identifiers, look each chunk up, merge the results, and write the joined
// tables and failure list.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-enrich/internal/batch"
	"github.com/pdiddy/paper-enrich/internal/dataset"
	"github.com/pdiddy/paper-enrich/internal/httputil"
	"github.com/pdiddy/paper-enrich/internal/logging"
	"github.com/pdiddy/paper-enrich/internal/metrics"
	"github.com/pdiddy/paper-enrich/internal/output"
	"github.com/pdiddy/paper-enrich/internal/s2"
	"github.com/pdiddy/paper-enrich/pkg/types"
)

// Fetcher looks up one chunk of namespaced identifiers. A chunk that
// could not be fetched after retries returns an error wrapping
// s2.ErrChunkFailed.
type Fetcher interface {
	FetchBatch(ctx context.Context, ids []string) ([]json.RawMessage, error)
}

// Result is the accumulated outcome of the lookup phase.
type Result struct {
	Records      []types.PaperMetadata
	Failures     types.FailureList
	Chunks       int
	FailedChunks int
}

// Runner drives one enrich run. Chunks are processed strictly one after
// another on the calling goroutine.
type Runner struct {
	Fetcher Fetcher
	Cfg     types.EnrichConfig

	// Out receives human-readable progress and the final summary.
	Out io.Writer

	// Sleep paces consecutive chunks. Nil uses httputil.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	// Now stamps the run report. Nil uses time.Now.
	Now func() time.Time

	Metrics *metrics.Recorder

	log zerolog.Logger
}

// NewRunner returns a Runner wired with the package defaults.
func NewRunner(f Fetcher, cfg types.EnrichConfig, rec *metrics.Recorder, w io.Writer) *Runner {
	if rec == nil {
		rec = metrics.New()
	}
	if w == nil {
		w = io.Discard
	}
	return &Runner{
		Fetcher: f,
		Cfg:     cfg,
		Out:     w,
		Sleep:   httputil.Sleep,
		Now:     time.Now,
		Metrics: rec,
		log:     logging.NewLogger("enrich"),
	}
}

// Fetch looks up ids chunk by chunk and merges the responses. After each
// chunk except the last it pauses for Cfg.ChunkDelay.
//
// When a chunk fails and Cfg.AbortOnChunkFailure is set, Fetch stops and
// returns the partial Result with an error wrapping s2.ErrChunkFailed.
// Otherwise the chunk's identifiers are added to the failure list and the
// run continues. Any other fetch error, including context cancellation,
// stops the run.
func (r *Runner) Fetch(ctx context.Context, ids []string) (Result, error) {
	var res Result
	size := r.Cfg.ChunkSize
	total := batch.Count(len(ids), size)
	sleep := r.sleepFunc()

	fmt.Fprintf(r.out(), "Total papers to process: %d (%d chunks)\n", len(ids), total)

	for chunk := range batch.Chunks(ids, size) {
		if res.Chunks > 0 {
			if err := sleep(ctx, r.Cfg.ChunkDelay); err != nil {
				return res, err
			}
		}
		res.Chunks++

		results, err := r.Fetcher.FetchBatch(ctx, batch.Prefix(chunk, r.Cfg.SourceTag))
		if err != nil {
			if !errors.Is(err, s2.ErrChunkFailed) {
				return res, fmt.Errorf("chunk %d/%d: %w", res.Chunks, total, err)
			}
			res.FailedChunks++
			r.log.Error().
				Err(err).
				Int("chunk", res.Chunks).
				Int("chunks", total).
				Str("first_id", chunk[0]).
				Bool("abort", r.Cfg.AbortOnChunkFailure).
				Msg("chunk lookup failed")
			if r.Cfg.AbortOnChunkFailure {
				return res, fmt.Errorf("chunk %d/%d starting at %s: %w", res.Chunks, total, chunk[0], err)
			}
			res.Failures = append(res.Failures, chunk...)
			r.Metrics.Unresolved.Add(float64(len(chunk)))
			fmt.Fprintf(r.out(), "chunk %d/%d: failed, %d papers recorded as unresolved\n", res.Chunks, total, len(chunk))
			continue
		}

		records, failed := Merge(chunk, results)
		res.Records = append(res.Records, records...)
		res.Failures = append(res.Failures, failed...)
		r.Metrics.Resolved.Add(float64(len(records)))
		r.Metrics.Unresolved.Add(float64(len(failed)))

		r.log.Debug().
			Int("chunk", res.Chunks).
			Int("resolved", len(records)).
			Int("unresolved", len(failed)).
			Msg("chunk merged")
		fmt.Fprintf(r.out(), "chunk %d/%d: %d resolved, %d unresolved\n", res.Chunks, total, len(records), len(failed))
	}
	return res, nil
}

// Run performs a complete enrich run over input: lookup, inner join,
// output, and the optional report and metrics files. Nothing is written
// when the lookup phase fails.
func (r *Runner) Run(ctx context.Context, input *dataset.Table, inputPath string) (output.Report, error) {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	report := output.Report{
		Mode:        output.ModeFull,
		Input:       inputPath,
		Identifiers: input.Len(),
		StartedAt:   now().UTC(),
	}
	if r.Cfg.Incremental {
		report.Mode = output.ModeIncremental
	}

	res, err := r.Fetch(ctx, input.IDs())
	if err != nil {
		return report, err
	}

	results, projection, dropped := output.Join(res.Records, input)
	if dropped > 0 {
		r.Metrics.JoinDropped.Add(float64(dropped))
		r.log.Debug().Int("dropped", dropped).Msg("records without a matching input row")
	}

	w := output.NewWriter(r.Cfg.OutputConfig)
	if err := w.Write(r.Cfg.Incremental, results, projection, res.Failures); err != nil {
		return report, err
	}

	report.Chunks = res.Chunks
	report.FailedChunks = res.FailedChunks
	report.Resolved = len(res.Records)
	report.Unresolved = len(res.Failures)
	report.Rows = results.Len()
	report.JoinDropped = dropped
	report.FinishedAt = now().UTC()

	if r.Cfg.ReportPath != "" {
		if err := output.WriteReport(r.Cfg.ReportPath, report); err != nil {
			return report, fmt.Errorf("writing report: %w", err)
		}
	}
	if r.Cfg.MetricsPath != "" {
		if err := r.Metrics.WriteTextfile(r.Cfg.MetricsPath); err != nil {
			return report, err
		}
	}

	if r.Cfg.Incremental {
		fmt.Fprintf(r.out(), "Appended %d new entries\n", report.Rows)
	} else {
		fmt.Fprintf(r.out(), "Total entries %d\n", report.Rows)
	}
	fmt.Fprintf(r.out(), "Unresolved: %d (see %s)\n", report.Unresolved, r.Cfg.FailuresPath)

	r.log.Info().
		Str("mode", report.Mode).
		Int("identifiers", report.Identifiers).
		Int("rows", report.Rows).
		Int("unresolved", report.Unresolved).
		Dur("duration", report.Duration()).
		Msg("enrich run complete")
	return report, nil
}

func (r *Runner) sleepFunc() func(context.Context, time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep
	}
	return httputil.Sleep
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return io.Discard
}
