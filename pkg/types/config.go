// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Defaults for the Semantic Scholar batch lookup.
const (
	DefaultBaseURL    = "https://api.semanticscholar.org/graph/v1"
	DefaultFields     = "url,year,citationCount,tldr"
	DefaultSourceTag  = "ARXIV"
	DefaultChunkSize  = 500
	DefaultAttempts   = 3
	DefaultRetryDelay = 40 * time.Second
	DefaultChunkDelay = 60 * time.Second
	DefaultTimeout    = 120 * time.Second
	DefaultUserAgent  = "paper-enrich/0.1"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-enrich/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// LookupConfig holds settings for the Semantic Scholar batch lookup stage.
type LookupConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the Graph API root; requests go to BaseURL + "/paper/batch/".
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is sent as the x-api-key header when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Fields is the comma-separated field list requested per paper.
	Fields string `json:"fields" yaml:"fields" mapstructure:"fields"`

	// SourceTag namespaces every identifier in the request body (e.g. "ARXIV").
	SourceTag string `json:"source_tag" yaml:"source_tag" mapstructure:"source_tag"`

	// ChunkSize is the number of identifiers per request (max 500).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`

	// MaxAttempts is the number of tries per chunk before it is marked failed.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// RetryDelay is the fixed pause between attempts on the same chunk.
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// ChunkDelay is the fixed pause after each chunk before the next one starts.
	ChunkDelay time.Duration `json:"chunk_delay" yaml:"chunk_delay" mapstructure:"chunk_delay"`
}

// OutputConfig names the files an enrich run reads and writes.
type OutputConfig struct {
	// InputPath is the identifier table used for full runs.
	InputPath string `json:"input_path" yaml:"input_path" mapstructure:"input_path"`

	// NewInputPath is the identifier table used for incremental runs.
	NewInputPath string `json:"new_input_path" yaml:"new_input_path" mapstructure:"new_input_path"`

	// ResultsPath is the full joined results table.
	ResultsPath string `json:"results_path" yaml:"results_path" mapstructure:"results_path"`

	// ProjectionPath is the narrow table consumed by the graph builder.
	ProjectionPath string `json:"projection_path" yaml:"projection_path" mapstructure:"projection_path"`

	// FailuresPath is the JSON array of unresolved identifiers.
	FailuresPath string `json:"failures_path" yaml:"failures_path" mapstructure:"failures_path"`

	// ReportPath is the YAML run report. Empty disables the report.
	ReportPath string `json:"report_path" yaml:"report_path" mapstructure:"report_path"`

	// MetricsPath is a Prometheus textfile written at the end of a run.
	// Empty disables the export.
	MetricsPath string `json:"metrics_path" yaml:"metrics_path" mapstructure:"metrics_path"`

	// DedupeFailures drops repeated identifiers when appending to the
	// failure list. Off by default so repeats accumulate.
	DedupeFailures bool `json:"dedupe_failures" yaml:"dedupe_failures" mapstructure:"dedupe_failures"`
}

// StoreConfig holds settings for the SQLite result store.
type StoreConfig struct {
	// DBPath is the SQLite database file.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// LogConfig selects logger verbosity and format.
type LogConfig struct {
	Level  string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	Pretty bool   `json:"log_pretty" yaml:"log_pretty" mapstructure:"log_pretty"`
}

// EnrichConfig groups all settings for the enrich pipeline.
type EnrichConfig struct {
	LookupConfig `yaml:",inline" mapstructure:",squash"`
	OutputConfig `yaml:",inline" mapstructure:",squash"`
	StoreConfig  `yaml:",inline" mapstructure:",squash"`
	LogConfig    `yaml:",inline" mapstructure:",squash"`

	// AbortOnChunkFailure stops the run at the first chunk whose retries
	// are exhausted. When false the chunk's identifiers are recorded as
	// failures and the run continues.
	AbortOnChunkFailure bool `json:"abort_on_chunk_failure" yaml:"abort_on_chunk_failure" mapstructure:"abort_on_chunk_failure"`

	// Incremental appends to existing outputs instead of replacing them.
	Incremental bool `json:"incremental" yaml:"incremental" mapstructure:"incremental"`
}

// DefaultEnrichConfig returns the settings the pipeline has always run with.
func DefaultEnrichConfig() EnrichConfig {
	return EnrichConfig{
		LookupConfig: LookupConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   DefaultTimeout,
				UserAgent: DefaultUserAgent,
			},
			BaseURL:     DefaultBaseURL,
			Fields:      DefaultFields,
			SourceTag:   DefaultSourceTag,
			ChunkSize:   DefaultChunkSize,
			MaxAttempts: DefaultAttempts,
			RetryDelay:  DefaultRetryDelay,
			ChunkDelay:  DefaultChunkDelay,
		},
		OutputConfig: OutputConfig{
			InputPath:      "data/arxiv_data.csv",
			NewInputPath:   "data/arxiv_data_new.csv",
			ResultsPath:    "data/arxiv_papers_with_semantic_scholar_ids.csv",
			ProjectionPath: "data/semantic_scholar_paper_details_for_c_code.csv",
			FailuresPath:   "data/arxiv_papers_with_no_sematic_scholar_ids.json",
			ReportPath:     "data/enrich_report.yaml",
		},
		StoreConfig: StoreConfig{
			DBPath: "data/papers.db",
		},
		LogConfig: LogConfig{
			Level: "info",
		},
		AbortOnChunkFailure: true,
	}
}

// SelectedInput returns the input table for the configured run mode.
func (c EnrichConfig) SelectedInput() string {
	if c.Incremental {
		return c.NewInputPath
	}
	return c.InputPath
}
