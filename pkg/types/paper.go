// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strconv"

// ResultColumns is the header of the full results table, before the
// passthrough columns of the input table.
var ResultColumns = []string{"id", "citationCount", "year", "paperId", "url", "tldr"}

// ProjectionColumns is the header of the narrow table consumed by the
// citation graph builder.
var ProjectionColumns = []string{"paperId", "url", "title", "year", "citationCount"}

// PaperMetadata is the flat record built from one Semantic Scholar batch
// result. It lives only for the duration of a run.
type PaperMetadata struct {
	// ID is the original (unprefixed) identifier from the input table.
	ID string `json:"id" yaml:"id"`

	// PaperID is the Semantic Scholar paper identifier.
	PaperID string `json:"paperId" yaml:"paper_id"`

	// URL is the canonical Semantic Scholar page for the paper.
	URL string `json:"url" yaml:"url"`

	// Year is the publication year; nil when the service has none.
	Year *int `json:"year,omitempty" yaml:"year,omitempty"`

	// CitationCount is nil when the service has none.
	CitationCount *int `json:"citationCount,omitempty" yaml:"citation_count,omitempty"`

	// TLDR is the auto-generated summary text, empty when absent.
	TLDR string `json:"tldr,omitempty" yaml:"tldr,omitempty"`
}

// Field returns the value of a result column as it is written to CSV.
// Unknown columns and missing numbers render as the empty string.
func (m PaperMetadata) Field(column string) string {
	switch column {
	case "id":
		return m.ID
	case "paperId":
		return m.PaperID
	case "url":
		return m.URL
	case "year":
		return formatInt(m.Year)
	case "citationCount":
		return formatInt(m.CitationCount)
	case "tldr":
		return m.TLDR
	default:
		return ""
	}
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// FailureList is the ordered list of identifiers that could not be resolved.
// It is persisted as a plain JSON array of strings.
type FailureList []string

// Dedupe returns the list with repeats removed, keeping first occurrences.
func (f FailureList) Dedupe() FailureList {
	seen := make(map[string]struct{}, len(f))
	out := make(FailureList, 0, len(f))
	for _, id := range f {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
