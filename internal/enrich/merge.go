// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pdiddy/paper-enrich/pkg/types"
)

// errNoRecord marks a result element the service left empty.
var errNoRecord = errors.New("no record")

// batchPaper is one element of a /paper/batch response.
type batchPaper struct {
	PaperID       *string         `json:"paperId"`
	URL           *string         `json:"url"`
	Year          *int            `json:"year"`
	CitationCount *int            `json:"citationCount"`
	TLDR          json.RawMessage `json:"tldr"`
}

type batchTLDR struct {
	Model string  `json:"model"`
	Text  *string `json:"text"`
}

// Merge pairs ids with results by position. The batch endpoint returns one
// element per requested id in request order and echoes no identifier, so
// the pairing relies on that ordering. Identifiers whose element is
// missing, null, empty, or malformed go to the failure list; extra
// elements are ignored.
func Merge(ids []string, results []json.RawMessage) ([]types.PaperMetadata, []string) {
	var (
		records  []types.PaperMetadata
		failures []string
	)
	for i, id := range ids {
		if i >= len(results) {
			failures = append(failures, id)
			continue
		}
		rec, err := BuildRecord(id, results[i])
		if err != nil {
			failures = append(failures, id)
			continue
		}
		records = append(records, rec)
	}
	return records, failures
}

// BuildRecord flattens one batch result element into a metadata record
// for id. The nested tldr object is replaced by its text; a null or
// absent tldr leaves the summary empty.
func BuildRecord(id string, raw json.RawMessage) (types.PaperMetadata, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return types.PaperMetadata{}, errNoRecord
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return types.PaperMetadata{}, fmt.Errorf("malformed result for %s: %w", id, err)
	}
	if len(fields) == 0 {
		return types.PaperMetadata{}, errNoRecord
	}

	var p batchPaper
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return types.PaperMetadata{}, fmt.Errorf("malformed result for %s: %w", id, err)
	}

	rec := types.PaperMetadata{
		ID:            id,
		PaperID:       deref(p.PaperID),
		URL:           deref(p.URL),
		Year:          p.Year,
		CitationCount: p.CitationCount,
	}

	if t := bytes.TrimSpace(p.TLDR); len(t) > 0 && !bytes.Equal(t, []byte("null")) {
		var tldr batchTLDR
		if err := json.Unmarshal(t, &tldr); err != nil {
			return types.PaperMetadata{}, fmt.Errorf("malformed tldr for %s: %w", id, err)
		}
		rec.TLDR = deref(tldr.Text)
	}
	return rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
