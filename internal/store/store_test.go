// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-enrich/internal/dataset"
	"github.com/pdiddy/paper-enrich/internal/output"
	"github.com/pdiddy/paper-enrich/pkg/types"
)

const resultsCSV = `id,citationCount,year,paperId,url,tldr,title
1001.0001,5,2020,abc,https://s2/abc,"short, summary",Paper one
1002.0002,,2021,def,https://s2/def,,Paper two
1003.0003,0,2019,ghi,https://s2/ghi,,Paper three
`

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{DBPath: filepath.Join(t.TempDir(), "db", "papers.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadInsertsAndSkips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sum, err := s.Load(ctx, strings.NewReader(resultsCSV))
	require.NoError(t, err)
	assert.Equal(t, LoadSummary{Inserted: 2, Skipped: 1}, sum)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err := s.Get(ctx, "1001.0001")
	require.NoError(t, err)
	assert.Equal(t, Paper{
		ArxivID:       "1001.0001",
		CitationCount: 5,
		Year:          2020,
		SemanticID:    "abc",
		URL:           "https://s2/abc",
		Title:         "Paper one",
		TLDR:          "short, summary",
	}, p)

	_, err = s.Get(ctx, "1002.0002")
	assert.ErrorContains(t, err, "not found")
}

func TestLoadIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, strings.NewReader(resultsCSV))
	require.NoError(t, err)
	sum, err := s.Load(ctx, strings.NewReader(resultsCSV))
	require.NoError(t, err)
	assert.Equal(t, LoadSummary{Ignored: 2, Skipped: 1}, sum)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLoadRequiresColumns(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load(context.Background(), strings.NewReader("id,title\n1,A\n"))
	assert.ErrorContains(t, err, `no "citationCount" column`)

	_, err = s.Load(context.Background(), strings.NewReader(""))
	assert.ErrorContains(t, err, "reading header")
}

func TestLoadFile(t *testing.T) {
	s := openTestStore(t)
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte(resultsCSV), 0o644))

	sum, err := s.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Inserted)

	_, err = s.LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "opening results")
}

func TestLoadKeepsServiceValuesOverInputColumns(t *testing.T) {
	input, err := dataset.New(
		[]string{"id", "title", "year"},
		[][]string{{"1001.0001", "Paper one", "1999"}},
	)
	require.NoError(t, err)

	year, cites := 2020, 7
	records := []types.PaperMetadata{{
		ID: "1001.0001", PaperID: "p1", URL: "https://s2/p1", Year: &year, CitationCount: &cites,
	}}
	results, _, _ := output.Join(records, input)
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, output.WriteCSV(path, results))

	s := openTestStore(t)
	_, err = s.LoadFile(context.Background(), path)
	require.NoError(t, err)

	p, err := s.Get(context.Background(), "1001.0001")
	require.NoError(t, err)
	assert.Equal(t, 2020, p.Year)
	assert.Equal(t, 7, p.CitationCount)
}

func TestLoadFirstDuplicateHeaderWins(t *testing.T) {
	s := openTestStore(t)
	csvData := "id,citationCount,year,paperId,url,tldr,title,year\n1,3,2020,p,https://s2/p,,T,1999\n"
	_, err := s.Load(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)

	p, err := s.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 2020, p.Year)
}
