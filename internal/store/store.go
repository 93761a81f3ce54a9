// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store loads enriched paper tables into the SQLite database read
// by the citation graph builder.
package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-enrich/internal/logging"
	"github.com/pdiddy/paper-enrich/pkg/types"
)

// Store manages the paper_info SQLite database.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Paper is one row of paper_info.
type Paper struct {
	ArxivID       string
	CitationCount int
	Year          int
	SemanticID    string
	URL           string
	Title         string
	TLDR          string
}

// LoadSummary counts the outcome of a Load call.
type LoadSummary struct {
	Inserted int
	Ignored  int
	Skipped  int
}

// Open opens or creates the database at cfg.DBPath and creates the schema
// if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, log: logging.NewLogger("store")}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS paper_info (
			arxiv_id TEXT,
			citation_count INTEGER,
			year INTEGER,
			semantic_id TEXT,
			url TEXT PRIMARY KEY,
			title TEXT,
			tldr TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_info_arxiv_id ON paper_info(arxiv_id)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_info_semantic_id ON paper_info(semantic_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// LoadFile loads a results table written by the enrich stage.
func (s *Store) LoadFile(ctx context.Context, path string) (LoadSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadSummary{}, fmt.Errorf("opening results: %w", err)
	}
	defer f.Close()
	return s.Load(ctx, f)
}

// Load reads a results CSV from r and inserts every row into paper_info in
// a single transaction. Rows whose url is already stored are ignored;
// rows with a non-integer year or citation count are skipped.
func (s *Store) Load(ctx context.Context, r io.Reader) (LoadSummary, error) {
	var sum LoadSummary

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return sum, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		// First occurrence wins; later duplicates are passthrough copies.
		if _, ok := col[strings.TrimSpace(h)]; !ok {
			col[strings.TrimSpace(h)] = i
		}
	}
	for _, required := range []string{"id", "citationCount", "year", "paperId", "url"} {
		if _, ok := col[required]; !ok {
			return sum, fmt.Errorf("results table has no %q column", required)
		}
	}
	get := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sum, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO paper_info
		(arxiv_id, citation_count, year, semantic_id, url, title, tldr)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return sum, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return sum, fmt.Errorf("reading line %d: %w", line, err)
		}

		cites, cErr := strconv.Atoi(strings.TrimSpace(get(rec, "citationCount")))
		year, yErr := strconv.Atoi(strings.TrimSpace(get(rec, "year")))
		if cErr != nil || yErr != nil {
			s.log.Debug().Int("line", line).Str("id", get(rec, "id")).Msg("skipping row with non-integer year or citation count")
			sum.Skipped++
			continue
		}

		res, err := stmt.ExecContext(ctx,
			get(rec, "id"), cites, year, get(rec, "paperId"), get(rec, "url"),
			get(rec, "title"), get(rec, "tldr"))
		if err != nil {
			return sum, fmt.Errorf("inserting line %d: %w", line, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			sum.Inserted++
		} else {
			sum.Ignored++
		}
	}

	if err := tx.Commit(); err != nil {
		return sum, fmt.Errorf("committing: %w", err)
	}
	s.log.Info().
		Int("inserted", sum.Inserted).
		Int("ignored", sum.Ignored).
		Int("skipped", sum.Skipped).
		Msg("paper_info loaded")
	return sum, nil
}

// Count returns the number of rows in paper_info.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM paper_info`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

// Get returns the paper stored for an arXiv identifier.
func (s *Store) Get(ctx context.Context, arxivID string) (Paper, error) {
	var p Paper
	err := s.db.QueryRowContext(ctx, `SELECT arxiv_id, citation_count, year, semantic_id, url, title, tldr
		FROM paper_info WHERE arxiv_id = ?`, arxivID).
		Scan(&p.ArxivID, &p.CitationCount, &p.Year, &p.SemanticID, &p.URL, &p.Title, &p.TLDR)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("paper %s not found", arxivID)
	}
	if err != nil {
		return p, fmt.Errorf("querying paper %s: %w", arxivID, err)
	}
	return p, nil
}
