package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lehigh-university-libraries/refeval/internal/eval/metrics"
	"github.com/lehigh-university-libraries/refeval/internal/evaluation"
	"github.com/lehigh-university-libraries/refeval/internal/models"
)

var ErrRunNotFound = errors.New("run not found")

// Store records evaluation runs in a SQLite database
type Store struct {
	db *sql.DB
}

// Open opens or creates the run history database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			gold_dir TEXT,
			output_dir TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS parser_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			parser TEXT NOT NULL,
			ref_gs INTEGER, ref_out INTEGER, ref_correct INTEGER,
			meta_gs INTEGER, meta_out INTEGER, meta_correct INTEGER,
			text_gs INTEGER, text_out INTEGER, text_correct INTEGER,
			missing TEXT,
			skipped TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_parser_results_run_id ON parser_results(run_id)`,
		`CREATE TABLE IF NOT EXISTS file_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			parser_result_id INTEGER NOT NULL REFERENCES parser_results(id) ON DELETE CASCADE,
			file TEXT NOT NULL,
			missing INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			ref_gs INTEGER, ref_out INTEGER, ref_correct INTEGER,
			meta_gs INTEGER, meta_out INTEGER, meta_correct INTEGER,
			text_gs INTEGER, text_out INTEGER, text_correct INTEGER,
			processing_ns INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_file_results_parser ON file_results(parser_result_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun records a run with all of its parser and file results and
// returns the run id
func (s *Store) SaveRun(ctx context.Context, run *evaluation.Results) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, gold_dir, output_dir) VALUES (?, ?, ?)`,
		run.Timestamp.UTC().Format(time.RFC3339Nano), run.GoldDir, run.OutputDir,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for _, p := range run.Parsers {
		missing, _ := json.Marshal(p.Missing)
		skipped, _ := json.Marshal(p.Skipped)
		c := p.Counts
		res, err := tx.ExecContext(ctx,
			`INSERT INTO parser_results (run_id, parser,
				ref_gs, ref_out, ref_correct, meta_gs, meta_out, meta_correct, text_gs, text_out, text_correct,
				missing, skipped)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, p.Parser,
			c.RefGS, c.RefOut, c.RefCorrect, c.MetaGS, c.MetaOut, c.MetaCorrect, c.TextGS, c.TextOut, c.TextCorrect,
			string(missing), string(skipped),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting parser %s: %w", p.Parser, err)
		}
		parserID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading parser result id: %w", err)
		}

		for _, f := range p.Files {
			fc := f.Counts
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO file_results (parser_result_id, file, missing, skipped,
					ref_gs, ref_out, ref_correct, meta_gs, meta_out, meta_correct, text_gs, text_out, text_correct,
					processing_ns)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				parserID, f.File, f.Missing, f.Skipped,
				fc.RefGS, fc.RefOut, fc.RefCorrect, fc.MetaGS, fc.MetaOut, fc.MetaCorrect, fc.TextGS, fc.TextOut, fc.TextCorrect,
				f.ProcessingTime.Nanoseconds(),
			); err != nil {
				return 0, fmt.Errorf("inserting file %s: %w", f.File, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	run.ID = runID
	return runID, nil
}

// ListRuns returns all recorded runs, newest first
func (s *Store) ListRuns(ctx context.Context) ([]models.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, gold_dir, output_dir FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		var r models.RunSummary
		var created string
		if err := rows.Scan(&r.ID, &created, &r.GoldDir, &r.OutputDir); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		parsers, err := s.parserResults(ctx, runs[i].ID, false)
		if err != nil {
			return nil, err
		}
		for _, p := range parsers {
			runs[i].Parsers = append(runs[i].Parsers, models.ParserSummary{
				Parser:  p.Parser,
				Metrics: p.Metrics,
				Files:   p.TotalFiles,
				Missing: len(p.Missing),
			})
		}
	}
	return runs, nil
}

// GetRun loads a recorded run with its per-file results
func (s *Store) GetRun(ctx context.Context, id int64) (*evaluation.Results, error) {
	var created string
	run := &evaluation.Results{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, gold_dir, output_dir FROM runs WHERE id = ?`, id,
	).Scan(&created, &run.GoldDir, &run.OutputDir)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %d: %w", id, err)
	}
	run.Timestamp, _ = time.Parse(time.RFC3339Nano, created)

	run.Parsers, err = s.parserResults(ctx, id, true)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) parserResults(ctx context.Context, runID int64, withFiles bool) ([]*metrics.ParserResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parser,
			ref_gs, ref_out, ref_correct, meta_gs, meta_out, meta_correct, text_gs, text_out, text_correct,
			missing, skipped,
			(SELECT count(*) FROM file_results f WHERE f.parser_result_id = p.id)
		FROM parser_results p WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying parser results: %w", err)
	}
	defer rows.Close()

	var ids []int64
	var out []*metrics.ParserResult
	for rows.Next() {
		var id int64
		var missing, skipped string
		p := &metrics.ParserResult{}
		c := &p.Counts
		if err := rows.Scan(&id, &p.Parser,
			&c.RefGS, &c.RefOut, &c.RefCorrect, &c.MetaGS, &c.MetaOut, &c.MetaCorrect, &c.TextGS, &c.TextOut, &c.TextCorrect,
			&missing, &skipped, &p.TotalFiles,
		); err != nil {
			return nil, fmt.Errorf("scanning parser result: %w", err)
		}
		_ = json.Unmarshal([]byte(missing), &p.Missing)
		_ = json.Unmarshal([]byte(skipped), &p.Skipped)
		p.Metrics = metrics.Compute(p.Counts)
		ids = append(ids, id)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if withFiles {
		for i, p := range out {
			if p.Files, err = s.fileResults(ctx, ids[i]); err != nil {
				return nil, err
			}
			for _, f := range p.Files {
				p.TotalProcessingTime += f.ProcessingTime
			}
		}
	}
	return out, nil
}

func (s *Store) fileResults(ctx context.Context, parserID int64) ([]metrics.FileResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file, missing, skipped,
			ref_gs, ref_out, ref_correct, meta_gs, meta_out, meta_correct, text_gs, text_out, text_correct,
			processing_ns
		FROM file_results WHERE parser_result_id = ? ORDER BY file`, parserID)
	if err != nil {
		return nil, fmt.Errorf("querying file results: %w", err)
	}
	defer rows.Close()

	var files []metrics.FileResult
	for rows.Next() {
		var f metrics.FileResult
		var ns int64
		c := &f.Counts
		if err := rows.Scan(&f.File, &f.Missing, &f.Skipped,
			&c.RefGS, &c.RefOut, &c.RefCorrect, &c.MetaGS, &c.MetaOut, &c.MetaCorrect, &c.TextGS, &c.TextOut, &c.TextCorrect,
			&ns,
		); err != nil {
			return nil, fmt.Errorf("scanning file result: %w", err)
		}
		f.ProcessingTime = time.Duration(ns)
		f.Metrics = metrics.Compute(f.Counts)
		files = append(files, f)
	}
	return files, rows.Err()
}
