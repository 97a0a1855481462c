// Package store archives derived run views in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/splitstats/internal/model"
	"github.com/verte-zerg/splitstats/internal/splits"
	"github.com/verte-zerg/splitstats/internal/stats"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Series kinds stored in segment_series.
const (
	SeriesLength  = "length"
	SeriesElapsed = "elapsed"
)

// ErrNotFound reports an import id that is not in the archive.
var ErrNotFound = errors.New("not found")

// Store wraps SQLite access for archived reports.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS imports (
			id INTEGER PRIMARY KEY,
			source TEXT NOT NULL,
			game TEXT NOT NULL,
			category TEXT NOT NULL,
			timing TEXT NOT NULL,
			imported_at TEXT NOT NULL,
			attempt_count INTEGER NOT NULL,
			completed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS completed_runs (
			import_id INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			seconds REAL NOT NULL,
			new_best INTEGER NOT NULL,
			PRIMARY KEY (import_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			import_id INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			attempt_id INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			minutes REAL NOT NULL,
			completed INTEGER NOT NULL,
			seconds REAL NOT NULL,
			PRIMARY KEY (import_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS segments (
			import_id INTEGER NOT NULL,
			segment_key TEXT NOT NULL,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			samples INTEGER NOT NULL,
			best REAL NOT NULL,
			median REAL NOT NULL,
			PRIMARY KEY (import_id, segment_key)
		);`,
		`CREATE TABLE IF NOT EXISTS segment_series (
			import_id INTEGER NOT NULL,
			segment_key TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			idx INTEGER NOT NULL,
			seconds REAL NOT NULL,
			PRIMARY KEY (import_id, segment_key, kind, idx)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_imports_imported_at ON imports(imported_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveReport stores the derived views of one report in a single transaction.
func (s *Store) SaveReport(ctx context.Context, source string, report stats.Report) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO imports (source, game, category, timing, imported_at, attempt_count, completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		source,
		report.Game,
		report.Category,
		report.Timing.String(),
		s.now().UTC().Format(time.RFC3339Nano),
		report.AttemptCount,
		report.History.CompletedCount(),
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, seconds := range report.History.Times {
		newBest := i < len(report.BestMarks) && report.BestMarks[i]
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO completed_runs (import_id, idx, started_at, seconds, new_best) VALUES (?, ?, ?, ?, ?)`,
			id, i, report.History.Dates[i].Format(time.RFC3339), seconds, newBest,
		); err != nil {
			return 0, err
		}
	}
	for i, a := range report.History.Attempts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO attempts (import_id, idx, attempt_id, started_at, ended_at, minutes, completed, seconds)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, a.ID, a.Started.Format(time.RFC3339), a.Ended.Format(time.RFC3339), a.Minutes, a.Completed, a.Seconds,
		); err != nil {
			return 0, err
		}
	}
	for _, seg := range report.Segments {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO segments (import_id, segment_key, name, position, samples, best, median)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, seg.Key, seg.Name, seg.Position, seg.Samples, seg.Best, seg.Median,
		); err != nil {
			return 0, err
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segment_series (import_id, segment_key, name, kind, idx, seconds) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, seg := range report.Segments {
		for kind, values := range map[string][]float64{SeriesLength: seg.Lengths, SeriesElapsed: seg.Elapsed} {
			for i, v := range values {
				if _, err = stmt.ExecContext(ctx, id, seg.Key, seg.Name, kind, i, v); err != nil {
					return 0, err
				}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

const importColumns = `id, source, game, category, timing, imported_at, attempt_count, completed`

// ListImports returns archived imports, oldest first.
func (s *Store) ListImports(ctx context.Context) ([]model.ImportSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+importColumns+`
		 FROM imports
		 ORDER BY imported_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ImportSummary
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Import returns one archived import. A missing id yields ErrNotFound.
func (s *Store) Import(ctx context.Context, importID int64) (model.ImportSummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+importColumns+` FROM imports WHERE id = ?`, importID)
	imp, err := scanImport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ImportSummary{}, fmt.Errorf("import %d: %w", importID, ErrNotFound)
	}
	return imp, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImport(row scanner) (model.ImportSummary, error) {
	var imp model.ImportSummary
	var importedAt string
	if err := row.Scan(&imp.ID, &imp.Source, &imp.Game, &imp.Category, &imp.Timing, &importedAt, &imp.Attempts, &imp.Completed); err != nil {
		return model.ImportSummary{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, importedAt)
	if err != nil {
		return model.ImportSummary{}, err
	}
	imp.ImportedAt = parsed
	return imp, nil
}

// CompletedRun is one archived completion.
type CompletedRun struct {
	StartedAt time.Time
	Seconds   float64
	NewBest   bool
}

// CompletedRuns returns the archived completions of an import in run order.
func (s *Store) CompletedRuns(ctx context.Context, importID int64) ([]CompletedRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT started_at, seconds, new_best FROM completed_runs WHERE import_id = ? ORDER BY idx`, importID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []CompletedRun
	for rows.Next() {
		var run CompletedRun
		var startedAt string
		if err := rows.Scan(&startedAt, &run.Seconds, &run.NewBest); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Attempts returns the archived attempts of an import in record order.
func (s *Store) Attempts(ctx context.Context, importID int64) ([]splits.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT attempt_id, started_at, ended_at, minutes, completed, seconds
		 FROM attempts WHERE import_id = ? ORDER BY idx`, importID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []splits.Attempt
	for rows.Next() {
		var a splits.Attempt
		var started, ended string
		if err := rows.Scan(&a.ID, &started, &ended, &a.Minutes, &a.Completed, &a.Seconds); err != nil {
			return nil, err
		}
		if a.Started, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, err
		}
		if a.Ended, err = time.Parse(time.RFC3339, ended); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Segments returns the archived segment summaries of an import in definition order, with
// their trimmed series attached.
func (s *Store) Segments(ctx context.Context, importID int64) ([]stats.SegmentSummary, error) {
	result, err := s.segmentSummaries(ctx, importID)
	if err != nil {
		return nil, err
	}
	for i := range result {
		if result[i].Lengths, err = s.SegmentSeries(ctx, importID, result[i].Key, SeriesLength); err != nil {
			return nil, err
		}
		if result[i].Elapsed, err = s.SegmentSeries(ctx, importID, result[i].Key, SeriesElapsed); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) segmentSummaries(ctx context.Context, importID int64) ([]stats.SegmentSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment_key, name, position, samples, best, median
		 FROM segments WHERE import_id = ? ORDER BY position`, importID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []stats.SegmentSummary
	for rows.Next() {
		var seg stats.SegmentSummary
		if err := rows.Scan(&seg.Key, &seg.Name, &seg.Position, &seg.Samples, &seg.Best, &seg.Median); err != nil {
			return nil, err
		}
		result = append(result, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LoadReport rebuilds the summary view of an archived import. Chart specs are not archived,
// so Charts stays empty.
func (s *Store) LoadReport(ctx context.Context, importID int64) (stats.Report, error) {
	imp, err := s.Import(ctx, importID)
	if err != nil {
		return stats.Report{}, err
	}
	timing, err := splits.ParseTimingMethod(imp.Timing)
	if err != nil {
		return stats.Report{}, err
	}
	report := stats.Report{
		Game:         imp.Game,
		Category:     imp.Category,
		AttemptCount: imp.Attempts,
		Timing:       timing,
	}

	runs, err := s.CompletedRuns(ctx, importID)
	if err != nil {
		return stats.Report{}, err
	}
	for _, run := range runs {
		report.History.Times = append(report.History.Times, run.Seconds)
		report.History.Dates = append(report.History.Dates, run.StartedAt)
		report.BestMarks = append(report.BestMarks, run.NewBest)
	}

	attempts, err := s.Attempts(ctx, importID)
	if err != nil {
		return stats.Report{}, err
	}
	report.History.Attempts = attempts
	for _, a := range attempts {
		report.History.Durations = append(report.History.Durations, a.Minutes)
		report.History.Completed = append(report.History.Completed, a.Completed)
	}

	if report.Segments, err = s.Segments(ctx, importID); err != nil {
		return stats.Report{}, err
	}
	return report, nil
}

// SegmentSeries returns one archived series of a segment in sample order.
func (s *Store) SegmentSeries(ctx context.Context, importID int64, key, kind string) ([]float64, error) {
	return s.floats(ctx,
		`SELECT seconds FROM segment_series WHERE import_id = ? AND segment_key = ? AND kind = ? ORDER BY idx`,
		importID, key, kind)
}

func (s *Store) floats(ctx context.Context, query string, args ...any) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
