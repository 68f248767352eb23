// Package profile persists interpreter run statistics to SQLite.
package profile

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/chazu/teenyjvm/pkg/interp"
)

// Run is one recorded interpreter execution.
type Run struct {
	ID        string
	ClassFile string
	StartedAt time.Time
	Duration  time.Duration
	OK        bool
}

// NewRun stamps a fresh run record for the given class file.
func NewRun(classFile string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		ClassFile: classFile,
		StartedAt: time.Now(),
	}
}

// Store records runs and their opcode/method counters in a SQLite
// database. One process writes at a time; the busy timeout covers the
// occasional concurrent CLI invocation.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the profile database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		class_file TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_us INTEGER NOT NULL,
		ok INTEGER NOT NULL,
		max_call_depth INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS op_counts (
		run_id TEXT NOT NULL REFERENCES runs(id),
		mnemonic TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, mnemonic)
	);
	CREATE TABLE IF NOT EXISTS method_calls (
		run_id TEXT NOT NULL REFERENCES runs(id),
		method TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, method)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record writes one run and its profiler counters in a single
// transaction.
func (s *Store) Record(run *Run, prof *interp.Profiler) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO runs (id, class_file, started_at, duration_us, ok, max_call_depth) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID, run.ClassFile, run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Duration.Microseconds(), run.OK, prof.MaxCallDepth(),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	opStmt, err := tx.Prepare("INSERT INTO op_counts (run_id, mnemonic, count) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing op insert: %w", err)
	}
	defer opStmt.Close()
	for _, e := range prof.OpCounts() {
		if _, err := opStmt.Exec(run.ID, e.Op.String(), e.Count); err != nil {
			return fmt.Errorf("saving op count %s: %w", e.Op, err)
		}
	}

	callStmt, err := tx.Prepare("INSERT INTO method_calls (run_id, method, count) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing call insert: %w", err)
	}
	defer callStmt.Close()
	for _, e := range prof.CallCounts() {
		if _, err := callStmt.Exec(run.ID, e.Method, e.Count); err != nil {
			return fmt.Errorf("saving call count %s: %w", e.Method, err)
		}
	}

	return tx.Commit()
}

// OpCount reads back one opcode counter for a run. Returns 0 when the
// row doesn't exist.
func (s *Store) OpCount(runID, mnemonic string) (uint64, error) {
	var count uint64
	err := s.db.QueryRow(
		"SELECT count FROM op_counts WHERE run_id = ? AND mnemonic = ?",
		runID, mnemonic,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading op count: %w", err)
	}
	return count, nil
}

// RunCount returns the number of recorded runs.
func (s *Store) RunCount() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}
	return count, nil
}
