package tape

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore archives tape entries so runs can be compared after the fact.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a tape archive at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open tape archive: %w", err)
	}
	db.SetMaxOpenConns(1)
	s, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an existing database handle and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate tape archive: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS tape_entries (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		spy TEXT NOT NULL,
		call_count INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		args_hash TEXT NOT NULL,
		args TEXT NOT NULL,
		result TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL,
		duration_ns INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq)
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Save stores entries, replacing any entry with the same run and sequence.
func (s *SQLiteStore) Save(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tape archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT OR REPLACE INTO tape_entries (
		run_id, seq, spy, call_count, outcome, args_hash, args, result, error, timestamp, duration_ns
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, query,
			e.RunID, int64(e.Seq), e.Spy, e.Call, string(e.Outcome), e.ArgsHash,
			string(e.Args), string(e.Result), e.Error,
			e.Timestamp.UTC().Format(time.RFC3339Nano), e.DurationNs,
		)
		if err != nil {
			return fmt.Errorf("failed to insert tape entry seq=%d: %w", e.Seq, err)
		}
	}
	return tx.Commit()
}

// List returns the entries of one run in sequence order.
func (s *SQLiteStore) List(ctx context.Context, runID string) ([]Entry, error) {
	query := `
		SELECT run_id, seq, spy, call_count, outcome, args_hash, args, result, error, timestamp, duration_ns
		FROM tape_entries
		WHERE run_id = ?
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			seq     int64
			outcome string
			args    string
			result  string
			ts      string
		)
		if err := rows.Scan(&e.RunID, &seq, &e.Spy, &e.Call, &outcome, &e.ArgsHash, &args, &result, &e.Error, &ts, &e.DurationNs); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.Outcome = Outcome(outcome)
		e.Args = json.RawMessage(args)
		if result != "" {
			e.Result = json.RawMessage(result)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse tape entry timestamp seq=%d: %w", seq, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Runs returns the distinct run IDs in the archive.
func (s *SQLiteStore) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT run_id FROM tape_entries ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
