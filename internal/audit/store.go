package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is an optional secondary sink persisting entries to SQLite so
// operators can query the trail without scanning JSONL files. The gate
// itself only ever writes here.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the audit database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open db: %w", err)
	}

	// WAL mode for concurrent append-heavy workloads
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("audit: wal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return s, nil
}

// migrate creates tables on first run.
func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_entries (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			ts     TEXT NOT NULL,
			action TEXT NOT NULL,
			reason TEXT NOT NULL,
			target TEXT NOT NULL,
			caller TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_entries(action)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_entries(ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append implements Sink.
func (s *Store) Append(e Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_entries (ts, action, reason, target, caller) VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC().Format(tsFormat), e.Action, e.Reason, e.Target, e.Caller,
	)
	if err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT ts, action, reason, target, caller FROM audit_entries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		var ts string
		var e Entry
		if err := rows.Scan(&ts, &e.Action, &e.Reason, &e.Target, &e.Caller); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		t, err := time.Parse(tsFormat, ts)
		if err != nil {
			return nil, fmt.Errorf("audit: bad stored timestamp %q: %w", ts, err)
		}
		e.Time = t
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByAction aggregates the trail by action.
func (s *Store) CountByAction() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT action, COUNT(*) FROM audit_entries GROUP BY action`)
	if err != nil {
		return nil, fmt.Errorf("audit: count by action: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("audit: scan count: %w", err)
		}
		counts[action] = n
	}
	return counts, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
