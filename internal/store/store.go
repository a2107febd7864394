// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Counter names in the stats table.
const (
	StatCorrections = "correctionsCount"
	StatAccepted    = "acceptedCount"
	StatIgnored     = "ignoredCount"
)

// Store wraps SQLite access for settings, counters and decision history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, path: path}
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

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stats (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY,
			original TEXT NOT NULL,
			suggestion TEXT NOT NULL,
			kind TEXT NOT NULL,
			confidence REAL NOT NULL,
			action TEXT NOT NULL,
			decided_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_decided_at ON decisions(decided_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SettingValues returns every stored setting as raw strings.
func (s *Store) SettingValues(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	values := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// SetSettingValues upserts the given keys, leaving other keys untouched.
func (s *Store) SetSettingValues(ctx context.Context, values map[string]string) (err error) {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for key, value := range values {
		if _, err = stmt.ExecContext(ctx, key, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearSettings removes every stored setting.
func (s *Store) ClearSettings(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings`)
	return err
}

// IncrementStat adds delta to the named counter.
func (s *Store) IncrementStat(ctx context.Context, name string, delta int64) error {
	if delta == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stats (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = value + excluded.value`,
		name, delta)
	return err
}

// Stats returns the current counters. Missing counters read as zero.
func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM stats`)
	if err != nil {
		return model.Stats{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var stats model.Stats
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return model.Stats{}, err
		}
		switch name {
		case StatCorrections:
			stats.CorrectionsCount = value
		case StatAccepted:
			stats.AcceptedCount = value
		case StatIgnored:
			stats.IgnoredCount = value
		}
	}
	if err := rows.Err(); err != nil {
		return model.Stats{}, err
	}
	return stats, nil
}

// ResetStats clears the counters and the decision history.
func (s *Store) ResetStats(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM stats`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM decisions`); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordDecision stores a decision and bumps the matching counter atomically.
func (s *Store) RecordDecision(ctx context.Context, d model.Decision) (id int64, err error) {
	var counter string
	switch d.Action {
	case model.ActionAccepted:
		counter = StatAccepted
	case model.ActionIgnored:
		counter = StatIgnored
	default:
		return 0, fmt.Errorf("unknown decision action %q", d.Action)
	}
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now()
	}

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
		`INSERT INTO decisions (original, suggestion, kind, confidence, action, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.Original,
		d.Suggestion,
		string(d.Kind),
		d.Confidence,
		string(d.Action),
		d.DecidedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO stats (name, value) VALUES (?, 1)
		 ON CONFLICT(name) DO UPDATE SET value = value + 1`, counter); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListDecisions returns the most recent decisions, newest first. limit <= 0 means all.
func (s *Store) ListDecisions(ctx context.Context, limit int) ([]model.Decision, error) {
	query := `SELECT id, original, suggestion, kind, confidence, action, decided_at
		FROM decisions
		ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
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

	var decisions []model.Decision
	for rows.Next() {
		var d model.Decision
		var kind, action, decidedAt string
		if err := rows.Scan(&d.ID, &d.Original, &d.Suggestion, &kind, &d.Confidence, &action, &decidedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, decidedAt)
		if err != nil {
			return nil, err
		}
		d.Kind = model.Kind(kind)
		d.Action = model.Action(action)
		d.DecidedAt = parsed
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return decisions, nil
}
