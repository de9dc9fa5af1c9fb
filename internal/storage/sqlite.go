package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite persists key/values and play history in a single database file.
type SQLite struct {
	db *sql.DB
}

var (
	_ Store   = (*SQLite)(nil)
	_ PlayLog = (*SQLite)(nil)
)

// OpenSQLite opens (or creates) the database at dbPath.
// If dbPath is empty, uses the default location.
func OpenSQLite(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		var err error
		dbPath, err = DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps writes from overlapping resolutions serialized.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DefaultDBPath returns <config dir>/nowcard/state/nowcard.db.
func DefaultDBPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	name := "nowcard"
	if runtime.GOOS == "windows" {
		name = "Nowcard"
	}
	return filepath.Join(dir, name, "state", "nowcard.db"), nil
}

func (s *SQLite) ensureSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS plays (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			play_key TEXT NOT NULL,
			artist TEXT NOT NULL,
			track TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL DEFAULT '',
			observed_at INTEGER NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set replaces the value stored under key.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// AppendPlay records p and trims the log to the newest keep rows.
func (s *SQLite) AppendPlay(ctx context.Context, p Play, keep int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	observed := p.ObservedAt
	if observed.IsZero() {
		observed = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO plays (play_key, artist, track, url, started_at, observed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Key, p.Artist, p.Track, p.URL, p.StartedAt, observed.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert play: %w", err)
	}
	if keep > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM plays WHERE id NOT IN (SELECT id FROM plays ORDER BY id DESC LIMIT ?)`, keep)
		if err != nil {
			return fmt.Errorf("trim plays: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RecentPlays returns up to limit plays, newest first.
func (s *SQLite) RecentPlays(ctx context.Context, limit int) ([]Play, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT play_key, artist, track, url, started_at, observed_at FROM plays ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("load plays: %w", err)
	}
	defer rows.Close()

	var plays []Play
	for rows.Next() {
		var p Play
		var observed int64
		if err := rows.Scan(&p.Key, &p.Artist, &p.Track, &p.URL, &p.StartedAt, &observed); err != nil {
			return nil, fmt.Errorf("scan play: %w", err)
		}
		p.ObservedAt = time.UnixMilli(observed)
		plays = append(plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plays: %w", err)
	}
	return plays, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
