package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a durable Store backed by a SQLite file, sharing the same
// lazy TTL expiry behavior as InMemoryStore.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// SQLiteStoreOptions configure a SQLiteStore.
type SQLiteStoreOptions struct {
	TTL time.Duration
	Now func() time.Time
}

// OpenSQLite opens or creates the cache database at path.
func OpenSQLite(path string, optFns ...func(o *SQLiteStoreOptions)) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache db directory: %w", err)
		}
	}

	opts := SQLiteStoreOptions{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	s := &SQLiteStore{db: db, ttl: opts.TTL, now: opts.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cache_entries (
			fingerprint TEXT PRIMARY KEY,
			result      TEXT NOT NULL,
			outcome     TEXT NOT NULL,
			cost        REAL NOT NULL,
			rounds      INTEGER NOT NULL,
			cached_at   INTEGER NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Lookup implements Store.
func (s *SQLiteStore) Lookup(ctx context.Context, fingerprint string) (Entry, bool, error) {
	var entry Entry
	var cachedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, result, outcome, cost, rounds, cached_at
		FROM cache_entries WHERE fingerprint = ?`, fingerprint).
		Scan(&entry.Fingerprint, &entry.Result, &entry.Outcome, &entry.Cost, &entry.Rounds, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup cache entry: %w", err)
	}
	entry.CachedAt = time.Unix(0, cachedAt).UTC()

	if s.ttl > 0 && s.now().Sub(entry.CachedAt) > s.ttl {
		if err := s.Invalidate(ctx, fingerprint); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Store implements Store.
func (s *SQLiteStore) Store(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (fingerprint, result, outcome, cost, rounds, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			result = excluded.result,
			outcome = excluded.outcome,
			cost = excluded.cost,
			rounds = excluded.rounds,
			cached_at = excluded.cached_at`,
		entry.Fingerprint, entry.Result, string(entry.Outcome), entry.Cost, entry.Rounds, entry.CachedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Invalidate implements Store.
func (s *SQLiteStore) Invalidate(ctx context.Context, fingerprint string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE fingerprint = ?", fingerprint); err != nil {
		return fmt.Errorf("invalidate cache entry: %w", err)
	}
	return nil
}
