// Package memory is a local translation memory: an SQLite table of source
// texts and the translations the backend returned for them, keyed by span
// kind, model and the BLAKE3 digest of the source.
//
// Cached wraps any translate.Translator so repeated comments ("Returns None.",
// license banners, shared docstrings) are sent to the backend once.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/minios-linux/zhdoc/lockfile"
	"github.com/minios-linux/zhdoc/translate"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS translations (
	kind        TEXT    NOT NULL,
	model       TEXT    NOT NULL,
	source_hash TEXT    NOT NULL,
	source      TEXT    NOT NULL,
	translation TEXT    NOT NULL,
	run_id      TEXT    NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (kind, model, source_hash)
);
`

// Entry is one stored translation.
type Entry struct {
	Kind        string
	Model       string
	Source      string
	Translation string
	RunID       string
	CreatedAt   time.Time
}

// Store is an open translation memory database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the memory database at path. The special
// path ":memory:" gives a private in-process database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating memory directory: %w", err)
		}
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection keeps ":memory:" coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema in %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the stored translation of source, if any.
func (s *Store) Lookup(ctx context.Context, kind, model, source string) (string, bool, error) {
	var out string
	err := s.db.QueryRowContext(ctx,
		`SELECT translation FROM translations WHERE kind = ? AND model = ? AND source_hash = ?`,
		kind, model, lockfile.Hash([]byte(source)),
	).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("memory lookup: %w", err)
	}
	return out, true, nil
}

// Put stores or replaces a translation.
func (s *Store) Put(ctx context.Context, e Entry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translations
			(kind, model, source_hash, source, translation, run_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.Model, lockfile.Hash([]byte(e.Source)), e.Source, e.Translation, e.RunID, created.Unix(),
	)
	if err != nil {
		return fmt.Errorf("memory store: %w", err)
	}
	return nil
}

// Count returns the number of stored translations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("memory count: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Cached translator
// ---------------------------------------------------------------------------

// Cached is a translate.Translator that consults Store before Next.
type Cached struct {
	Next  translate.Translator
	Store *Store
	// Model partitions the memory; translations of one model are never
	// served for another.
	Model string
	// RunID tags rows written by this run.
	RunID string
	// OnError is called when the database fails; the call falls through
	// to Next.
	OnError func(err error)

	hits, misses atomic.Int64
}

// Translate returns a stored translation or asks Next and stores its answer.
func (c *Cached) Translate(ctx context.Context, text, kind string) (string, error) {
	if out, ok, err := c.Store.Lookup(ctx, kind, c.Model, text); err != nil {
		c.report(err)
	} else if ok {
		c.hits.Add(1)
		return out, nil
	}
	c.misses.Add(1)

	out, err := c.Next.Translate(ctx, text, kind)
	if err != nil {
		return "", err
	}
	if out != "" && out != text {
		err := c.Store.Put(ctx, Entry{Kind: kind, Model: c.Model, Source: text, Translation: out, RunID: c.RunID})
		if err != nil {
			c.report(err)
		}
	}
	return out, nil
}

// Stats returns the number of memory hits and backend calls so far.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cached) report(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}
