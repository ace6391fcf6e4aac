// Package index persists the pack index (spec.md §4.3, §6.3): a single
// sqlite file holding db_object (digest -> pack location) and db_settings
// (container id, compression tag). Grounded on the teacher's
// internal/db/db.go Open+migrate shape.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Index wraps the sqlite handle backing packs.idx.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) the index database at path and runs
// its migration. path's parent directory is created if missing.
func Open(path string) (*Index, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("index: mkdir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("index: open: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: migrate: %w", err)
	}
	return &Index{db: conn}, nil
}

// Close closes the underlying sqlite handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// DB exposes the raw *sql.DB for callers (the pack writer) that need to
// drive their own transactions spanning file writes and index rows.
func (ix *Index) DB() *sql.DB {
	return ix.db
}

func migrate(conn *sql.DB) error {
	_, err := conn.Exec(schema)
	return err
}

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS db_object (
  hashkey    TEXT PRIMARY KEY,
  compressed INTEGER NOT NULL,
  size       INTEGER NOT NULL,
  offset     INTEGER NOT NULL,
  length     INTEGER NOT NULL,
  pack_id    INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_db_object_hashkey ON db_object(hashkey);

CREATE TABLE IF NOT EXISTS db_settings (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`

// Entry mirrors one db_object row.
type Entry struct {
	HashKey    string
	Compressed bool
	Size       int64
	Offset     int64
	Length     int64
	PackID     int64
}

// Lookup returns the db_object row for dig, or casfs.ErrNotFound-compatible
// sql.ErrNoRows (callers translate).
func (ix *Index) Lookup(dig string) (Entry, error) {
	var e Entry
	var compressed int
	err := ix.db.QueryRow(
		`SELECT hashkey, compressed, size, offset, length, pack_id FROM db_object WHERE hashkey = ?`,
		dig,
	).Scan(&e.HashKey, &compressed, &e.Size, &e.Offset, &e.Length, &e.PackID)
	if err != nil {
		return Entry{}, err
	}
	e.Compressed = compressed != 0
	return e, nil
}

// Contains reports whether dig has an index row.
func (ix *Index) Contains(dig string) (bool, error) {
	var n int
	err := ix.db.QueryRow(`SELECT COUNT(1) FROM db_object WHERE hashkey = ?`, dig).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert writes one db_object row within tx.
func Insert(tx *sql.Tx, e Entry) error {
	compressed := 0
	if e.Compressed {
		compressed = 1
	}
	_, err := tx.Exec(
		`INSERT INTO db_object (hashkey, compressed, size, offset, length, pack_id) VALUES (?, ?, ?, ?, ?, ?)`,
		e.HashKey, compressed, e.Size, e.Offset, e.Length, e.PackID,
	)
	return err
}

// MaxPackID returns the greatest pack_id referenced by any row, or -1 if
// the index has no rows yet.
func (ix *Index) MaxPackID() (int64, error) {
	var maxID sql.NullInt64
	err := ix.db.QueryRow(`SELECT MAX(pack_id) FROM db_object`).Scan(&maxID)
	if err != nil {
		return -1, err
	}
	if !maxID.Valid {
		return -1, nil
	}
	return maxID.Int64, nil
}

// Digests returns every hashkey in db_object, sorted lexicographically.
func (ix *Index) Digests() ([]string, error) {
	rows, err := ix.db.Query(`SELECT hashkey FROM db_object ORDER BY hashkey ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SumSize returns Σ size over every db_object row (spec.md §3.2, §8
// property 5).
func (ix *Index) SumSize() (int64, error) {
	var total sql.NullInt64
	err := ix.db.QueryRow(`SELECT SUM(size) FROM db_object`).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// Count returns the number of db_object rows.
func (ix *Index) Count() (int64, error) {
	var n int64
	err := ix.db.QueryRow(`SELECT COUNT(1) FROM db_object`).Scan(&n)
	return n, err
}

// SetSetting upserts a db_settings row.
func (ix *Index) SetSetting(key, value string) error {
	_, err := ix.db.Exec(
		`INSERT INTO db_settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetSetting reads a db_settings row. ok is false if key is absent.
func (ix *Index) GetSetting(key string) (value string, ok bool, err error) {
	err = ix.db.QueryRow(`SELECT value FROM db_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
