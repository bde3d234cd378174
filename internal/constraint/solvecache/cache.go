// Package solvecache memoizes solver results (spec component J) in a
// pure-Go, cgo-free SQLite database, keyed by a fingerprint of the
// backend name and the constraint set that produced them, so repeated
// lucid-infer invocations over the same constraints share one entry. Each
// stored row also records the session id of the run that wrote it.
package solvecache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lucidscript/lucid/internal/constraint"
)

// Cache wraps a SQLite database of previously-solved constraint sets.
type Cache struct {
	db *sql.DB
}

// Open creates (if needed) and opens the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("solvecache: opening %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS solve_results (
	fingerprint TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	backend     TEXT NOT NULL,
	result      BLOB NOT NULL,
	created_at  TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("solvecache: creating schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }

// Fingerprint derives a stable key for a constraint set from the sorted
// String() representation of every constraint, so that two structurally
// identical but differently-ordered constraint sets hit the same entry.
func Fingerprint(backend string, cs []constraint.Constraint) string {
	keys := make([]string, len(cs))
	for i, c := range cs {
		keys[i] = c.String()
	}
	sort.Strings(keys)
	h := sha256.New()
	h.Write([]byte(backend))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns a previously-stored result for fingerprint, if any.
func (c *Cache) Lookup(fingerprint string) ([]byte, bool, error) {
	var result []byte
	err := c.db.QueryRow(`SELECT result FROM solve_results WHERE fingerprint = ?`, fingerprint).Scan(&result)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("solvecache: lookup: %w", err)
	}
	return result, true, nil
}

// Store records a solve result under fingerprint, tagged with a fresh
// session id for audit/debugging purposes.
func (c *Cache) Store(fingerprint, backend string, result []byte) error {
	sessionID := uuid.NewString()
	_, err := c.db.Exec(
		`INSERT INTO solve_results (fingerprint, session_id, backend, result, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET session_id=excluded.session_id, result=excluded.result, created_at=excluded.created_at`,
		fingerprint, sessionID, backend, result, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("solvecache: store: %w", err)
	}
	return nil
}
