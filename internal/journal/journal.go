// Package journal keeps an optional SQLite record of converted containers,
// keyed by source file name, so reruns can skip unchanged inputs.
package journal

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversion (
	source_name  TEXT PRIMARY KEY,
	sha256       TEXT NOT NULL,
	output_path  TEXT NOT NULL,
	patch        TEXT NOT NULL DEFAULT '',
	tier         INTEGER NOT NULL DEFAULT 0,
	game_id      INTEGER NOT NULL DEFAULT 0,
	converted_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS CONVERSION_SHA256 ON conversion(sha256);
`

// Entry is one converted container.
type Entry struct {
	SourceName  string    `db:"source_name"`
	SHA256      string    `db:"sha256"`
	OutputPath  string    `db:"output_path"`
	Patch       string    `db:"patch"`
	Tier        int       `db:"tier"`
	GameID      int64     `db:"game_id"` // 0 when the container does not carry one.
	ConvertedAt time.Time `db:"converted_at"`
}

// Journal is an open conversion journal.
type Journal struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	// A single connection keeps in-memory databases coherent.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "init journal %s", path)
	}
	return &Journal{db: db}, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts e, replacing any earlier entry for the same source name.
func (j *Journal) Record(e *Entry) error {
	if e.ConvertedAt.IsZero() {
		e.ConvertedAt = time.Now()
	}
	_, err := j.db.NamedExec(`
INSERT INTO conversion
	(source_name, sha256, output_path, patch, tier, game_id, converted_at)
VALUES
	(:source_name, :sha256, :output_path, :patch, :tier, :game_id, :converted_at)
ON CONFLICT(source_name) DO UPDATE SET
	sha256 = excluded.sha256,
	output_path = excluded.output_path,
	patch = excluded.patch,
	tier = excluded.tier,
	game_id = excluded.game_id,
	converted_at = excluded.converted_at`, e)
	return errors.Wrapf(err, "record %s", e.SourceName)
}

// Lookup returns the entry for a source name, or nil when none exists.
func (j *Journal) Lookup(sourceName string) (*Entry, error) {
	e := new(Entry)
	err := j.db.Get(e, `SELECT * FROM conversion WHERE source_name = ?`, sourceName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "lookup %s", sourceName)
	}
	return e, nil
}

// Converted reports whether sourceName was already converted from a file
// with the given hash.
func (j *Journal) Converted(sourceName, sha string) (bool, error) {
	e, err := j.Lookup(sourceName)
	if err != nil || e == nil {
		return false, err
	}
	return e.SHA256 == sha, nil
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open for hashing")
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "hash")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
