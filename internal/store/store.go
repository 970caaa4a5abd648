package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on a uniqueness violation that cannot be
	// resolved by upsert.
	ErrConflict = errors.New("conflict")
)

// Open opens (or creates) the local state database and applies the
// schema. The handle is a process-wide singleton: one open connection,
// WAL journaling, foreign keys enforced.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection serialises writes in-process.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS slots (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	agent_id   TEXT NOT NULL,
	key        TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT 'custom',
	value      TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT 'manual',
	confidence REAL NOT NULL DEFAULT 1.0,
	version    INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	expires_at DATETIME,
	UNIQUE(user_id, agent_id, key)
);

CREATE TABLE IF NOT EXISTS entities (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	agent_id    TEXT NOT NULL,
	name        TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	properties  TEXT NOT NULL DEFAULT '{}',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS relationships (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	agent_id      TEXT NOT NULL,
	source_id     TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	target_id     TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	relation_type TEXT NOT NULL,
	weight        REAL NOT NULL DEFAULT 1.0,
	properties    TEXT NOT NULL DEFAULT '{}',
	created_at    DATETIME NOT NULL,
	UNIQUE(source_id, target_id, relation_type)
);

CREATE INDEX IF NOT EXISTS idx_slots_scope_category ON slots(user_id, agent_id, category);
CREATE INDEX IF NOT EXISTS idx_slots_updated ON slots(user_id, agent_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_entities_scope ON entities(user_id, agent_id);
CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(user_id, agent_id, name);
CREATE INDEX IF NOT EXISTS idx_rel_source ON relationships(source_id);
CREATE INDEX IF NOT EXISTS idx_rel_target ON relationships(target_id);
`
