package database

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"papervault/internal/constants"
)

// OpenDatabase opens a SQLite database at the given path and applies pragmas.
// Uses _txlock=immediate so transactions acquire write locks up front,
// preventing race conditions in read-then-write operations like grant creation.
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_txlock=immediate")
	if err != nil {
		return nil, err
	}

	if err := ApplyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitDatabase opens or creates the application database and initializes the schema.
func InitDatabase(path string) (*sql.DB, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, err
	}

	if err := ApplySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrateDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// ApplySchema creates all tables and indexes. The full-text index needs an
// SQLite build carrying FTS5 (go build -tags sqlite_fts5); without it the
// FTS DDL is skipped and search degrades to substring matching.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(GetSchema()); err != nil {
		return err
	}
	if _, err := db.Exec(GetFTSSchema()); err != nil {
		if strings.Contains(err.Error(), "no such module: fts5") {
			return nil
		}
		return err
	}
	return nil
}

// migrateDatabase applies forward-compatible migrations to existing databases.
// Each migration is idempotent (safe to run multiple times).
func migrateDatabase(db *sql.DB) error {
	migrations := []string{
		// Track the last successful login per user
		`ALTER TABLE users ADD COLUMN last_login_at INTEGER`,
		// Content checksum and metadata version on papers
		`ALTER TABLE papers ADD COLUMN checksum TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE papers ADD COLUMN version INTEGER NOT NULL DEFAULT 1`,
	}
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return err
		}
	}
	return nil
}

// ApplyPragmas applies all SQLite pragmas from constants.SQLitePragmas.
// Must be called immediately after opening any database connection.
func ApplyPragmas(db *sql.DB) error {
	for _, pragma := range constants.SQLitePragmas {
		if _, err := db.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
