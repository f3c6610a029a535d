// Package sqlite implements the repository interfaces on an embedded SQLite
// database (modernc.org/sqlite, pure Go, no cgo).
//
// The process holds a single *DB for its lifetime: opened once at startup,
// injected into the services, closed on shutdown. Correctness under
// concurrent identical writes is pushed to the UNIQUE constraints declared
// in the schema rather than application locks; the one vote per
// (comment, voter) and one rating per (subject, voter) invariants hold even
// when two requests race, because the loser's INSERT fails with a
// constraint violation that the store layer reports as ErrConflict and the
// service converts into the update path.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// The import registers the "sqlite" driver with database/sql; the alias
	// also gives us the Error type for constraint checks.
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps the sql.DB pool and hands out the per-entity stores, which all
// share the same connection.
type DB struct {
	conn *sql.DB
}

// New opens the database, configures it, and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time, and the pragmas below are
	// per-connection. A single pooled connection keeps both consistent,
	// and keeps ":memory:" databases from vanishing between queries.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads during a write; the default journal mode
	// locks the whole file.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite. The session→user and
	// vote→comment cascades, and the comment reply-subtree cascade, depend
	// on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Defer it wherever New is called.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Users() *UserStore             { return &UserStore{conn: db.conn} }
func (db *DB) Sessions() *SessionStore       { return &SessionStore{conn: db.conn} }
func (db *DB) Comments() *CommentStore       { return &CommentStore{conn: db.conn} }
func (db *DB) Votes() *VoteStore             { return &VoteStore{conn: db.conn} }
func (db *DB) Ratings() *RatingStore         { return &RatingStore{conn: db.conn} }
func (db *DB) Protections() *ProtectionStore { return &ProtectionStore{conn: db.conn} }

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			display_name  TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id            TEXT PRIMARY KEY,
			subject_id    INTEGER NOT NULL,
			subject_label TEXT NOT NULL DEFAULT '',
			body          TEXT NOT NULL,
			author_name   TEXT NOT NULL,
			parent_id     TEXT REFERENCES comments(id) ON DELETE CASCADE,
			created_at    DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_subject_id ON comments(subject_id);
		CREATE INDEX IF NOT EXISTS idx_comments_parent_id ON comments(parent_id);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comment_votes (
			id         TEXT PRIMARY KEY,
			comment_id TEXT NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
			voter      TEXT NOT NULL,
			value      INTEGER NOT NULL CHECK (value IN (1, -1)),
			created_at DATETIME NOT NULL,
			UNIQUE (comment_id, voter)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating comment_votes table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS ratings (
			id            TEXT PRIMARY KEY,
			subject_id    INTEGER NOT NULL,
			subject_label TEXT NOT NULL DEFAULT '',
			voter         TEXT NOT NULL,
			value         INTEGER NOT NULL CHECK (value BETWEEN 1 AND 5),
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL,
			UNIQUE (subject_id, voter)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating ratings table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS page_protections (
			subject_id      INTEGER PRIMARY KEY,
			creator_user_id TEXT NOT NULL REFERENCES users(id),
			creator_name    TEXT NOT NULL DEFAULT '',
			protected       INTEGER NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL,
			updated_at      DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating page_protections table: %w", err)
	}

	return nil
}

// isConstraintErr reports whether err is a SQLite constraint violation
// (unique, check, or foreign key). The store methods translate these into
// apperror values so the service layer never sees driver errors.
func isConstraintErr(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return strings.Contains(err.Error(), "constraint failed")
}
