package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenMemory opens a private in-memory SQLite database and creates the
// analytics schema. Its contents live only as long as the returned handle.
func OpenMemory() (*sql.DB, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Every statement shares the one connection that owns the database, which
	// also serializes writers.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return conn, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL DEFAULT 0 CHECK(value >= 0)
		);`,
		`CREATE TABLE IF NOT EXISTS quiz_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			score REAL NOT NULL,
			submitted_at DATETIME NOT NULL
		);`,
		`INSERT OR IGNORE INTO counters (name, value) VALUES ('uploads', 0), ('quizzes', 0);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("execute %q: %w", stmt, err)
		}
	}
	return nil
}
