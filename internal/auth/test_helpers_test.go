package auth

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-sensorgw/internal/store"
)

// testDB creates a temporary SQLite database with the credential tables.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT
		);

		CREATE TABLE user_tokens (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			token TEXT NOT NULL UNIQUE,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return db
}

// testConnector wraps testDB in a parameterised store connector.
func testConnector(t *testing.T, db *sql.DB) *store.SQL {
	t.Helper()

	conn, err := store.New(db, store.Options{})
	if err != nil {
		t.Fatalf("creating connector: %v", err)
	}
	return conn
}

// insertUser creates a user with the given tokens.
func insertUser(t *testing.T, db *sql.DB, id int, username string, tokens ...string) {
	t.Helper()

	if _, err := db.Exec("INSERT INTO users (id, username, display_name) VALUES (?, ?, ?)", id, username, username); err != nil {
		t.Fatalf("inserting user: %v", err)
	}
	for _, tok := range tokens {
		if _, err := db.Exec("INSERT INTO user_tokens (user_id, token) VALUES (?, ?)", id, tok); err != nil {
			t.Fatalf("inserting token: %v", err)
		}
	}
}
