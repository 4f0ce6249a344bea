package store

import (
	"database/sql"
	"fmt"
)

// currentSchemaVersion is the latest schema version. Bump when adding
// migrations.
const currentSchemaVersion = 1

// migrate applies schema migrations based on the sqlite user_version pragma.
func migrate(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS topics (
		  id    INTEGER PRIMARY KEY,
		  title TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS posts (
		  id         INTEGER PRIMARY KEY,
		  topic_id   INTEGER NOT NULL REFERENCES topics(id),
		  username   TEXT NOT NULL,
		  cooked     TEXT NOT NULL,
		  created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_posts_topic_created
		ON posts(topic_id, created_at);

		CREATE TABLE IF NOT EXISTS topic_summaries (
		  topic_id      INTEGER PRIMARY KEY REFERENCES topics(id),
		  summary       TEXT NOT NULL,
		  model         TEXT NOT NULL,
		  prompt_hash   TEXT NOT NULL,
		  input_tokens  INTEGER NOT NULL,
		  output_tokens INTEGER NOT NULL,
		  updated_at    TEXT NOT NULL
		);`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("apply schema v1: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

func setUserVersion(db *sql.DB, v int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
