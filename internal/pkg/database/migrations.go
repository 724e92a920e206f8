package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmoiron/sqlx"
)

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// RunMigrations applies every *.up.sql file in dir that has not been applied
// yet, in lexical order. Each file runs in its own transaction together with
// its schema_migrations bookkeeping row.
func RunMigrations(db *sqlx.DB, dir string) ([]string, error) {
	if _, err := db.Exec(createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations in %s: %w", dir, err)
	}
	sort.Strings(paths)

	var applied []string
	for _, path := range paths {
		name := filepath.Base(path)

		var done bool
		if err := db.Get(&done, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`, name); err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if done {
			continue
		}

		sql, err := os.ReadFile(path)
		if err != nil {
			absPath, _ := filepath.Abs(path)
			return applied, fmt.Errorf("failed to read migration %s (absolute: %s): %w", path, absPath, err)
		}

		if err := executeMigration(db, name, string(sql)); err != nil {
			return applied, fmt.Errorf("migration %s failed: %w", name, err)
		}
		applied = append(applied, name)
	}

	return applied, nil
}

func executeMigration(db *sqlx.DB, name, sql string) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sql); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
