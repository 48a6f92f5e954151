package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type migrateDirection string

const (
	directionUp   migrateDirection = "up"
	directionDown migrateDirection = "down"
)

// MigrateUp applies every up migration in filename order and reports how
// many scripts ran. Down migrations run in reverse order so later schema
// additions unwind before the tables they depend on.
func MigrateUp(db *sql.DB) (int, error) {
	return runMigrations(db, directionUp)
}

func MigrateDown(db *sql.DB) (int, error) {
	return runMigrations(db, directionDown)
}

func runMigrations(db *sql.DB, dir migrateDirection) (int, error) {
	scripts, err := migrationScripts(dir)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, name := range scripts {
		script, err := migrationFiles.ReadFile(name)
		if err != nil {
			return applied, fmt.Errorf("storage: read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(script)); err != nil {
			return applied, fmt.Errorf("storage: apply migration %s: %w", name, err)
		}
		applied++
	}
	return applied, nil
}

func migrationScripts(dir migrateDirection) ([]string, error) {
	all, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("storage: list migrations: %w", err)
	}
	suffix := fmt.Sprintf(".%s.sql", dir)
	scripts := all[:0]
	for _, name := range all {
		if strings.HasSuffix(name, suffix) {
			scripts = append(scripts, name)
		}
	}
	sort.Strings(scripts)
	if dir == directionDown {
		for i, j := 0, len(scripts)-1; i < j; i, j = i+1, j-1 {
			scripts[i], scripts[j] = scripts[j], scripts[i]
		}
	}
	return scripts, nil
}
