package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ParseDatabaseURL splits a "sqlite://path" or "postgres(ql)://..." URL
// into the database/sql driver name and DSN, creating the sqlite3 file's
// parent directory if needed (mirrors the teacher's parseDatabase).
func ParseDatabaseURL(dbURL string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(dbURL, "sqlite://"):
		driver = "sqlite3"
		dsn = strings.TrimPrefix(dbURL, "sqlite://")

		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", "", fmt.Errorf("creating sqlite3 database directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_fk=1"
		}
		return driver, dsn, nil

	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return "postgres", dbURL, nil

	default:
		return "", "", fmt.Errorf("unsupported database URL %q (use sqlite:// or postgresql://)", dbURL)
	}
}
