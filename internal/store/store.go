// Package store is the relational persistence layer for BeanCounter: the
// leaf component holding balances, the ledger transaction log, payment
// escrow rows, and connect-account/transfer records (spec §3, §4.1).
//
// Every mutating operation is a short transactional unit of work. Callers
// above this package (internal/ledger, internal/escrow, internal/connect)
// never see a *sql.Tx or a driver-specific error — the store translates
// constraint violations and missing rows into the sentinel errors in
// errors.go.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/umpyre-code/beancounter/internal/logger"
)

// Store wraps a *sql.DB together with the driver name, since the same
// query text is not always portable between postgres and sqlite3 (see
// rebind and schema.go).
type Store struct {
	db       *sql.DB
	driver   string
	log      *zap.Logger
	queryLog func(query string, args ...any)
}

// Open opens a connection pool for the given driver ("postgres" or
// "sqlite3") and DSN. It does not run migrations; call Migrate explicitly
// (mirroring the teacher's separate "migrate" CLI command).
func Open(driver, dsn string, log *zap.Logger) (*Store, error) {
	switch driver {
	case "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", driver, err)
	}

	if driver == "sqlite3" {
		// sqlite3's single-writer model makes a pool counterproductive and
		// is what lets the row "lock" in lockBalance behave sensibly under
		// the package's own test suite.
		conn.SetMaxOpenConns(1)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Store{db: conn, driver: driver, log: log, queryLog: logger.QueryAdapter(log)}, nil
}

// DB exposes the underlying pool for health checks (spec §6 Check).
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the schema if it does not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := schemaPostgres
	if s.driver == "sqlite3" {
		schema = schemaSQLite
	}

	for _, stmt := range splitStatements(schema) {
		s.queryLog(stmt)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrating: %w", err)
		}
	}
	return nil
}

func splitStatements(schema string) []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";\n") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// rebind rewrites a query written with postgres-style $1, $2... placeholders
// into sqlite3's ? placeholders when the store is running against sqlite3.
// Queries in this package are always written in $N form.
func (s *Store) rebind(query string) string {
	if s.driver != "sqlite3" {
		return query
	}
	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if _, err := strconv.Atoi(query[i+1 : j]); err == nil {
				b.WriteByte('?')
				i = j - 1
				n++
				continue
			}
		}
		b.WriteByte(query[i])
	}
	_ = n
	return b.String()
}

// forUpdate returns the row-locking clause for the store's driver. sqlite3
// has no equivalent (and needs none, given SetMaxOpenConns(1) above).
func (s *Store) forUpdate() string {
	if s.driver == "postgres" {
		return "FOR UPDATE"
	}
	return ""
}
