package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const defaultBusyTimeout = 5 * time.Second

type sqliteDialect struct{}

func (sqliteDialect) Name() string                      { return DriverSQLite }
func (sqliteDialect) Placeholder() sq.PlaceholderFormat { return sq.Question }

// LockClause is empty: the single connection already serializes writers.
func (sqliteDialect) LockClause() string    { return "" }
func (sqliteDialect) gooseDialect() string  { return "sqlite3" }
func (sqliteDialect) migrationsDir() string { return "migrations/sqlite" }

func (sqliteDialect) IsUniqueViolation(err error) bool {
	return sqliteConstraint(err, "UNIQUE constraint failed",
		sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func (sqliteDialect) IsForeignKeyViolation(err error) bool {
	return sqliteConstraint(err, "FOREIGN KEY constraint failed", sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY)
}

// sqliteConstraint matches extended result codes, falling back to the
// message when only the primary SQLITE_CONSTRAINT code is reported.
func sqliteConstraint(err error, msg string, codes ...int) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), msg)
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// sqliteDSN builds a modernc DSN with the pragmas every connection needs.
func sqliteDSN(cfg Config) string {
	path := strings.TrimSpace(cfg.URL)
	path = strings.TrimPrefix(path, "sqlite://")
	if path == "" {
		path = DefaultSQLitePath
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	pragmas := url.Values{}
	pragmas.Add("_pragma", "foreign_keys(1)")
	pragmas.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	if !isMemoryPath(path) {
		pragmas.Add("_pragma", "journal_mode(WAL)")
	}
	pragmas.Set("_time_format", "sqlite")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + pragmas.Encode()
}

func (sqliteDialect) open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", sqliteDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one handle: writes serialize and an in-memory database outlives idle periods
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
