package database

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultSQLitePath is used when no connection string is configured.
const DefaultSQLitePath = "deliveries.db"

// Dialect isolates what differs between the supported stores.
type Dialect interface {
	Name() string
	Placeholder() sq.PlaceholderFormat
	// LockClause is appended to a row read that precedes a guarded update.
	LockClause() string
	IsUniqueViolation(err error) bool
	IsForeignKeyViolation(err error) bool

	open(ctx context.Context, cfg Config) (*sql.DB, error)
	gooseDialect() string
	migrationsDir() string
}

// resolveDriver picks the dialect for cfg. An explicit Driver wins; otherwise
// a postgres URL selects postgres and anything without a scheme is a SQLite path.
func resolveDriver(cfg Config) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverPostgres, "postgresql":
		return postgresDialect{}, nil
	case DriverSQLite, "sqlite3":
		return sqliteDialect{}, nil
	case "":
	default:
		return nil, &ConfigurationError{Reason: "unknown driver " + cfg.Driver}
	}

	url := strings.TrimSpace(cfg.URL)
	scheme, _, ok := strings.Cut(url, "://")
	if !ok {
		return sqliteDialect{}, nil
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "sqlite", "file":
		return sqliteDialect{}, nil
	default:
		return nil, &ConfigurationError{Reason: "unsupported scheme " + scheme}
	}
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// either supported driver.
func IsUniqueViolation(err error) bool {
	return err != nil && (postgresDialect{}.IsUniqueViolation(err) || sqliteDialect{}.IsUniqueViolation(err))
}

// IsForeignKeyViolation reports whether err is a foreign key failure from
// either supported driver.
func IsForeignKeyViolation(err error) bool {
	return err != nil && (postgresDialect{}.IsForeignKeyViolation(err) || sqliteDialect{}.IsForeignKeyViolation(err))
}
