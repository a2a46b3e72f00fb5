package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type postgresDialect struct{}

func (postgresDialect) Name() string                      { return DriverPostgres }
func (postgresDialect) Placeholder() sq.PlaceholderFormat { return sq.Dollar }
func (postgresDialect) LockClause() string                { return "FOR UPDATE" }
func (postgresDialect) gooseDialect() string              { return "postgres" }
func (postgresDialect) migrationsDir() string             { return "migrations/postgres" }

func (postgresDialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

func (postgresDialect) IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgForeignKeyViolation
}

// postgresDSN turns a URL into a keyword DSN. Strings that are not URL
// shaped are passed through for lib/pq to interpret.
func postgresDSN(cfg Config) (string, error) {
	params, err := ParseConnString(cfg.URL)
	switch {
	case errors.Is(err, ErrUnparseable):
		if cfg.URL == "" {
			return "", &ConfigurationError{Reason: "postgres requires a connection string"}
		}
		return cfg.URL, nil
	case err != nil:
		return "", err
	}
	return params.KeywordDSN(cfg.SSLMode), nil
}

func (postgresDialect) open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn, err := postgresDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}

	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
