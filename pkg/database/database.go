package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
)

// Config holds database configuration
type Config struct {
	// Driver is "postgres" or "sqlite"; empty means infer it from URL.
	Driver string
	// URL is a postgres URL, a keyword DSN, or a SQLite file path.
	URL             string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

// Runner executes squirrel statements. Both *DB and *Tx implement it so
// repositories work the same inside and outside a transaction.
type Runner interface {
	Exec(ctx context.Context, q sq.Sqlizer) (sql.Result, error)
	Get(ctx context.Context, dst interface{}, q sq.Sqlizer) error
	Select(ctx context.Context, dst interface{}, q sq.Sqlizer) error
	Dialect() Dialect
}

type handle interface {
	sqlscan.Querier
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type runner struct {
	h       handle
	dialect Dialect
}

func (r runner) Dialect() Dialect { return r.dialect }

func (r runner) build(op string, q sq.Sqlizer) (string, []interface{}, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, &QueryError{Op: op, Cause: err}
	}
	query, err = r.dialect.Placeholder().ReplacePlaceholders(query)
	if err != nil {
		return "", nil, &QueryError{Op: op, Cause: err}
	}
	return query, args, nil
}

func (r runner) Exec(ctx context.Context, q sq.Sqlizer) (sql.Result, error) {
	query, args, err := r.build("exec", q)
	if err != nil {
		return nil, err
	}
	res, err := r.h.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Op: "exec", Cause: err}
	}
	return res, nil
}

// Get scans exactly one row into dst, returning ErrNoRows when there is none.
func (r runner) Get(ctx context.Context, dst interface{}, q sq.Sqlizer) error {
	query, args, err := r.build("get", q)
	if err != nil {
		return err
	}
	if err := sqlscan.Get(ctx, r.h, dst, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return ErrNoRows
		}
		return &QueryError{Op: "get", Cause: err}
	}
	return nil
}

func (r runner) Select(ctx context.Context, dst interface{}, q sq.Sqlizer) error {
	query, args, err := r.build("select", q)
	if err != nil {
		return err
	}
	if err := sqlscan.Select(ctx, r.h, dst, query, args...); err != nil {
		return &QueryError{Op: "select", Cause: err}
	}
	return nil
}

// DB is an open store handle bound to one dialect for its whole lifetime.
type DB struct {
	runner
	sqlDB *sql.DB
}

// Tx is a transaction scoped runner.
type Tx struct {
	runner
}

// Open selects the dialect for cfg, opens the pool and verifies it with a ping.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect, err := resolveDriver(cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := dialect.open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DB{runner: runner{h: sqlDB, dialect: dialect}, sqlDB: sqlDB}, nil
}

// SQL exposes the underlying pool.
func (db *DB) SQL() *sql.DB {
	return db.sqlDB
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.sqlDB.PingContext(ctx); err != nil {
		return &QueryError{Op: "ping", Cause: err}
	}
	return nil
}

func (db *DB) Close() error {
	return db.sqlDB.Close()
}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back otherwise; fn's error is returned unchanged.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return &QueryError{Op: "begin", Cause: err}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{runner: runner{h: sqlTx, dialect: db.dialect}}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &QueryError{Op: "commit", Cause: err}
	}
	return nil
}
