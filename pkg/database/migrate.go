package database

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package globals
var gooseMu sync.Mutex

// Migrate creates the schema if absent. It is safe to run on every startup.
// A nil log silences goose.
func (db *DB) Migrate(ctx context.Context, log goose.Logger) error {
	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()

	goose.SetBaseFS(migrationsFS)
	if log == nil {
		log = goose.NopLogger()
	}
	goose.SetLogger(log)
	if err := goose.SetDialect(db.dialect.gooseDialect()); err != nil {
		return &ConfigurationError{Reason: "set migration dialect", Cause: err}
	}
	if err := goose.UpContext(ctx, db.sqlDB, db.dialect.migrationsDir()); err != nil {
		return fmt.Errorf("database: apply migrations: %w", err)
	}
	return nil
}
