package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/pressly/goose/v3"
)

// migrationFS holds one directory of goose migrations per dialect. DDL
// differs between the two (AUTOINCREMENT vs SERIAL, DATETIME vs TIMESTAMPTZ)
// so each dialect gets its own files with the same version numbers.
//
//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// goose keeps its base FS, dialect and logger in package-level state.
// gooseMu serialises callers so two stores opened concurrently (parallel
// tests, for example) cannot interleave SetDialect and Up.
var gooseMu sync.Mutex

// Migrate runs a goose command against conn using the embedded migrations
// for driver. Supported commands are the goose ones: "up", "down",
// "status", "version", "reset", "redo", "up-to <v>", "down-to <v>".
func Migrate(ctx context.Context, conn *sql.DB, driver string, logger *slog.Logger, command string, args ...string) error {
	dialect, err := dialectFor(driver)
	if err != nil {
		return err
	}
	if logger == nil {
		logger = slog.Default()
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(&gooseLogger{logger: logger})

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect %s: %w", dialect, err)
	}

	dir := path.Join("migrations", dirFor(driver))
	if err := goose.RunContext(ctx, command, conn, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

func dirFor(driver string) string {
	if driver == DriverPostgres {
		return "postgres"
	}
	return "sqlite"
}

// gooseLogger routes goose output through slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...), slog.String("component", "migrations"))
}

// Fatalf is only called by goose for unrecoverable states. It is logged at
// error level instead of exiting so the caller's error path still runs.
func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), slog.String("component", "migrations"))
}
