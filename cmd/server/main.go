// Package main is the entry point for the address book HTTP service.
//
// main stays minimal: load configuration, build the logger, hand both to
// the server and block until it stops. All behaviour lives in internal/.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakif/address-book/internal/config"
	"github.com/sakif/address-book/internal/repository/sqlstore"
	"github.com/sakif/address-book/internal/server"
)

// startupTimeout bounds connecting to the database and running migrations.
const startupTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := ensureSQLiteDir(cfg.Database); err != nil {
		logger.Error("failed to create database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	srv, err := server.New(ctx, server.Config{Port: cfg.Port, Database: cfg.Database}, logger)
	cancel()
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// ensureSQLiteDir creates the parent directory of a file-backed SQLite
// database (like `mkdir -p`). Other DSNs are left alone.
func ensureSQLiteDir(db sqlstore.Config) error {
	if db.Driver != sqlstore.DriverSQLite || strings.Contains(db.DSN, ":memory:") {
		return nil
	}
	path := strings.TrimPrefix(db.DSN, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
