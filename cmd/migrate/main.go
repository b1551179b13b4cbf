// Command migrate applies the embedded schema migrations outside the
// server. The server runs "up" on its own at startup; this tool is for
// rolling back and inspecting.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/address-book/internal/config"
	"github.com/sakif/address-book/internal/repository/sqlstore"
)

var commands = map[string]bool{
	"up":      true,
	"down":    true,
	"status":  true,
	"version": true,
	"reset":   true,
}

func main() {
	flag.Usage = usage
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 || !commands[args[0]] {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf(slog.Default(), "invalid configuration: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := sqlstore.Open(ctx, cfg.Database)
	if err != nil {
		fatalf(logger, "connecting: %v", err)
	}
	defer conn.Close()

	command := args[0]
	if err := sqlstore.Migrate(ctx, conn, cfg.Database.Driver, logger, command, args[1:]...); err != nil {
		conn.Close()
		fatalf(logger, "%s failed: %v", command, err)
	}
	logger.Info("migrations: "+command+" completed", slog.String("env", cfg.Env))
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [-timeout 2m] <command> [args]

Commands:
  up        Apply all pending migrations
  down      Roll back the most recent migration
  status    Print applied and pending migrations
  version   Print the current schema version
  reset     Roll back every migration

Environment:
  APP_ENV        development (default), test, staging or production
  DATABASE_URL   Overrides the profile DSN; required in production`)
}

func fatalf(logger *slog.Logger, format string, args ...any) {
	logger.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
