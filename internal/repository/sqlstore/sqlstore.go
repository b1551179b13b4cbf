// Package sqlstore implements the repository interfaces on top of
// database/sql. Two backends are supported:
//
//   - SQLite through modernc.org/sqlite (pure Go, no CGo). Used for local
//     development and tests; ":memory:" gives every test a fresh database.
//   - PostgreSQL through pgx's database/sql adapter. Used for staging and
//     production.
//
// SQL is built with goqu so the same repository code emits `?` placeholders
// and backtick quoting for SQLite and `$1` placeholders with double-quote
// quoting for PostgreSQL.
//
// The schema is owned by goose migrations embedded in the binary (see
// migrations.go). New runs them forward before handing out the store.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	// Both drivers register themselves with database/sql in init():
	// "pgx" for PostgreSQL and "sqlite" for SQLite.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names accepted in Config.Driver. They are the names the drivers
// register with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config describes the connection pool.
type Config struct {
	Driver string
	DSN    string

	// Pool bounds. Zero leaves the database/sql default in place.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps a sql.DB connection pool and provides repository methods.
//
// The pool is safe for concurrent use; DB adds no mutable state of its own,
// so one DB is shared by every request.
type DB struct {
	conn    *sql.DB
	driver  string
	dialect goqu.DialectWrapper
}

// New opens the pool described by cfg, runs pending migrations and returns
// a ready store. The caller owns the store and must Close it.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	conn, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, conn, cfg.Driver, logger, "up"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}

	return newDB(conn, cfg.Driver), nil
}

// Open creates the connection pool, applies pool bounds and
// driver-specific session settings, and verifies connectivity. It does not
// touch the schema.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if _, err := dialectFor(cfg.Driver); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlstore: DSN must not be empty")
	}

	dsn := cfg.DSN
	if cfg.Driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	conn, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}

	applyPoolBounds(conn, cfg)

	// sql.Open only creates the pool manager; Ping forces a real connection
	// so a bad DSN fails here instead of on the first request.
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging database: %w", err)
	}

	return conn, nil
}

// sqlitePragmas are applied by the driver to every new connection.
// busy_timeout is per connection, so it cannot be set once with Exec on a
// pooled *sql.DB: connections opened later would fail with SQLITE_BUSY.
//
// WAL lets readers proceed while a write is in flight. busy_timeout makes
// concurrent writers wait for the lock instead of failing immediately.
var sqlitePragmas = []struct {
	name  string
	value string
}{
	{"busy_timeout", "5000"},
	{"journal_mode", "WAL"},
}

// sqliteDSN appends the _pragma parameters modernc.org/sqlite understands.
// Pragmas the DSN already sets are left alone, and in-memory databases
// skip WAL (they have no journal file).
func sqliteDSN(dsn string) string {
	var params []string
	for _, p := range sqlitePragmas {
		if strings.Contains(dsn, p.name) {
			continue
		}
		if p.name == "journal_mode" && isMemoryDSN(dsn) {
			continue
		}
		params = append(params, "_pragma="+p.name+"("+p.value+")")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// applyPoolBounds sets the pool limits from cfg.
//
// An in-memory SQLite database lives and dies with its connection: a second
// pooled connection would see a second, empty database. Those DSNs are
// pinned to a single connection that is never recycled.
func applyPoolBounds(conn *sql.DB, cfg Config) {
	if cfg.Driver == DriverSQLite && isMemoryDSN(cfg.DSN) {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
		return
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// newDB wraps an already open pool. The schema is assumed to exist.
func newDB(conn *sql.DB, driver string) *DB {
	d, _ := dialectFor(driver)
	return &DB{
		conn:    conn,
		driver:  driver,
		dialect: goqu.Dialect(d),
	}
}

// dialectFor maps a driver name to the dialect name goqu and goose use.
func dialectFor(driver string) (string, error) {
	switch driver {
	case DriverSQLite:
		return "sqlite3", nil
	case DriverPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("sqlstore: unsupported driver %q (want %q or %q)", driver, DriverSQLite, DriverPostgres)
	}
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
