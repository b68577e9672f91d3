package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/nestrow/internal/casing"
	"github.com/roach88/nestrow/internal/querysql"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Store executes templates against a database.
type Store struct {
	conn
	db     *sql.DB
	driver string
}

type options struct {
	placeholder querysql.Placeholder
	transform   casing.Func
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithPlaceholder sets the placeholder style used when rendering templates.
// Both bundled drivers accept $n, which is the default.
func WithPlaceholder(p querysql.Placeholder) Option {
	return func(o *options) { o.placeholder = p }
}

// WithCaseTransform sets the field-to-column transform used by Fetch.
func WithCaseTransform(f casing.Func) Option {
	return func(o *options) { o.transform = f }
}

// WithLogger sets the logger for statement-level debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		placeholder: querysql.Dollar,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open opens a database with driver and dsn and verifies the connection.
//
// SQLite databases are configured with:
//   - a single connection (SQLite allows one writer at a time)
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q (want %s or %s)", driver, DriverSQLite, DriverPostgres)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	s := New(db, opts...)
	s.driver = driver
	s.opts.logger.Debug("opened database", "driver", driver)
	return s, nil
}

// New wraps an already opened database.
func New(db *sql.DB, opts ...Option) *Store {
	return &Store{
		conn: conn{q: db, opts: buildOptions(opts)},
		db:   db,
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the driver name the store was opened with, or "" for a
// store created with New.
func (s *Store) Driver() string {
	return s.driver
}

// ExecScript runs a multi-statement SQL script outside any template, such
// as DDL and fixture inserts. Statements are split on ";" at line ends.
func (s *Store) ExecScript(ctx context.Context, script string) error {
	for i, stmt := range splitScript(script) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("script statement %d: %w", i+1, err)
		}
	}
	return nil
}

func splitScript(script string) []string {
	var stmts []string
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			stmts = append(stmts, strings.TrimSpace(b.String()))
			b.Reset()
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}
