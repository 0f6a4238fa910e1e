// Package store keeps users, roles, clients and memos in a relational
// database.
//
// Two dialects are supported: SQLite (the default, one file on disk) and
// PostgreSQL. Queries are written once with `?` placeholders and rebound
// to `$n` when talking to PostgreSQL. Every call runs under a bounded
// context, a call that misses its deadline (either waiting for a pooled
// connection or running the query) fails with ErrUnavailable.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

type (
	Dialect string

	Config struct {
		Dialect      Dialect
		DSN          string
		MaxOpenConns int
		QueryTimeout time.Duration
	}

	Store struct {
		db      *sql.DB
		dialect Dialect
		timeout time.Duration
	}
)

const (
	SQLite   = Dialect("sqlite")
	Postgres = Dialect("postgres")

	DefaultQueryTimeout = 5 * time.Second
)

var (
	//go:embed migrations
	migrations embed.FS
)

func (d Dialect) driverName() (string, error) {
	switch d {
	case SQLite, "":
		return "sqlite3", nil
	case Postgres:
		return "pgx", nil
	}
	return "", fmt.Errorf("unknown store dialect %q", string(d))
}

func (d Dialect) gooseDialect() goose.Dialect {
	if d == Postgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}

// sqliteDSN turns a plain file path into a connection string. Values that
// already look like a DSN are kept as-is.
func sqliteDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "file:") {
		return dsn, nil
	}
	err := os.MkdirAll(filepath.Dir(dsn), 0755)
	if err != nil {
		return "", fmt.Errorf("unable to create directory to store database %v, cause %w", dsn, err)
	}
	return fmt.Sprintf("file:%v?_journal=wal&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate&mode=rwc", dsn), nil
}

// Open connects to the database described by cfg and checks that it
// answers a ping. The schema is not touched, see Migrate.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := cfg.Dialect.driverName()
	if err != nil {
		return nil, err
	}
	dsn := cfg.DSN
	if cfg.Dialect != Postgres {
		cfg.Dialect = SQLite
		dsn, err = sqliteDSN(dsn)
		if err != nil {
			return nil, err
		}
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v database, cause %w", cfg.Dialect, err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	s := New(conn, cfg.Dialect, timeout)
	err = s.Ping(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened connection pool.
func New(db *sql.DB, dialect Dialect, timeout time.Duration) *Store {
	return &Store{db: db, dialect: dialect, timeout: timeout}
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err := s.db.PingContext(ctx)
	if err != nil {
		return s.fail(ctx, err, "ping %v database", s.dialect)
	}
	return nil
}

// Migrate applies every pending migration for the store dialect.
func (s *Store) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, path.Join("migrations", string(s.dialect)))
	if err != nil {
		return fmt.Errorf("unable to load %v migrations, cause %w", s.dialect, err)
	}
	provider, err := goose.NewProvider(s.dialect.gooseDialect(), s.db, fsys)
	if err != nil {
		return fmt.Errorf("unable to prepare migrations, cause %w", err)
	}
	_, err = provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("unable to apply migrations, cause %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// rebind rewrites `?` placeholders into the positional form used by
// PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			sb.WriteRune(r)
			continue
		}
		n++
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}
