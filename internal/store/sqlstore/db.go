package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverLibSQL   = "libsql"
	DriverPostgres = "pgx"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SkipMigrations  bool // schema is managed out of band
}

// DB is a migrated bookmarks database on one of the supported drivers.
type DB struct {
	db     *sqlx.DB
	driver string
	sb     sq.StatementBuilderType
	log    logger.Logger
}

// DriverFor picks the database/sql driver for dsn: PostgreSQL URLs go to
// pgx, libsql:// and wss:// to the libSQL client, anything else is a
// SQLite file or memory DSN.
func DriverFor(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(dsn, "libsql://"), strings.HasPrefix(dsn, "wss://"):
		return DriverLibSQL
	default:
		return DriverSQLite
	}
}

// Open connects to dsn, checks the connection and applies pending
// migrations unless opts.SkipMigrations is set.
func Open(ctx context.Context, dsn string, opts Options, log logger.Logger) (*DB, error) {
	driver := DriverFor(dsn)

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	placeholder := sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}

	db := &DB{
		db:     conn,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholder),
		log:    log,
	}

	if !opts.SkipMigrations {
		if err := db.migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	// SQLite allows a single writer, so the pool is clamped once
	// migrations no longer need a second connection.
	switch {
	case driver == DriverSQLite:
		conn.SetMaxOpenConns(1)
	case opts.MaxOpenConns > 0:
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	log.Info("database ready", logger.String("driver", driver))
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	dialect := goose.DialectSQLite3
	if db.driver == DriverPostgres {
		dialect = goose.DialectPostgres
	}

	provider, err := goose.NewProvider(dialect, db.db.DB, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		db.log.Info("migration applied",
			logger.String("source", r.Source.Path),
			logger.Duration("duration", r.Duration))
	}
	return nil
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string { return db.driver }

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error { return db.db.PingContext(ctx) }

// Close releases the pool.
func (db *DB) Close() error { return db.db.Close() }
