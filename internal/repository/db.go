package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver          string // sqlite | postgres
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// DB is an ent SQL driver bound to its dialect, plus the pgx pool when the
// backing store is Postgres.
type DB struct {
	drv     *entsql.Driver
	dialect string
	pool    *pgxpool.Pool
	log     *slog.Logger
}

// Open connects to the audit store described by cfg.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}
	logger.Info("connecting to database", "driver", driver)

	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		// one writer at a time; sqlite serializes anyway
		sqldb.SetMaxOpenConns(1)
		db := &DB{drv: entsql.OpenDB(dialect.SQLite, sqldb), dialect: dialect.SQLite, log: logger}
		logger.Info("successfully connected to database")
		return db, nil

	case DriverPostgres, "pgx":
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		if cfg.MaxConnLifetime > 0 {
			pc.MaxConnLifetime = cfg.MaxConnLifetime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "fatture-in-chat"

		dialTimeout := cfg.DialTimeout
		if dialTimeout <= 0 {
			dialTimeout = 10 * time.Second
		}
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dctx, pc)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}

		// Wrap pool as *sql.DB for the ent driver
		sqldb := stdlib.OpenDBFromPool(pool)
		db := &DB{drv: entsql.OpenDB(dialect.Postgres, sqldb), dialect: dialect.Postgres, pool: pool, log: logger}
		logger.Info("successfully connected to database")
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported audit driver %q", cfg.Driver)
	}
}

// Dialect returns the ent dialect name of the store.
func (db *DB) Dialect() string { return db.dialect }

// Close closes the database connections gracefully
func (db *DB) Close() {
	if db == nil {
		return
	}
	db.log.Info("closing database connections")
	if err := db.drv.Close(); err != nil {
		db.log.Error("failed to close database driver", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	db.log.Info("database connections closed")
}

// HealthCheck pings the store to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	db.log.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.drv.DB().PingContext(ctx); err != nil {
		return err
	}
	db.log.Debug("database ping successful")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tool_invocations (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		entity_id TEXT NOT NULL DEFAULT '',
		arguments TEXT NOT NULL DEFAULT '',
		taxable DOUBLE PRECISION NOT NULL DEFAULT 0,
		tax DOUBLE PRECISION NOT NULL DEFAULT 0,
		total DOUBLE PRECISION NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tool_invocations_entity_idx ON tool_invocations (entity_id, created_at)`,
}

// Migrate creates the audit schema. It is safe to run on every start.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if err := db.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			db.log.Error("migration failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	db.log.Info("database schema ready", "dialect", db.dialect)
	return nil
}
