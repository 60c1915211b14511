// Package postgres implements metadata.Store on top of PostgreSQL,
// via pgx/pgxpool. Schema management is handled by golang-migrate
// against the embedded migrations in ./migrations.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sujala/deuce/pkg/metadata"
)

// Store is a PostgreSQL-backed implementation of metadata.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool per cfg, optionally runs migrations, and
// verifies connectivity before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres metadata store configuration: %w", err)
	}

	if cfg.AutoMigrate {
		if err := runMigrations(ctx, cfg.ConnectionString(), defaultMigrationLogger()); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Healthcheck verifies the pool can still reach the database.
func (s *Store) Healthcheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ metadata.Store = (*Store)(nil)
