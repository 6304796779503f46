// Package postgres implements the authoritative store on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vitrine/db"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

const (
	createMigrationsSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	appliedMigrationSQL = `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`
	recordMigrationSQL  = `INSERT INTO schema_migrations (name) VALUES ($1)`
	// Serializes concurrent replicas running migrations at startup.
	migrationLockSQL = `SELECT pg_advisory_xact_lock(7261001)`
)

// RunMigrations applies every embedded migration not yet recorded in
// schema_migrations, each in its own transaction.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	scripts, err := db.Migrations()
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	if _, err := pool.Exec(ctx, createMigrationsSQL); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}
	for _, m := range scripts {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, migrationLockSQL); err != nil {
				return err
			}
			var applied bool
			if err := tx.QueryRow(ctx, appliedMigrationSQL, m.Name).Scan(&applied); err != nil {
				return err
			}
			if applied {
				return nil
			}
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, recordMigrationSQL, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s: %w", m.Name, err)
		}
	}
	return nil
}
