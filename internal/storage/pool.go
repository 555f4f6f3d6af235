// Package storage provides the PostgreSQL storage layer for the
// orchestration service: connection pooling (via pgxpool), pgvector
// registration, and query methods for the agent-memory relations.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// PoolStatus exposes pool state for readiness reporting (spec §4.7 health()).
type PoolStatus struct {
	Size int32
	Idle int32
	Busy int32
	Max  int32
}

// DB wraps a pgxpool.Pool for all agent-memory access.
type DB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Config controls pool sizing (spec §6.5 memory.pool.*).
type Config struct {
	DSN        string
	MinConns   int32
	MaxConns   int32
	RecycleAge int64 // seconds; 0 disables recycling
}

// New creates a new DB with a connection pool sized per cfg.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: parse pool DSN: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.RecycleAge > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.RecycleAge) * time.Second
	}

	// Register pgvector types on each new connection so queries can encode
	// and decode vector columns. Best-effort: if the extension hasn't been
	// created yet (pre-migration), log and let later connections retry.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if err := pgxvector.RegisterTypes(ctx, conn); err != nil {
			logger.Debug("storage: pgvector types not registered (extension may not exist yet)", "error", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping pool: %w", err)
	}

	return &DB{pool: pool, logger: logger}, nil
}

// Pool returns the underlying connection pool for use by other packages.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Health reports current pool statistics.
func (db *DB) Health() PoolStatus {
	stat := db.pool.Stat()
	return PoolStatus{
		Size: stat.TotalConns(),
		Idle: stat.IdleConns(),
		Busy: stat.AcquiredConns(),
		Max:  stat.MaxConns(),
	}
}

// Close shuts down the connection pool. Must run last in the shutdown
// sequence: every other component that holds a reference to the pool
// must have stopped issuing queries first.
func (db *DB) Close() {
	db.pool.Close()
}

