package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB owns the process-wide pool shared by the locker, user, request and
// access-log repositories.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewConnection opens the pool and fails fast when the database is not
// reachable within the connect timeout.
func NewConnection(cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	poolConfig, err := newPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create locker store pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("locker store unreachable at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("locker store connected",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Name),
		slog.String("application_name", cfg.ApplicationName),
		slog.Int("max_conns", int(cfg.MaxConns)),
		slog.Duration("connect_timeout", cfg.ConnectTimeout),
	)

	return &DB{Pool: pool, logger: logger}, nil
}

func newPoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	if cfg.ApplicationName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	return poolConfig, nil
}

// Close drains the pool, logging what was still checked out.
func (db *DB) Close() {
	stat := db.Pool.Stat()
	db.logger.Info("closing locker store pool",
		slog.Int("acquired_conns", int(stat.AcquiredConns())),
		slog.Int("total_conns", int(stat.TotalConns())),
	)
	db.Pool.Close()
}

// HealthCheck backs GET /health.
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("locker store health check failed: %w", err)
	}
	return nil
}
