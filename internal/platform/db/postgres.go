package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options configures the ledger connection pool.
type Options struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	ApplicationName string
}

func (o Options) poolConfig() (*pgxpool.Config, error) {
	if o.DSN == "" {
		return nil, errors.New("platform/db: dsn required")
	}
	config, err := pgxpool.ParseConfig(o.DSN)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	if o.MaxConns > 0 {
		config.MaxConns = o.MaxConns
	}
	if o.MinConns > 0 && o.MinConns <= config.MaxConns {
		config.MinConns = o.MinConns
	}
	if o.ApplicationName != "" {
		config.ConnConfig.RuntimeParams["application_name"] = o.ApplicationName
	}
	config.HealthCheckPeriod = 30 * time.Second
	return config, nil
}

// New opens the pool and pings the server once.
func New(ctx context.Context, opts Options) (*pgxpool.Pool, error) {
	config, err := opts.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}
