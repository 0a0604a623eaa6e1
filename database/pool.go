package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/freemirror/yamdb-final/pkg/logger"
)

const (
	poolMaxConns       = 4
	poolConnectTimeout = 5 * time.Second
)

// OpenPool opens a small pgx pool for bulk work (COPY) that gorm does not expose.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	poolConfig.MaxConns = poolMaxConns
	poolConfig.ConnConfig.ConnectTimeout = poolConnectTimeout

	connectCtx, cancel := context.WithTimeout(ctx, poolConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Log.Debug("pgx pool connected", zap.Int32("max_conns", poolConfig.MaxConns))
	return pool, nil
}
