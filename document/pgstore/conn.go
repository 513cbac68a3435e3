package pgstore

import (
	"context"

	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/extra/bunotel"

	"github.com/rise-and-shine/docclip/logger"
)

// NewDB opens a pgx pool for cfg and wraps it in a bun DB with the query
// logging and OpenTelemetry hooks installed.
func NewDB(ctx context.Context, cfg Config) (*bun.DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, errx.Wrap(err)
	}

	poolConfig.MaxConns = cfg.PoolMaxConns
	poolConfig.MinConns = cfg.PoolMinConns
	poolConfig.MaxConnIdleTime = cfg.PoolMaxConnIdleTime
	poolConfig.MaxConnLifetime = cfg.PoolMaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	db := bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())
	db.AddQueryHook(newDebugHook(logger.Named("pgstore"), cfg.Debug, cfg.SlowQueryThreshold))
	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(cfg.Database)))

	return db, nil
}
