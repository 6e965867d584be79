package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register("mssql", func(ctx context.Context, dsn string, limits datasource.Limits, pool datasource.PoolConfig, logger *zap.Logger) (datasource.QueryRunner, error) {
		return NewRunner(ctx, dsn, limits, pool, logger)
	})
}
