package datasource

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// PoolConfig bounds the per-target connection pool.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// RunnerFactory creates a QueryRunner for one target. Each driver package
// registers its factory from init().
type RunnerFactory func(ctx context.Context, dsn string, limits Limits, pool PoolConfig, logger *zap.Logger) (QueryRunner, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]RunnerFactory)
)

// Register is called by each driver's init(). Thread-safe for concurrent
// init() calls.
func Register(driver string, factory RunnerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[driver] = factory
}

// NewRunner creates a runner for the given driver, or errors if the driver
// was never registered (its package was not imported).
func NewRunner(ctx context.Context, driver, dsn string, limits Limits, pool PoolConfig, logger *zap.Logger) (QueryRunner, error) {
	registryMu.RLock()
	factory, ok := registry[driver]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no runner registered for driver %q", driver)
	}
	return factory(ctx, dsn, limits, pool, logger)
}

// RegisteredDrivers returns the registered driver names.
func RegisteredDrivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	drivers := make([]string, 0, len(registry))
	for name := range registry {
		drivers = append(drivers, name)
	}
	return drivers
}
