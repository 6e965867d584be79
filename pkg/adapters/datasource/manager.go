package datasource

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/datasage-io/datasage-engine/pkg/logging"
	"github.com/datasage-io/datasage-engine/pkg/retry"
)

// Target describes one configured database the executor may query.
type Target struct {
	Name   string
	Driver string
	DSN    string
}

// Manager owns one lazily created QueryRunner per configured target. It is
// the single mutable shared resource in the pipeline; runner creation is
// serialized per target and pools are bounded, so concurrent questions can
// never open unbounded connections.
type Manager struct {
	mu      sync.Mutex
	targets map[string]Target
	runners map[string]QueryRunner
	limits  Limits
	pool    PoolConfig
	logger  *zap.Logger
}

// NewManager creates a manager over the configured targets. Runners are
// opened on first use, not at startup, so one unreachable target does not
// block the engine.
func NewManager(targets []Target, limits Limits, pool PoolConfig, logger *zap.Logger) *Manager {
	byName := make(map[string]Target, len(targets))
	for _, t := range targets {
		byName[t.Name] = t
	}
	return &Manager{
		targets: byName,
		runners: make(map[string]QueryRunner),
		limits:  limits,
		pool:    pool,
		logger:  logger.Named("datasource-manager"),
	}
}

// Runner returns the runner for the named target, creating it on first use.
// Creation retries transient connection failures with backoff.
func (m *Manager) Runner(ctx context.Context, name string) (QueryRunner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if runner, ok := m.runners[name]; ok {
		return runner, nil
	}

	target, ok := m.targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target database %q", name)
	}

	runner, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (QueryRunner, error) {
		r, err := NewRunner(ctx, target.Driver, target.DSN, m.limits, m.pool, m.logger)
		if err != nil {
			return nil, err
		}
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		m.logger.Error("Failed to open target database",
			zap.String("target", name),
			zap.String("driver", target.Driver),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("open target %s: %w", name, err)
	}

	m.logger.Info("Target database opened",
		zap.String("target", name),
		zap.String("driver", target.Driver))

	m.runners[name] = runner
	return runner, nil
}

// HasTarget reports whether the named target is configured.
func (m *Manager) HasTarget(name string) bool {
	_, ok := m.targets[name]
	return ok
}

// TargetNames returns the configured target names.
func (m *Manager) TargetNames() []string {
	names := make([]string, 0, len(m.targets))
	for name := range m.targets {
		names = append(names, name)
	}
	return names
}

// Close releases every opened runner. Safe to call once at shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, runner := range m.runners {
		if err := runner.Close(); err != nil {
			m.logger.Warn("Failed to close runner",
				zap.String("target", name),
				zap.String("error", logging.SanitizeError(err)))
		}
	}
	m.runners = make(map[string]QueryRunner)
}
