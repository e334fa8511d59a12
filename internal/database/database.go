package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sibya/sibya/internal/logging"
	"github.com/sibya/sibya/internal/metrics"
)

// Provider owns the process's single database connection. The connection is
// opened on the first Get and reused until Close.
type Provider struct {
	config *Config
	open   DatabaseFactory

	mu sync.Mutex
	db Database
}

func NewProvider(config *Config) *Provider {
	return &Provider{config: config, open: NewDatabase}
}

// NewProviderWithFactory is NewProvider with a custom opener, mainly for tests.
func NewProviderWithFactory(config *Config, open DatabaseFactory) *Provider {
	return &Provider{config: config, open: open}
}

// Get returns the cached connection, opening it if needed. The lock is held
// while connecting so concurrent first callers share one attempt. A failed
// attempt is not cached.
func (p *Provider) Get(ctx context.Context) (Database, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		return p.db, nil
	}
	if p.config == nil || p.config.URI == "" {
		return nil, ErrConfigMissing
	}

	start := time.Now()
	db, err := p.open(ctx, p.config)
	metrics.RecordDatabaseOperation("connect", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", p.config.Type, err)
	}

	logging.Info("Database connection established", "database", map[string]interface{}{
		"type": string(p.config.Type),
		"name": p.config.Name,
	})
	p.db = db
	return db, nil
}

// Close disconnects the cached connection, if any. Get may reconnect afterwards.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}
	err := p.db.Close(ctx)
	p.db = nil
	return err
}
