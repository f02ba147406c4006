// Package sqlite implements a persistent SQLite-backed memory module. It
// provides a memory.Persister that snapshots the bot memory into a single
// key/value table. It uses modernc.org/sqlite (pure Go, no CGO) in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flemzord/sbot/internal/core"
	"github.com/flemzord/sbot/internal/memory"
	"gopkg.in/yaml.v3"
)

// ServiceName is the AppContext service key under which the persister is
// published.
const ServiceName = "memory.persister"

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ memory.Persister  = (*Persister)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module implements a SQLite-backed memory module.
type Module struct {
	config    Config
	db        *sql.DB
	logger    *slog.Logger
	persister *Persister
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "memory.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	db, err := Open(m.config)
	if err != nil {
		return err
	}

	m.db = db
	m.persister = &Persister{db: db}
	ctx.RegisterService(ServiceName, memory.Persister(m.persister))

	m.logger.Info("sqlite memory module provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)

	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}

	if err := m.db.PingContext(context.TODO()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}

	var n int
	if err := m.db.QueryRowContext(context.TODO(), "SELECT count(*) FROM memory").Scan(&n); err != nil {
		return fmt.Errorf("sqlite: memory table not available: %w", err)
	}

	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("sqlite memory module stopping")
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Persister returns the memory.Persister implementation.
func (m *Module) Persister() *Persister {
	return m.persister
}
