package factory

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/junk-scan/internal/adapters/store"
	"github.com/mikey/junk-scan/internal/config"
	"github.com/mikey/junk-scan/internal/core"
)

// Stores bundles the two persistence ports; every backend implements
// both so a single configured store serves checkpoint and results.
type Stores struct {
	Checkpoints core.CheckpointStore
	Results     core.ResultStore
}

// Close releases the backend's connection, if it holds one. Both ports
// are served by the same backend instance, so one close suffices.
func (s *Stores) Close() error {
	if c, ok := s.Checkpoints.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// StoreFactory creates scan-state stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStores creates the configured store backend
func (f *StoreFactory) CreateStores() (*Stores, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "file":
		fs, err := store.NewFileStore(storeCfg.Dir, f.logger)
		if err != nil {
			return nil, err
		}
		return &Stores{Checkpoints: fs, Results: fs}, nil
	case "sqlite":
		// Ensure directory exists
		if dir := filepath.Dir(storeCfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
		st, err := store.NewSQLiteStore(storeCfg.SQLitePath, f.logger)
		if err != nil {
			return nil, err
		}
		return &Stores{Checkpoints: st, Results: st}, nil
	case "mysql":
		st, err := store.NewMySQLStore(storeCfg.MySQLDSN, f.logger)
		if err != nil {
			return nil, err
		}
		return &Stores{Checkpoints: st, Results: st}, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
