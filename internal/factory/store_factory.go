package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/llm-feed-filter/internal/adapters/store"
	"github.com/mikey/llm-feed-filter/internal/config"
	"github.com/mikey/llm-feed-filter/internal/ports"
	"go.uber.org/zap"
)

// StoreFactory creates durable slot stores based on configuration
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

// CreateSlotStore creates a slot store based on the configuration
func (f *StoreFactory) CreateSlotStore() (ports.SlotStore, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite", "sqlite-purego":
		if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		open := store.NewSQLiteStore
		if storeCfg.Type == "sqlite-purego" {
			open = store.NewPureGoSQLiteStore
		}
		s, err := open(storeCfg.SQLitePath, f.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mysql":
		s, err := store.NewMySQLStore(storeCfg.MySQLDSN, f.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
