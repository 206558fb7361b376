package backend

import (
	"context"
	"fmt"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		store, err = f.createMemoryStore(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Store: store, Cleanup: store.Close}
	if config.CacheSize > 0 {
		c := cache.NewLRUCache[[]byte](config.CacheSize, config.CacheTTL)
		cached := storage.NewCachedStore(store, c)
		result.Store = cached
		result.Cache = c
		result.Cleanup = cached.Close
		f.logger.InfoContext(ctx, "Enabled store cache",
			"size", config.CacheSize,
			"ttl", config.CacheTTL)
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (storage.Store, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return store, nil
}

func (f *DefaultFactory) createMemoryStore(ctx context.Context, config Config) (storage.Store, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store, err := memory.LoadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory store: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized memory backend",
		"data_directory", dataDir,
		log.FieldCount, len(store.Keys()))
	return store, nil
}
