package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pest-detectives/backend/internal/config"
)

// KV is a durable string-keyed store. Implementations give no transaction
// guarantees across keys; each Set replaces the whole value.
type KV interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases any resources held by the store.
	Close() error
}

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "pest-detectives.db"

// Open returns the KV backend selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (KV, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return NewMemoryKV(), nil

	case config.BackendRedis:
		kv, err := NewRedisKV(ctx, RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Namespace: cfg.RedisNamespace,
		})
		if err != nil {
			return nil, err
		}
		log.Info("using redis key-value store", zap.String("addr", cfg.RedisAddr))
		return kv, nil

	case config.BackendSQLite:
		db, err := NewDB(filepath.Join(cfg.DataDir, DatabaseFile))
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(db, log); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info("using sqlite key-value store", zap.String("path", db.Path()))
		return NewSQLiteKV(db), nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
