// Package healthvault - patient health records with wallet scoped access control
package healthvault

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/alwitt/healthvault/config"
	"github.com/alwitt/healthvault/encryption"
	"github.com/alwitt/healthvault/storage"
	"github.com/alwitt/healthvault/store"
)

/*
NewStorage initialize the snapshot storage selected by the configuration

	@param cfg config.StorageConfig - storage configuration
	@returns the storage, nil for the "none" backend
*/
func NewStorage(cfg config.StorageConfig) (storage.KeyValueStorage, error) {
	switch cfg.Backend {
	case "none":
		return nil, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "leveldb":
		return storage.NewLevelDBStorage(cfg.LevelDBPath)
	case "redis":
		return storage.NewRedisStorage(cfg.RedisAddr, cfg.RedisDB), nil
	case "memcached":
		return storage.NewMemcachedStorage(cfg.MemcachedAddr), nil
	}
	return nil, fmt.Errorf("unknown storage backend '%s'", cfg.Backend)
}

/*
NewPayloadCodec initialize the record payload codec selected by the configuration

	@param ctx context.Context - execution context
	@param cfg config.CodecConfig - codec configuration
	@returns the codec
*/
func NewPayloadCodec(ctx context.Context, cfg config.CodecConfig) (encryption.PayloadCodec, error) {
	switch cfg.Type {
	case "base64json":
		return encryption.NewBase64JSONCodec(), nil
	case "sealed":
		key, err := base64.StdEncoding.DecodeString(cfg.SealingKey)
		if err != nil {
			return nil, fmt.Errorf("sealing key is not base64 [%w]", err)
		}
		return encryption.NewSealedCodec(ctx, key)
	}
	return nil, fmt.Errorf("unknown payload codec '%s'", cfg.Type)
}

/*
NewStoreProvider initialize the shared store provider over the configured storage

The store itself opens on first use.

	@param cfg config.Config - application configuration
	@param persistence storage.KeyValueStorage - snapshot storage, nil for memory only
	@returns the store provider
*/
func NewStoreProvider(cfg config.Config, persistence storage.KeyValueStorage) *store.Provider {
	return store.NewProvider(store.Params{
		Storage:     persistence,
		StorageKey:  cfg.Storage.Key,
		SQLLogLevel: cfg.Log.SQLLogLevel(),
	})
}
