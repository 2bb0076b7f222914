package storage

import (
	"context"
	"fmt"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/patrickmn/go-cache"
)

// memoryStorage process local KeyValueStorage
type memoryStorage struct {
	goutils.Component
	items *cache.Cache
}

// NewMemoryStorage define a process local KeyValueStorage. Nothing survives the process.
func NewMemoryStorage() KeyValueStorage {
	return &memoryStorage{
		Component: goutils.Component{
			LogTags: log.Fields{"module": "storage", "component": "memory"},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		items: cache.New(cache.NoExpiration, 0),
	}
}

func (s *memoryStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	raw, ok := s.items.Get(key)
	if !ok {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("key '%s' holds a %T", key, raw)
	}
	return value, true, nil
}

func (s *memoryStorage) SetItem(ctx context.Context, key string, value string) error {
	s.items.Set(key, value, cache.NoExpiration)
	log.WithFields(s.GetLogTagsForContext(ctx)).
		WithField("key", key).
		WithField("size", len(value)).
		Debug("Stored item")
	return nil
}

func (s *memoryStorage) RemoveItem(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

func (s *memoryStorage) Close() error {
	s.items.Flush()
	return nil
}
