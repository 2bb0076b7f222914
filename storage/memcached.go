package storage

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/bradfitz/gomemcache/memcache"
)

// memcachedStorage KeyValueStorage backed by memcached servers
//
// memcached may evict items under memory pressure, so it only suits deployments that
// accept losing the snapshot.
type memcachedStorage struct {
	goutils.Component
	client *memcache.Client
}

/*
NewMemcachedStorage define a KeyValueStorage backed by memcached

	@param servers ...string - memcached servers as host:port
	@returns storage instance
*/
func NewMemcachedStorage(servers ...string) KeyValueStorage {
	return &memcachedStorage{
		Component: goutils.Component{
			LogTags: log.Fields{"module": "storage", "component": "memcached"},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		client: memcache.New(servers...),
	}
}

// memcachedError attach ErrStorageUnavailable to connectivity failures
func memcachedError(op string, key string, err error) error {
	var netErr net.Error
	var connectErr *memcache.ConnectTimeoutError
	if errors.Is(err, memcache.ErrNoServers) ||
		errors.As(err, &connectErr) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("%s '%s' [%w: %w]", op, key, ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s '%s' [%w]", op, key, err)
}

func (s *memcachedStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	item, err := s.client.Get(key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return "", false, nil
		}
		return "", false, memcachedError("failed to read", key, err)
	}
	return string(item.Value), true, nil
}

func (s *memcachedStorage) SetItem(ctx context.Context, key string, value string) error {
	if err := s.client.Set(&memcache.Item{Key: key, Value: []byte(value)}); err != nil {
		return memcachedError("failed to write", key, err)
	}
	log.WithFields(s.GetLogTagsForContext(ctx)).
		WithField("key", key).
		WithField("size", len(value)).
		Debug("Stored item")
	return nil
}

func (s *memcachedStorage) RemoveItem(_ context.Context, key string) error {
	if err := s.client.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return memcachedError("failed to delete", key, err)
	}
	return nil
}

func (s *memcachedStorage) Close() error {
	return s.client.Close()
}
