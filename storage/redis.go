package storage

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/redis/go-redis/v9"
)

// redisStorage KeyValueStorage backed by a Redis server
type redisStorage struct {
	goutils.Component
	client *redis.Client
}

/*
NewRedisStorage define a KeyValueStorage backed by a Redis server

	@param addr string - server address as host:port
	@param dbIndex int - Redis logical database
	@returns storage instance
*/
func NewRedisStorage(addr string, dbIndex int) KeyValueStorage {
	return newRedisStorage(redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIndex,
	}))
}

func newRedisStorage(client *redis.Client) KeyValueStorage {
	return &redisStorage{
		Component: goutils.Component{
			LogTags: log.Fields{
				"module": "storage", "component": "redis", "server": client.Options().Addr,
			},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		client: client,
	}
}

// redisError attach ErrStorageUnavailable to connectivity failures
func redisError(op string, key string, err error) error {
	var netErr net.Error
	if errors.Is(err, redis.ErrClosed) || errors.As(err, &netErr) {
		return fmt.Errorf("%s '%s' [%w: %w]", op, key, ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s '%s' [%w]", op, key, err)
}

func (s *redisStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, redisError("failed to read", key, err)
	}
	return value, true, nil
}

func (s *redisStorage) SetItem(ctx context.Context, key string, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return redisError("failed to write", key, err)
	}
	log.WithFields(s.GetLogTagsForContext(ctx)).
		WithField("key", key).
		WithField("size", len(value)).
		Debug("Stored item")
	return nil
}

func (s *redisStorage) RemoveItem(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return redisError("failed to delete", key, err)
	}
	return nil
}

func (s *redisStorage) Close() error {
	return s.client.Close()
}
