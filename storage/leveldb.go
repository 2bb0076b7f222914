package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/syndtr/goleveldb/leveldb"
)

// levelDBStorage KeyValueStorage backed by a local LevelDB directory
type levelDBStorage struct {
	goutils.Component
	db   *leveldb.DB
	path string
}

/*
NewLevelDBStorage define a KeyValueStorage backed by a LevelDB directory

	@param path string - the LevelDB directory. It is created if missing.
	@returns storage instance
*/
func NewLevelDBStorage(path string) (KeyValueStorage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at '%s' [%w]", path, err)
	}
	return &levelDBStorage{
		Component: goutils.Component{
			LogTags: log.Fields{"module": "storage", "component": "leveldb", "path": path},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:   db,
		path: path,
	}, nil
}

// levelDBError attach ErrStorageUnavailable to errors caused by a closed database
func levelDBError(op string, key string, err error) error {
	if errors.Is(err, leveldb.ErrClosed) {
		return fmt.Errorf("%s '%s' [%w: %w]", op, key, ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s '%s' [%w]", op, key, err)
}

func (s *levelDBStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	value, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return "", false, nil
		}
		return "", false, levelDBError("failed to read", key, err)
	}
	return string(value), true, nil
}

func (s *levelDBStorage) SetItem(ctx context.Context, key string, value string) error {
	if err := s.db.Put([]byte(key), []byte(value), nil); err != nil {
		return levelDBError("failed to write", key, err)
	}
	log.WithFields(s.GetLogTagsForContext(ctx)).
		WithField("key", key).
		WithField("size", len(value)).
		Debug("Stored item")
	return nil
}

func (s *levelDBStorage) RemoveItem(_ context.Context, key string) error {
	if err := s.db.Delete([]byte(key), nil); err != nil {
		return levelDBError("failed to delete", key, err)
	}
	return nil
}

func (s *levelDBStorage) Close() error {
	return s.db.Close()
}
