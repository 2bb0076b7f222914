// Package store - health record and access grant repositories over the embedded DB
package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alwitt/goutils"
	"github.com/alwitt/healthvault/db"
	"github.com/alwitt/healthvault/models"
	"github.com/alwitt/healthvault/storage"
	"github.com/apex/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultStorageKey the storage key holding the database snapshot
const DefaultStorageKey = "hv-sqlite-db"

// RecordRepository health record operations
type RecordRepository interface {
	/*
		ListByOwner list the records of one owner, newest first. The owner is compared
		case-insensitively. An empty owner gives an empty list.

			@param ctx context.Context - execution context
			@param owner string - owner address
			@returns the records
	*/
	ListByOwner(ctx context.Context, owner string) ([]models.HealthRecord, error)

	/*
		ListAll list every record, newest first

			@param ctx context.Context - execution context
			@returns the records
	*/
	ListAll(ctx context.Context) ([]models.HealthRecord, error)

	/*
		GetByID fetch one record

			@param ctx context.Context - execution context
			@param recordID string - record ID
			@returns the record, and whether it exists
	*/
	GetByID(ctx context.Context, recordID string) (models.HealthRecord, bool, error)

	/*
		Insert add a new record. The record is assigned the next contract ID, and its
		creation time defaults to now.

			@param ctx context.Context - execution context
			@param record models.HealthRecord - the new record
			@returns the record as stored
	*/
	Insert(ctx context.Context, record models.HealthRecord) (models.HealthRecord, error)

	/*
		Delete remove one record. The access log is not touched.

			@param ctx context.Context - execution context
			@param recordID string - record ID
			@returns whether the record existed
	*/
	Delete(ctx context.Context, recordID string) (bool, error)
}

// AccessRepository access grant operations
type AccessRepository interface {
	/*
		Grant give a doctor access to every record of a patient. A log entry is appended
		on every call.

			@param ctx context.Context - execution context
			@param patient string - patient address
			@param doctor string - doctor address
			@returns the new log entry
	*/
	Grant(ctx context.Context, patient string, doctor string) (models.AccessGrant, error)

	/*
		Revoke withdraw a doctor's access from every record of a patient

			@param ctx context.Context - execution context
			@param patient string - patient address
			@param doctor string - doctor address
			@returns the log entries marked revoked
	*/
	Revoke(ctx context.Context, patient string, doctor string) ([]models.AccessGrant, error)

	/*
		LogForPatient list the access log entries of one patient, newest first

			@param ctx context.Context - execution context
			@param patient string - patient address
			@returns the log entries
	*/
	LogForPatient(ctx context.Context, patient string) ([]models.AccessGrant, error)

	/*
		LogAll list every access log entry, newest first

			@param ctx context.Context - execution context
			@returns the log entries
	*/
	LogAll(ctx context.Context) ([]models.AccessGrant, error)
}

// HealthRecordStore the persisted health record store
type HealthRecordStore interface {
	RecordRepository
	AccessRepository

	/*
		ExportSnapshot serialize the entire store in the persisted snapshot format

			@param ctx context.Context - execution context
			@returns base64 encoded database image
	*/
	ExportSnapshot(ctx context.Context) (string, error)

	// Close release the store. Every mutation was already persisted.
	Close() error
}

// Params store parameters
type Params struct {
	// Storage where the snapshot is persisted. nil keeps the store in memory only.
	Storage storage.KeyValueStorage
	// StorageKey the snapshot key. Defaults to DefaultStorageKey.
	StorageKey string
	// SQLLogLevel SQL statement log level
	SQLLogLevel logger.LogLevel
}

// healthRecordStore implements HealthRecordStore
type healthRecordStore struct {
	goutils.Component

	// lock writers hold it through the transaction and the persist that follows
	lock   sync.RWMutex
	client db.Client

	persistence storage.KeyValueStorage
	storageKey  string

	sampleDataChecked atomic.Bool
}

/*
Open restore the store from its persisted snapshot, or start an empty one

A snapshot which cannot be decoded fails the open with db.ErrCorruptSnapshot. When the
storage can not be reached the store runs in memory only.

	@param ctx context.Context - execution context
	@param params Params - store parameters
	@returns store instance
*/
func Open(ctx context.Context, params Params) (HealthRecordStore, error) {
	if params.StorageKey == "" {
		params.StorageKey = DefaultStorageKey
	}
	if params.SQLLogLevel == 0 {
		params.SQLLogLevel = logger.Silent
	}

	instance := &healthRecordStore{
		Component: goutils.Component{
			LogTags: log.Fields{
				"package": "healthvault", "module": "store", "component": "record-store",
			},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		persistence: params.Storage,
		storageKey:  params.StorageKey,
	}
	logTags := instance.GetLogTagsForContext(ctx)

	image, err := instance.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	instance.client, err = db.NewConnection(ctx, image, params.SQLLogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to open database [%w]", err)
	}

	var schemaCreated bool
	if err := instance.client.RunSQLInTransaction(
		ctx, func(ctx context.Context, tx *gorm.DB) error {
			if schemaCreated, err = db.EnsureSchema(ctx, tx); err != nil {
				return err
			}
			if len(image) > 0 {
				return db.CheckSnapshotRows(ctx, tx)
			}
			return nil
		},
	); err != nil {
		_ = instance.client.Close()
		return nil, fmt.Errorf("failed to prepare schema [%w]", err)
	}
	if schemaCreated {
		log.WithFields(logTags).Info("Created new store schema")
		if err := instance.persist(ctx); err != nil {
			_ = instance.client.Close()
			return nil, err
		}
	}

	return instance, nil
}

// loadSnapshot read and decode the persisted snapshot. No snapshot gives nil.
func (s *healthRecordStore) loadSnapshot(ctx context.Context) ([]byte, error) {
	logTags := s.GetLogTagsForContext(ctx)

	if s.persistence == nil {
		log.WithFields(logTags).Warn("No storage configured, store is held in memory only")
		return nil, nil
	}

	encoded, found, err := s.persistence.GetItem(ctx, s.storageKey)
	if err != nil {
		if errors.Is(err, storage.ErrStorageUnavailable) {
			log.WithError(err).
				WithFields(logTags).
				Warn("Storage unavailable, store is held in memory only for this session")
			s.persistence = nil
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read stored snapshot [%w]", err)
	}
	if !found {
		log.WithFields(logTags).WithField("key", s.storageKey).Info("No stored snapshot")
		return nil, nil
	}

	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: stored snapshot is not base64 [%w]", db.ErrCorruptSnapshot, err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: stored snapshot is empty", db.ErrCorruptSnapshot)
	}
	return image, nil
}

// exportSnapshot serialize the database into the persisted snapshot format
func (s *healthRecordStore) exportSnapshot(ctx context.Context) (string, error) {
	image, err := s.client.ExportSnapshot(ctx)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(image), nil
}

// persist overwrite the stored snapshot with the current database. Caller holds the
// write lock.
func (s *healthRecordStore) persist(ctx context.Context) error {
	if s.persistence == nil {
		return nil
	}
	encoded, err := s.exportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to export snapshot [%w]", err)
	}
	if err := s.persistence.SetItem(ctx, s.storageKey, encoded); err != nil {
		return fmt.Errorf("failed to persist snapshot [%w]", err)
	}
	log.WithFields(s.GetLogTagsForContext(ctx)).
		WithField("key", s.storageKey).
		WithField("size", len(encoded)).
		Debug("Persisted snapshot")
	return nil
}

/*
mutate run a change in one transaction, then persist the whole store

	@param ctx context.Context - execution context
	@param coreLogic func(ctx context.Context, dbClient db.Database) error - the change
*/
func (s *healthRecordStore) mutate(
	ctx context.Context, coreLogic func(ctx context.Context, dbClient db.Database) error,
) error {
	if err := s.ensureSampleData(ctx); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.client.UseDatabaseInTransaction(ctx, coreLogic); err != nil {
		return err
	}
	return s.persist(ctx)
}

/*
read run a query against the store

	@param ctx context.Context - execution context
	@param coreLogic func(ctx context.Context, dbClient db.Database) error - the query
*/
func (s *healthRecordStore) read(
	ctx context.Context, coreLogic func(ctx context.Context, dbClient db.Database) error,
) error {
	if err := s.ensureSampleData(ctx); err != nil {
		return err
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.client.UseDatabase(ctx, coreLogic)
}

func (s *healthRecordStore) ExportSnapshot(ctx context.Context) (string, error) {
	if err := s.ensureSampleData(ctx); err != nil {
		return "", err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	return s.exportSnapshot(ctx)
}

func (s *healthRecordStore) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.client.Close()
}
