package store_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alwitt/healthvault/db"
	mockstorage "github.com/alwitt/healthvault/mocks/storage"
	"github.com/alwitt/healthvault/storage"
	"github.com/alwitt/healthvault/store"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestStorePersistenceRoundTrip(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	kv := storage.NewMemoryStorage()

	uut, err := store.Open(utCtx, store.Params{Storage: kv})
	assert.Nil(err)

	patient := uuid.NewString()
	doctor := uuid.NewString()
	for itr := 0; itr < 4; itr++ {
		_, err := uut.Insert(utCtx, newTestRecord(patient))
		assert.Nil(err)
	}
	_, err = uut.Grant(utCtx, patient, doctor)
	assert.Nil(err)
	_, err = uut.Revoke(utCtx, patient, doctor)
	assert.Nil(err)
	_, err = uut.Grant(utCtx, patient, doctor)
	assert.Nil(err)

	recordsBefore, err := uut.ListAll(utCtx)
	assert.Nil(err)
	logBefore, err := uut.LogAll(utCtx)
	assert.Nil(err)

	// The stored item is the exported snapshot
	exported, err := uut.ExportSnapshot(utCtx)
	assert.Nil(err)
	stored, found, err := kv.GetItem(utCtx, store.DefaultStorageKey)
	assert.Nil(err)
	assert.True(found)
	assert.Equal(exported, stored)

	assert.Nil(uut.Close())

	// Reload from storage
	reloaded := openTestStore(t, kv)
	recordsAfter, err := reloaded.ListAll(utCtx)
	assert.Nil(err)
	logAfter, err := reloaded.LogAll(utCtx)
	assert.Nil(err)
	assert.Equal(recordsBefore, recordsAfter)
	assert.Equal(logBefore, logAfter)

	// Contract IDs continue after reload
	rec, err := reloaded.Insert(utCtx, newTestRecord(patient))
	assert.Nil(err)
	assert.Equal(int64(6), *rec.ContractID)
}

func TestStoreCustomStorageKey(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	kv := storage.NewMemoryStorage()

	uut, err := store.Open(utCtx, store.Params{Storage: kv, StorageKey: "alt-key"})
	assert.Nil(err)
	defer func() {
		_ = uut.Close()
	}()
	_, err = uut.ListAll(utCtx)
	assert.Nil(err)

	_, found, err := kv.GetItem(utCtx, "alt-key")
	assert.Nil(err)
	assert.True(found)
	_, found, err = kv.GetItem(utCtx, store.DefaultStorageKey)
	assert.Nil(err)
	assert.False(found)
}

func TestStoreCorruptSnapshot(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	for _, stored := range []string{
		"",
		"not base64 at all!",
		base64.StdEncoding.EncodeToString([]byte(uuid.NewString())),
		damagedRowSnapshot(t),
	} {
		kv := storage.NewMemoryStorage()
		assert.Nil(kv.SetItem(utCtx, store.DefaultStorageKey, stored))

		_, err := store.Open(utCtx, store.Params{Storage: kv})
		assert.Error(err)
		assert.True(errors.Is(err, db.ErrCorruptSnapshot), stored)

		// The stored value is left for inspection
		value, found, err := kv.GetItem(utCtx, store.DefaultStorageKey)
		assert.Nil(err)
		assert.True(found)
		assert.Equal(stored, value)
	}
}

// damagedRowSnapshot a structurally sound snapshot holding a record whose grant list
// is not JSON
func damagedRowSnapshot(t *testing.T) string {
	assert := assert.New(t)

	utCtx := context.Background()
	client, err := db.NewConnection(utCtx, nil, logger.Silent)
	assert.Nil(err)
	defer func() {
		_ = client.Close()
	}()

	assert.Nil(client.RunSQLInTransaction(utCtx, func(ctx context.Context, tx *gorm.DB) error {
		if _, err := db.EnsureSchema(ctx, tx); err != nil {
			return err
		}
		return tx.Exec(
			"INSERT INTO records (id, contract_id, owner, created_at, granted_to, payload) "+
				"VALUES (?, 1, ?, CURRENT_TIMESTAMP, ?, ?)",
			uuid.NewString(), "0xAAA", "[not json", "{}",
		).Error
	}))

	image, err := client.ExportSnapshot(utCtx)
	assert.Nil(err)
	return base64.StdEncoding.EncodeToString(image)
}

func TestStoreStorageUnavailable(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	// Case 0: storage refuses to answer; the store runs in memory and never writes
	{
		kv := mockstorage.NewKeyValueStorage(t)
		kv.On(
			"GetItem", mock.Anything, store.DefaultStorageKey,
		).Return("", false, fmt.Errorf("dial failed [%w]", storage.ErrStorageUnavailable)).Once()

		uut := openTestStore(t, kv)
		rec, err := uut.Insert(utCtx, newTestRecord(uuid.NewString()))
		assert.Nil(err)
		assert.Equal(int64(2), *rec.ContractID)
	}

	// Case 1: no storage at all
	{
		uut := openTestStore(t, nil)
		records, err := uut.ListAll(utCtx)
		assert.Nil(err)
		assert.Len(records, 1)
	}

	// Case 2: any other read failure is fatal
	{
		kv := mockstorage.NewKeyValueStorage(t)
		kv.On(
			"GetItem", mock.Anything, store.DefaultStorageKey,
		).Return("", false, errors.New("permission denied")).Once()

		_, err := store.Open(utCtx, store.Params{Storage: kv})
		assert.Error(err)
	}
}

func TestStorePersistFailure(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	kv := mockstorage.NewKeyValueStorage(t)
	kv.On("GetItem", mock.Anything, store.DefaultStorageKey).Return("", false, nil).Once()
	// Schema creation, then sample data
	kv.On(
		"SetItem", mock.Anything, store.DefaultStorageKey, mock.AnythingOfType("string"),
	).Return(nil).Twice()
	kv.On(
		"SetItem", mock.Anything, store.DefaultStorageKey, mock.AnythingOfType("string"),
	).Return(errors.New("quota exceeded")).Once()

	uut := openTestStore(t, kv)

	_, err := uut.ListAll(utCtx)
	assert.Nil(err)

	rec := newTestRecord(uuid.NewString())
	_, err = uut.Insert(utCtx, rec)
	assert.Error(err)

	// Memory is ahead of the last persisted snapshot, never behind it
	_, found, err := uut.GetByID(utCtx, rec.ID)
	assert.Nil(err)
	assert.True(found)
}

func TestProviderSharedInstance(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	// Case 0: concurrent first callers share one instance
	{
		uut := store.NewProvider(store.Params{Storage: storage.NewMemoryStorage()})

		const callers = 10
		instances := make([]store.HealthRecordStore, callers)
		wg := sync.WaitGroup{}
		for itr := 0; itr < callers; itr++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				instance, err := uut.Get(utCtx)
				assert.Nil(err)
				instances[idx] = instance
			}(itr)
		}
		wg.Wait()

		for itr := 1; itr < callers; itr++ {
			assert.Same(instances[0], instances[itr])
		}
		assert.Nil(instances[0].Close())
	}

	// Case 1: an open failure is returned to every caller
	{
		kv := storage.NewMemoryStorage()
		assert.Nil(kv.SetItem(utCtx, store.DefaultStorageKey, "@@@"))
		uut := store.NewProvider(store.Params{Storage: kv})

		_, err1 := uut.Get(utCtx)
		assert.True(errors.Is(err1, db.ErrCorruptSnapshot))
		_, err2 := uut.Get(utCtx)
		assert.Equal(err1, err2)
	}

	// Case 2: the first caller's context is already cancelled
	{
		uut := store.NewProvider(store.Params{Storage: storage.NewMemoryStorage()})

		cancelledCtx, cancel := context.WithCancel(utCtx)
		cancel()
		first, err := uut.Get(cancelledCtx)
		assert.Nil(err)
		assert.NotNil(first)

		second, err := uut.Get(utCtx)
		assert.Nil(err)
		assert.Same(first, second)
		records, err := second.ListAll(utCtx)
		assert.Nil(err)
		assert.Len(records, 1)
		assert.Nil(uut.Close())
	}
}

func TestProviderClose(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()

	// Case 0: close before first use
	{
		uut := store.NewProvider(store.Params{})
		assert.Nil(uut.Close())
		_, err := uut.Get(utCtx)
		assert.True(errors.Is(err, store.ErrStoreClosed))
	}

	// Case 1: close after use
	{
		uut := store.NewProvider(store.Params{})
		_, err := uut.Get(utCtx)
		assert.Nil(err)
		assert.Nil(uut.Close())
		_, err = uut.Get(utCtx)
		assert.True(errors.Is(err, store.ErrStoreClosed))
		assert.Nil(uut.Close())
	}
}
