package store_test

import (
	"context"
	"testing"

	"github.com/alwitt/healthvault/models"
	"github.com/alwitt/healthvault/storage"
	"github.com/alwitt/healthvault/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

// openTestStore open a store over the given storage, closed at the end of the test
func openTestStore(t *testing.T, kv storage.KeyValueStorage) store.HealthRecordStore {
	assert := assert.New(t)

	uut, err := store.Open(context.Background(), store.Params{Storage: kv})
	assert.Nil(err)
	t.Cleanup(func() {
		_ = uut.Close()
	})
	return uut
}

// newTestRecord a record for the owner with random ciphertext
func newTestRecord(owner string) models.HealthRecord {
	return models.HealthRecord{
		ID:    uuid.NewString(),
		Owner: owner,
		Payload: datatypes.NewJSONType(models.RecordPayload{
			Complaint:   models.Ciphertext(uuid.NewString()),
			Diagnosis:   models.Ciphertext(uuid.NewString()),
			Medications: models.Ciphertext(uuid.NewString()),
			Allergy:     models.Ciphertext(uuid.NewString()),
		}),
	}
}
