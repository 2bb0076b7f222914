package db_test

import (
	"context"
	"testing"

	"github.com/alwitt/healthvault/db"
	"github.com/alwitt/healthvault/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestClient prepare an in-memory DB with the store schema
func newTestClient(t *testing.T) db.Client {
	assert := assert.New(t)

	uut, err := db.NewConnection(context.Background(), nil, logger.Error)
	assert.Nil(err)
	t.Cleanup(func() {
		_ = uut.Close()
	})

	assert.Nil(uut.RunSQLInTransaction(
		context.Background(), func(ctx context.Context, tx *gorm.DB) error {
			_, err := db.EnsureSchema(ctx, tx)
			return err
		},
	))

	return uut
}

// testPayload a payload with random opaque field values
func testPayload() models.RecordPayload {
	return models.RecordPayload{
		Complaint:   models.Ciphertext(uuid.NewString()),
		Diagnosis:   models.Ciphertext(uuid.NewString()),
		Medications: models.Ciphertext(uuid.NewString()),
		Allergy:     models.Ciphertext(uuid.NewString()),
	}
}

// insertTestRecord insert a record for the owner in its own transaction
func insertTestRecord(t *testing.T, uut db.Client, owner string) models.HealthRecord {
	assert := assert.New(t)

	var inserted models.HealthRecord
	assert.Nil(uut.UseDatabaseInTransaction(
		context.Background(), func(ctx context.Context, dbClient db.Database) error {
			var err error
			inserted, err = dbClient.DefineNewRecord(ctx, models.HealthRecord{
				ID:      uuid.NewString(),
				Owner:   owner,
				Payload: newPayloadColumn(testPayload()),
			})
			return err
		},
	))
	return inserted
}
