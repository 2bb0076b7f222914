package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alwitt/healthvault/db"
	"github.com/alwitt/healthvault/models"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestDBCreateHealthRecord verifies `Database.DefineNewRecord`, `Database.GetRecord`
// and `Database.DeleteRecord`.
func TestDBCreateHealthRecord(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := newTestClient(t)

	owner := "0xAbC" + uuid.NewString()
	payload := testPayload()
	note := models.Ciphertext(uuid.NewString())
	payload.Note = note

	// -------------------------------------------------------------------------
	// 1 – Define a new record without a creation timestamp
	var rec1 models.HealthRecord
	before := time.Now().UTC()
	err := uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		r, err := dbClient.DefineNewRecord(ctx, models.HealthRecord{
			ID:      uuid.NewString(),
			Owner:   owner,
			Payload: newPayloadColumn(payload),
		})
		rec1 = r
		return err
	})
	assert.Nil(err)
	assert.NotNil(rec1.ContractID)
	assert.Equal(int64(1), *rec1.ContractID)
	assert.False(rec1.CreatedAt.Before(before.Add(-time.Second)))
	assert.NotNil(rec1.GrantedTo)
	assert.Len(rec1.GrantedTo, 0)
	assert.Equal(payload, rec1.Payload.Data())
	assert.Nil(rec1.UpdatedAt)

	// 2 – Get it back
	err = uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		r, found, err := dbClient.GetRecord(ctx, rec1.ID)
		assert.True(found)
		assert.Equal(rec1, r)
		return err
	})
	assert.Nil(err)

	// -------------------------------------------------------------------------
	// 3 – Define a record with a caller supplied creation time and contract ID
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	var rec2 models.HealthRecord
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		bogus := int64(99)
		r, err := dbClient.DefineNewRecord(ctx, models.HealthRecord{
			ID:         uuid.NewString(),
			ContractID: &bogus,
			Owner:      owner,
			CreatedAt:  created,
			Payload:    newPayloadColumn(testPayload()),
		})
		rec2 = r
		return err
	})
	assert.Nil(err)
	assert.Equal(int64(2), *rec2.ContractID)
	assert.True(created.Equal(rec2.CreatedAt))

	// -------------------------------------------------------------------------
	// 4 – Reuse the ID of record 1 (should fail as a constraint violation)
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.DefineNewRecord(ctx, models.HealthRecord{
			ID:      rec1.ID,
			Owner:   uuid.NewString(),
			Payload: newPayloadColumn(testPayload()),
		})
		return err
	})
	assert.Error(err)
	assert.True(errors.Is(err, db.ErrConstraintViolation))

	// 5 – Record 1 is unchanged
	err = uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		r, found, err := dbClient.GetRecord(ctx, rec1.ID)
		assert.True(found)
		assert.Equal(owner, r.Owner)
		return err
	})
	assert.Nil(err)

	// -------------------------------------------------------------------------
	// 6 – Missing owner fails validation, not as a constraint violation
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, err := dbClient.DefineNewRecord(ctx, models.HealthRecord{ID: uuid.NewString()})
		return err
	})
	assert.Error(err)
	assert.False(errors.Is(err, db.ErrConstraintViolation))

	// -------------------------------------------------------------------------
	// 7 – Delete record 1
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		deleted, err := dbClient.DeleteRecord(ctx, rec1.ID)
		assert.True(deleted)
		return err
	})
	assert.Nil(err)

	// 8 – Record 1 is gone; deleting again is not an error
	err = uut.UseDatabaseInTransaction(utCtx, func(ctx context.Context, dbClient db.Database) error {
		_, found, err := dbClient.GetRecord(ctx, rec1.ID)
		assert.Nil(err)
		assert.False(found)
		deleted, err := dbClient.DeleteRecord(ctx, rec1.ID)
		assert.False(deleted)
		return err
	})
	assert.Nil(err)

	// 9 – The next contract ID continues past the highest assigned one
	rec3 := insertTestRecord(t, uut, owner)
	assert.Equal(int64(3), *rec3.ContractID)
}

// TestDBListHealthRecords verifies `Database.ListRecords` filtering and ordering.
func TestDBListHealthRecords(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	utCtx := context.Background()
	uut := newTestClient(t)

	owner1 := "0xAAA" + uuid.NewString()
	owner2 := "0xBBB" + uuid.NewString()

	rec1 := insertTestRecord(t, uut, owner1)
	rec2 := insertTestRecord(t, uut, owner2)
	rec3 := insertTestRecord(t, uut, owner1)

	err := uut.UseDatabase(utCtx, func(ctx context.Context, dbClient db.Database) error {
		// All records, newest first
		all, err := dbClient.ListRecords(ctx, db.RecordQueryFilter{})
		assert.Nil(err)
		assert.Len(all, 3)
		assert.Equal(rec3.ID, all[0].ID)
		assert.Equal(rec2.ID, all[1].ID)
		assert.Equal(rec1.ID, all[2].ID)

		// Owner filter is case-insensitive
		upper := "0XAAA" + owner1[5:]
		lower := "0xaaa" + owner1[5:]
		byUpper, err := dbClient.ListRecords(ctx, db.RecordQueryFilter{Owner: &upper})
		assert.Nil(err)
		byLower, err := dbClient.ListRecords(ctx, db.RecordQueryFilter{Owner: &lower})
		assert.Nil(err)
		assert.Equal(byUpper, byLower)
		assert.Len(byUpper, 2)
		assert.Equal(rec3.ID, byUpper[0].ID)
		assert.Equal(rec1.ID, byUpper[1].ID)

		// Unknown owner
		unknown := uuid.NewString()
		none, err := dbClient.ListRecords(ctx, db.RecordQueryFilter{Owner: &unknown})
		assert.Nil(err)
		assert.NotNil(none)
		assert.Len(none, 0)

		// Paging
		limit := 1
		offset := 1
		page, err := dbClient.ListRecords(ctx, db.RecordQueryFilter{
			CommonListEntryQueryFilter: db.CommonListEntryQueryFilter{Limit: &limit, Offset: &offset},
		})
		assert.Nil(err)
		assert.Len(page, 1)
		assert.Equal(rec2.ID, page[0].ID)

		count, err := dbClient.CountRecords(ctx)
		assert.Equal(int64(3), count)
		return err
	})
	assert.Nil(err)
}
