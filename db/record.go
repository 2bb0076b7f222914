package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alwitt/healthvault/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// recordOrdering newest records first; contract ID breaks timestamp ties
const recordOrdering = "created_at desc, contract_id desc"

/*
CountRecords count the health records in the store

	@param ctx context.Context - execution context
	@returns number of records
*/
func (d *databaseImpl) CountRecords(_ context.Context) (int64, error) {
	var count int64
	if tmp := d.db.Model(&recordEntry{}).Count(&count); tmp.Error != nil {
		return 0, fmt.Errorf("failed to count records [%w]", tmp.Error)
	}
	return count, nil
}

// nextContractID the store-wide contract ID sequence is dense, so the next ID is one
// past the current maximum
func (d *databaseImpl) nextContractID() (int64, error) {
	var maxID int64
	if tmp := d.db.Model(&recordEntry{}).
		Select("COALESCE(MAX(contract_id), 0)").
		Scan(&maxID); tmp.Error != nil {
		return 0, fmt.Errorf("failed to read highest contract ID [%w]", tmp.Error)
	}
	return maxID + 1, nil
}

/*
DefineNewRecord insert a health record, assigning it the next contract ID

The grant list of the new record is taken from the owner's active access grants.

The caller must run this inside a transaction holding the store's write lock, so that
reading the highest contract ID and inserting the new row happen as one step.

	@param ctx context.Context - execution context
	@param record models.HealthRecord - the record to insert
	@returns the record as stored
*/
func (d *databaseImpl) DefineNewRecord(
	ctx context.Context, record models.HealthRecord,
) (models.HealthRecord, error) {
	newEntry := recordEntry{HealthRecord: record}

	if newEntry.CreatedAt.IsZero() {
		newEntry.CreatedAt = d.now()
	} else {
		newEntry.CreatedAt = newEntry.CreatedAt.UTC()
	}
	if newEntry.UpdatedAt != nil {
		updatedAt := newEntry.UpdatedAt.UTC()
		newEntry.UpdatedAt = &updatedAt
	}
	// Access is granted per patient, so a new record lists every doctor holding an
	// active grant for its owner, whatever the caller supplied.
	grantees, err := d.activeGrantees(record.Owner)
	if err != nil {
		return models.HealthRecord{}, err
	}
	newEntry.GrantedTo = datatypes.JSONSlice[string](grantees)

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.HealthRecord{}, fmt.Errorf("new record '%s' is not valid [%w]", record.ID, err)
	}

	contractID, err := d.nextContractID()
	if err != nil {
		return models.HealthRecord{}, err
	}
	newEntry.ContractID = &contractID

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.HealthRecord{}, fmt.Errorf(
			"new record '%s' failed insert [%w]", record.ID, classifyError(tmp.Error),
		)
	}

	stored, found, err := d.GetRecord(ctx, record.ID)
	if err != nil {
		return models.HealthRecord{}, err
	}
	if !found {
		return models.HealthRecord{}, fmt.Errorf("new record '%s' missing after insert", record.ID)
	}
	return stored, nil
}

/*
GetRecord fetch a health record by ID

	@param ctx context.Context - execution context
	@param recordID string - health record ID
	@returns the record, and whether it exists
*/
func (d *databaseImpl) GetRecord(
	_ context.Context, recordID string,
) (models.HealthRecord, bool, error) {
	var entry recordEntry
	tmp := d.db.Where("id = ?", recordID).First(&entry)
	if tmp.Error != nil {
		if errors.Is(tmp.Error, gorm.ErrRecordNotFound) {
			return models.HealthRecord{}, false, nil
		}
		return models.HealthRecord{}, false, fmt.Errorf(
			"failed to fetch record %s [%w]", recordID, tmp.Error,
		)
	}
	return normalizeRecord(entry.HealthRecord), true, nil
}

// listRecordEntries query record entries matching the filter
func (d *databaseImpl) listRecordEntries(filters RecordQueryFilter) ([]recordEntry, error) {
	query := d.db.Model(&recordEntry{})

	if filters.Owner != nil {
		query = query.Where("LOWER(owner) = LOWER(?)", *filters.Owner)
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	query = query.Order(recordOrdering)

	var entries []recordEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list health records [%w]", tmp.Error)
	}
	return entries, nil
}

/*
ListRecords list health records, newest first

	@param ctx context.Context - execution context
	@param filters RecordQueryFilter - entry listing filter
	@return list of records
*/
func (d *databaseImpl) ListRecords(
	_ context.Context, filters RecordQueryFilter,
) ([]models.HealthRecord, error) {
	entries, err := d.listRecordEntries(filters)
	if err != nil {
		return nil, err
	}

	result := []models.HealthRecord{}
	for _, entry := range entries {
		result = append(result, normalizeRecord(entry.HealthRecord))
	}

	return result, nil
}

/*
DeleteRecord delete a health record

	@param ctx context.Context - execution context
	@param recordID string - health record ID
	@returns whether a record was deleted
*/
func (d *databaseImpl) DeleteRecord(_ context.Context, recordID string) (bool, error) {
	tmp := d.db.Where("id = ?", recordID).Delete(&recordEntry{})
	if tmp.Error != nil {
		return false, fmt.Errorf("failed to delete record %s [%w]", recordID, tmp.Error)
	}
	return tmp.RowsAffected > 0, nil
}

// updateRecordGrantees replace the grant list of one record
func (d *databaseImpl) updateRecordGrantees(
	recordID string, grantedTo []string, timestamp time.Time,
) error {
	tmp := d.db.Model(&recordEntry{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"granted_to": datatypes.JSONSlice[string](grantedTo),
			"updated_at": timestamp,
		})
	if tmp.Error != nil {
		return fmt.Errorf(
			"failed to update grant list of record %s [%w]", recordID, classifyError(tmp.Error),
		)
	}
	return nil
}

// normalizeRecord a missing grant list reads back as empty, never null
func normalizeRecord(record models.HealthRecord) models.HealthRecord {
	if record.GrantedTo == nil {
		record.GrantedTo = datatypes.JSONSlice[string]{}
	}
	return record
}
