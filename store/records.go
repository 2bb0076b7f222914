package store

import (
	"context"
	"fmt"

	"github.com/alwitt/healthvault/db"
	"github.com/alwitt/healthvault/models"
	"github.com/apex/log"
)

func (s *healthRecordStore) ListByOwner(
	ctx context.Context, owner string,
) ([]models.HealthRecord, error) {
	if owner == "" {
		return []models.HealthRecord{}, nil
	}
	var records []models.HealthRecord
	if err := s.read(ctx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		records, err = dbClient.ListRecords(ctx, db.RecordQueryFilter{Owner: &owner})
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list records of '%s' [%w]", owner, err)
	}
	return records, nil
}

func (s *healthRecordStore) ListAll(ctx context.Context) ([]models.HealthRecord, error) {
	var records []models.HealthRecord
	if err := s.read(ctx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		records, err = dbClient.ListRecords(ctx, db.RecordQueryFilter{})
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list records [%w]", err)
	}
	return records, nil
}

func (s *healthRecordStore) GetByID(
	ctx context.Context, recordID string,
) (models.HealthRecord, bool, error) {
	var record models.HealthRecord
	var found bool
	if err := s.read(ctx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		record, found, err = dbClient.GetRecord(ctx, recordID)
		return err
	}); err != nil {
		return models.HealthRecord{}, false, fmt.Errorf("failed to read record %s [%w]", recordID, err)
	}
	return record, found, nil
}

func (s *healthRecordStore) Insert(
	ctx context.Context, record models.HealthRecord,
) (models.HealthRecord, error) {
	var inserted models.HealthRecord
	if err := s.mutate(ctx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		inserted, err = dbClient.DefineNewRecord(ctx, record)
		return err
	}); err != nil {
		return models.HealthRecord{}, fmt.Errorf("failed to insert record %s [%w]", record.ID, err)
	}
	log.WithFields(s.GetLogTagsForContext(ctx)).
		WithField("record-id", inserted.ID).
		WithField("contract-id", *inserted.ContractID).
		Debug("Inserted record")
	return inserted, nil
}

func (s *healthRecordStore) Delete(ctx context.Context, recordID string) (bool, error) {
	var deleted bool
	if err := s.mutate(ctx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		deleted, err = dbClient.DeleteRecord(ctx, recordID)
		return err
	}); err != nil {
		return false, fmt.Errorf("failed to delete record %s [%w]", recordID, err)
	}
	return deleted, nil
}
