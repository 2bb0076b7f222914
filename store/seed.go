package store

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/healthvault/db"
	"github.com/alwitt/healthvault/encryption"
	"github.com/alwitt/healthvault/models"
	"github.com/apex/log"
	"gorm.io/datatypes"
)

const (
	// SampleRecordID ID of the demonstration record
	SampleRecordID = "sample-1"
	// SampleRecordOwner owner of the demonstration record
	SampleRecordOwner = "0x1234...5678"
	// SampleRecordDoctor doctor granted access to the demonstration record
	SampleRecordDoctor = "0xabcd...ef01"
)

// sampleNote note of the demonstration record
var sampleNote = "Istirahat cukup dan minum air putih"

// samplePlainPayload the demonstration record content
var samplePlainPayload = models.PlainPayload{
	Complaint:   "Demam dan batuk selama 3 hari",
	Diagnosis:   "Influenza",
	Medications: "Paracetamol 500mg, 3x sehari",
	Allergy:     "Tidak ada",
	Note:        &sampleNote,
}

/*
ensureSampleData insert the demonstration record the first time the store is observed
empty

The check runs once per store lifetime. Its outcome is recorded in the store metadata,
so deleting every record later never brings the demonstration record back.

The demonstration doctor is granted access through the regular grant path, so a freshly
seeded store holds one `granted` access log entry alongside the record, keeping the
record's grant list and the access log in agreement.

	@param ctx context.Context - execution context
*/
func (s *healthRecordStore) ensureSampleData(ctx context.Context) error {
	if s.sampleDataChecked.Load() {
		return nil
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.sampleDataChecked.Load() {
		return nil
	}

	logTags := s.GetLogTagsForContext(ctx)
	seeded := false
	marked := false
	if err := s.client.UseDatabaseInTransaction(
		ctx, func(ctx context.Context, dbClient db.Database) error {
			if _, observed, err := dbClient.GetMetaValue(
				ctx, models.MetaKeySampleDataSeeded,
			); err != nil {
				return err
			} else if observed {
				return nil
			}

			count, err := dbClient.CountRecords(ctx)
			if err != nil {
				return err
			}
			if count == 0 {
				if err := insertSampleData(ctx, dbClient); err != nil {
					return err
				}
				seeded = true
			}

			marked = true
			return dbClient.SetMetaValue(
				ctx, models.MetaKeySampleDataSeeded, time.Now().UTC().Format(time.RFC3339),
			)
		},
	); err != nil {
		return fmt.Errorf("failed to check sample data [%w]", err)
	}
	s.sampleDataChecked.Store(true)

	if seeded {
		log.WithFields(logTags).WithField("record-id", SampleRecordID).Info("Inserted sample data")
	}

	if !marked {
		return nil
	}
	return s.persist(ctx)
}

// insertSampleData insert the demonstration record, then grant the demonstration
// doctor access to it. The grant fills in the record's grant list.
func insertSampleData(ctx context.Context, dbClient db.Database) error {
	payload, err := encryption.NewBase64JSONCodec().EncodePayload(ctx, samplePlainPayload)
	if err != nil {
		return fmt.Errorf("failed to encode sample payload [%w]", err)
	}

	record, err := dbClient.DefineNewRecord(ctx, models.HealthRecord{
		ID:      SampleRecordID,
		Owner:   SampleRecordOwner,
		Payload: datatypes.NewJSONType(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to insert sample record [%w]", err)
	}
	if *record.ContractID != 1 {
		return fmt.Errorf("sample record was given contract ID %d", *record.ContractID)
	}

	if _, err := dbClient.GrantAccess(ctx, SampleRecordOwner, SampleRecordDoctor); err != nil {
		return fmt.Errorf("failed to log sample access grant [%w]", err)
	}
	return nil
}
