// Package db - embedded persistence layer
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/healthvault/models"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// CommonListEntryQueryFilter common query filter when listing data entries
type CommonListEntryQueryFilter struct {
	Limit  *int
	Offset *int
}

// RecordQueryFilter health record query filter conditions
type RecordQueryFilter struct {
	CommonListEntryQueryFilter
	// Owner fetch only records of this owner, compared case-insensitively
	Owner *string
}

// AccessGrantQueryFilter access grant log query filter conditions
type AccessGrantQueryFilter struct {
	CommonListEntryQueryFilter
	// Patient fetch only entries of this patient, compared case-insensitively
	Patient *string
	// Doctor fetch only entries of this exact doctor
	Doctor *string
	// Status the specific entry states to query for
	Status []models.AccessStatusENUMType
}

// Database the database handle to interacting with the data base
type Database interface {
	// ------------------------------------------------------------------------------------
	// Store metadata

	/*
		GetMetaValue fetch one store metadata value

			@param ctx context.Context - execution context
			@param key string - metadata key
			@returns the value, and whether it exists
	*/
	GetMetaValue(ctx context.Context, key string) (string, bool, error)

	/*
		SetMetaValue create or replace one store metadata value

			@param ctx context.Context - execution context
			@param key string - metadata key
			@param value string - metadata value
	*/
	SetMetaValue(ctx context.Context, key string, value string) error

	// ------------------------------------------------------------------------------------
	// Health records

	/*
		CountRecords count the health records in the store

			@param ctx context.Context - execution context
			@returns number of records
	*/
	CountRecords(ctx context.Context) (int64, error)

	/*
		DefineNewRecord insert a health record, assigning it the next contract ID

			@param ctx context.Context - execution context
			@param record models.HealthRecord - the record to insert
			@returns the record as stored
	*/
	DefineNewRecord(ctx context.Context, record models.HealthRecord) (models.HealthRecord, error)

	/*
		GetRecord fetch a health record by ID

			@param ctx context.Context - execution context
			@param recordID string - health record ID
			@returns the record, and whether it exists
	*/
	GetRecord(ctx context.Context, recordID string) (models.HealthRecord, bool, error)

	/*
		ListRecords list health records, newest first

			@param ctx context.Context - execution context
			@param filters RecordQueryFilter - entry listing filter
			@return list of records
	*/
	ListRecords(ctx context.Context, filters RecordQueryFilter) ([]models.HealthRecord, error)

	/*
		DeleteRecord delete a health record

			@param ctx context.Context - execution context
			@param recordID string - health record ID
			@returns whether a record was deleted
	*/
	DeleteRecord(ctx context.Context, recordID string) (bool, error)

	// ------------------------------------------------------------------------------------
	// Access grants

	/*
		GrantAccess give a doctor access to every record of a patient, and log the grant

			@param ctx context.Context - execution context
			@param patient string - patient address
			@param doctor string - doctor address
			@returns the new access grant log entry
	*/
	GrantAccess(ctx context.Context, patient string, doctor string) (models.AccessGrant, error)

	/*
		RevokeAccess withdraw a doctor's access from every record of a patient, and mark
		the active grant log entries revoked

			@param ctx context.Context - execution context
			@param patient string - patient address
			@param doctor string - doctor address
			@returns the log entries which were revoked
	*/
	RevokeAccess(ctx context.Context, patient string, doctor string) ([]models.AccessGrant, error)

	/*
		ListAccessGrants list access grant log entries, newest first

			@param ctx context.Context - execution context
			@param filters AccessGrantQueryFilter - entry listing filter
			@return list of log entries
	*/
	ListAccessGrants(
		ctx context.Context, filters AccessGrantQueryFilter,
	) ([]models.AccessGrant, error)
}

// databaseImpl implements Database
type databaseImpl struct {
	goutils.Component
	db        *gorm.DB
	validator *validator.Validate
	now       func() time.Time
}

// newDatabase define a new database client
func newDatabase(_ context.Context, sqlClient *gorm.DB) (Database, error) {
	logTags := log.Fields{"package": "healthvault", "module": "db", "component": "db-client"}

	instance := &databaseImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:        sqlClient,
		validator: validator.New(),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}

	if err := models.RegisterWithValidator(instance.validator); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	return instance, nil
}
