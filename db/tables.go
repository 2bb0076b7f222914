package db

import "github.com/alwitt/healthvault/models"

// --------------------------------------------------------------------------------------
// Store metadata

type metaEntry struct {
	models.StoreMeta
}

// TableName hard code table name
func (metaEntry) TableName() string {
	return "meta"
}

// --------------------------------------------------------------------------------------
// Health records

type recordEntry struct {
	models.HealthRecord
}

// TableName hard code table name
func (recordEntry) TableName() string {
	return "records"
}

// --------------------------------------------------------------------------------------
// Access grant log

type accessLogEntry struct {
	models.AccessGrant
}

// TableName hard code table name
func (accessLogEntry) TableName() string {
	return "access_logs"
}

// TableModels the gorm models of every table in the store, in creation order
func TableModels() []interface{} {
	return []interface{}{&metaEntry{}, &recordEntry{}, &accessLogEntry{}}
}
