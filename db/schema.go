package db

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alwitt/healthvault/models"
	"gorm.io/gorm"
)

// SchemaVersion the table layout version this package reads and writes
const SchemaVersion = 1

/*
EnsureSchema make sure the store tables and schema version marker exist.

The meta table is created when missing. If it already records a schema version, nothing
else happens; otherwise the records and access log tables are created and the version
marker written in the same transaction.

	@param ctx context.Context - execution context
	@param tx *gorm.DB - the transaction to run in
	@returns whether the schema was created by this call
*/
func EnsureSchema(_ context.Context, tx *gorm.DB) (bool, error) {
	migrator := tx.Migrator()

	if !migrator.HasTable(&metaEntry{}) {
		if err := migrator.CreateTable(&metaEntry{}); err != nil {
			return false, fmt.Errorf("failed to create meta table [%w]", err)
		}
	}

	var entries []metaEntry
	if err := tx.Where("key = ?", models.MetaKeySchemaVersion).Find(&entries).Error; err != nil {
		return false, fmt.Errorf("failed to read schema version [%w]", err)
	}
	if len(entries) > 0 {
		version, err := strconv.Atoi(entries[0].Value)
		if err != nil {
			return false, fmt.Errorf(
				"%w: unreadable schema version '%s'", ErrCorruptSnapshot, entries[0].Value,
			)
		}
		if version != SchemaVersion {
			return false, fmt.Errorf(
				"unsupported schema version %d, expected %d", version, SchemaVersion,
			)
		}
		return false, nil
	}

	if err := migrator.AutoMigrate(&recordEntry{}, &accessLogEntry{}); err != nil {
		return false, fmt.Errorf("failed to create store tables [%w]", err)
	}

	marker := metaEntry{
		StoreMeta: models.StoreMeta{
			Key: models.MetaKeySchemaVersion, Value: strconv.Itoa(SchemaVersion),
		},
	}
	if err := tx.Create(&marker).Error; err != nil {
		return false, fmt.Errorf("failed to record schema version [%w]", err)
	}

	return true, nil
}
