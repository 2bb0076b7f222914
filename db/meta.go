package db

import (
	"context"
	"fmt"

	"github.com/alwitt/healthvault/models"
	"gorm.io/gorm/clause"
)

/*
GetMetaValue fetch one store metadata value

	@param ctx context.Context - execution context
	@param key string - metadata key
	@returns the value, and whether it exists
*/
func (d *databaseImpl) GetMetaValue(_ context.Context, key string) (string, bool, error) {
	var entries []metaEntry
	if err := d.db.Where("key = ?", key).Find(&entries).Error; err != nil {
		return "", false, fmt.Errorf("failed to read meta entry '%s' [%w]", key, err)
	}
	if len(entries) == 0 {
		return "", false, nil
	}
	return entries[0].Value, true, nil
}

/*
SetMetaValue create or replace one store metadata value

	@param ctx context.Context - execution context
	@param key string - metadata key
	@param value string - metadata value
*/
func (d *databaseImpl) SetMetaValue(_ context.Context, key string, value string) error {
	entry := metaEntry{StoreMeta: models.StoreMeta{Key: key, Value: value}}

	if err := d.validator.Struct(&entry); err != nil {
		return fmt.Errorf("meta entry '%s' is not valid [%w]", key, err)
	}

	if tmp := d.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry); tmp.Error != nil {
		return fmt.Errorf("failed to write meta entry '%s' [%w]", key, classifyError(tmp.Error))
	}
	return nil
}
