package db_test

import (
	"github.com/alwitt/healthvault/models"
	"gorm.io/datatypes"
)

func newPayloadColumn(payload models.RecordPayload) datatypes.JSONType[models.RecordPayload] {
	return datatypes.NewJSONType(payload)
}
