// Package models - health vault data models
package models

const (
	// MetaKeySchemaVersion meta entry holding the schema version of the store
	MetaKeySchemaVersion = "schema_version"
	// MetaKeySampleDataSeeded meta entry marking the sample data check already ran
	MetaKeySampleDataSeeded = "sample_data_seeded"
)

// StoreMeta one key-value entry of store level metadata
type StoreMeta struct {
	// Key meta entry key
	Key string `json:"key" gorm:"column:key;primaryKey" validate:"required"`
	// Value meta entry value
	Value string `json:"value" gorm:"column:value"`
}
