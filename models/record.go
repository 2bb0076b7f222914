package models

import (
	"time"

	"gorm.io/datatypes"
)

// HealthRecord a patient health record whose medical fields are held as ciphertext
type HealthRecord struct {
	// ID caller supplied record ID
	ID string `json:"id" gorm:"column:id;primaryKey" validate:"required"`

	// ContractID store assigned sequence number standing in for the on-chain record ID
	ContractID *int64 `json:"contractId,omitempty" gorm:"column:contract_id;uniqueIndex"`

	// Owner patient wallet address. Compared case-insensitively.
	Owner string `json:"owner" gorm:"column:owner;not null;index" validate:"required"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at;not null;autoCreateTime:false"`
	// UpdatedAt entry update timestamp
	UpdatedAt *time.Time `json:"updatedAt,omitempty" gorm:"column:updated_at;autoUpdateTime:false"`

	// GrantedTo doctor addresses currently allowed to view this record
	GrantedTo datatypes.JSONSlice[string] `json:"grantedTo" gorm:"column:granted_to"`

	// Payload the encrypted record fields
	Payload datatypes.JSONType[RecordPayload] `json:"payload" gorm:"column:payload;not null"`
}

// IsGrantedTo whether the doctor is currently in the record's grant list
func (r HealthRecord) IsGrantedTo(doctor string) bool {
	for _, grantee := range r.GrantedTo {
		if grantee == doctor {
			return true
		}
	}
	return false
}
