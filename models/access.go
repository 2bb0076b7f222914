package models

import (
	"fmt"
	"time"
)

// AccessStatusENUMType access grant log entry status ENUM
type AccessStatusENUMType string

const (
	// AccessStatusGranted the doctor holds access
	AccessStatusGranted AccessStatusENUMType = "granted"
	// AccessStatusRevoked the access was withdrawn
	AccessStatusRevoked AccessStatusENUMType = "revoked"
	// AccessStatusPending the grant is awaiting confirmation
	AccessStatusPending AccessStatusENUMType = "pending"
)

// AccessGrant one entry of the access grant audit log
//
// Entries are never reused. Granting again after a revoke appends a new entry.
type AccessGrant struct {
	// ID log entry ID
	ID string `json:"id" gorm:"column:id;primaryKey" validate:"required"`

	// Patient the record owner address
	Patient string `json:"patient" gorm:"column:patient;not null;index" validate:"required"`
	// Doctor the grantee address
	Doctor string `json:"doctor" gorm:"column:doctor;not null;index" validate:"required"`

	// GrantedAt when access was granted
	GrantedAt time.Time `json:"grantedAt" gorm:"column:granted_at;not null"`
	// RevokedAt when access was revoked
	RevokedAt *time.Time `json:"revokedAt,omitempty" gorm:"column:revoked_at"`

	// Status the entry status
	Status AccessStatusENUMType `json:"status" gorm:"column:status;not null" validate:"required,access_status"`
}

// ValidateNextState verify can transition to new state
func (g *AccessGrant) ValidateNextState(newState AccessStatusENUMType) error {
	statesWithTransitions := map[AccessStatusENUMType]map[AccessStatusENUMType]bool{
		AccessStatusPending: {
			AccessStatusPending: true,
			AccessStatusGranted: true,
			AccessStatusRevoked: true,
		},
		AccessStatusGranted: {
			AccessStatusRevoked: true,
		},
	}

	availableNextStates, ok := statesWithTransitions[g.Status]
	if !ok {
		return fmt.Errorf("access grant can't transition out of state '%s'", g.Status)
	}

	if _, ok := availableNextStates[newState]; !ok {
		return fmt.Errorf("access grant can't transition from '%s' to '%s'", g.Status, newState)
	}

	return nil
}
