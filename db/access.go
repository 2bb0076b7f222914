package db

import (
	"context"
	"fmt"

	"github.com/alwitt/healthvault/models"
	"github.com/oklog/ulid/v2"
)

// accessGrantOrdering newest grants first; ULIDs sort by creation and break ties
const accessGrantOrdering = "granted_at desc, id desc"

/*
GrantAccess give a doctor access to every record of a patient, and log the grant

A log entry is always appended, even when the doctor already held access to every
record. Records already listing the doctor are left untouched.

	@param ctx context.Context - execution context
	@param patient string - patient address
	@param doctor string - doctor address
	@returns the new access grant log entry
*/
func (d *databaseImpl) GrantAccess(
	_ context.Context, patient string, doctor string,
) (models.AccessGrant, error) {
	timestamp := d.now()

	newEntry := accessLogEntry{
		AccessGrant: models.AccessGrant{
			ID:        ulid.Make().String(),
			Patient:   patient,
			Doctor:    doctor,
			GrantedAt: timestamp,
			Status:    models.AccessStatusGranted,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.AccessGrant{}, fmt.Errorf(
			"access grant %s -> %s is not valid [%w]", patient, doctor, err,
		)
	}

	records, err := d.listRecordEntries(RecordQueryFilter{Owner: &patient})
	if err != nil {
		return models.AccessGrant{}, err
	}
	for _, record := range records {
		if record.IsGrantedTo(doctor) {
			continue
		}
		grantedTo := append(append([]string{}, record.GrantedTo...), doctor)
		if err := d.updateRecordGrantees(record.ID, grantedTo, timestamp); err != nil {
			return models.AccessGrant{}, err
		}
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.AccessGrant{}, fmt.Errorf(
			"access grant %s -> %s insert failed [%w]", patient, doctor, classifyError(tmp.Error),
		)
	}

	return newEntry.AccessGrant, nil
}

/*
RevokeAccess withdraw a doctor's access from every record of a patient, and mark the
active grant log entries revoked

The doctor is removed from every grant list even when no active log entry exists.

	@param ctx context.Context - execution context
	@param patient string - patient address
	@param doctor string - doctor address
	@returns the log entries which were revoked
*/
func (d *databaseImpl) RevokeAccess(
	_ context.Context, patient string, doctor string,
) ([]models.AccessGrant, error) {
	timestamp := d.now()

	records, err := d.listRecordEntries(RecordQueryFilter{Owner: &patient})
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if !record.IsGrantedTo(doctor) {
			continue
		}
		grantedTo := []string{}
		for _, grantee := range record.GrantedTo {
			if grantee != doctor {
				grantedTo = append(grantedTo, grantee)
			}
		}
		if err := d.updateRecordGrantees(record.ID, grantedTo, timestamp); err != nil {
			return nil, err
		}
	}

	active, err := d.listAccessLogEntries(AccessGrantQueryFilter{
		Patient: &patient,
		Doctor:  &doctor,
		Status:  []models.AccessStatusENUMType{models.AccessStatusGranted},
	})
	if err != nil {
		return nil, err
	}

	revoked := []models.AccessGrant{}
	for _, entry := range active {
		if err := entry.ValidateNextState(models.AccessStatusRevoked); err != nil {
			return nil, fmt.Errorf("access grant %s can't be revoked [%w]", entry.ID, err)
		}
		revokedAt := timestamp
		entry.Status = models.AccessStatusRevoked
		entry.RevokedAt = &revokedAt
		tmp := d.db.Model(&accessLogEntry{}).
			Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"status": entry.Status, "revoked_at": revokedAt,
			})
		if tmp.Error != nil {
			return nil, fmt.Errorf(
				"access grant %s revoke update failed [%w]", entry.ID, classifyError(tmp.Error),
			)
		}
		revoked = append(revoked, entry.AccessGrant)
	}

	return revoked, nil
}

// activeGrantees the distinct doctors holding an active grant for the patient, in the
// order they were first granted
func (d *databaseImpl) activeGrantees(patient string) ([]string, error) {
	grantees := []string{}
	if patient == "" {
		return grantees, nil
	}
	active, err := d.listAccessLogEntries(AccessGrantQueryFilter{
		Patient: &patient,
		Status:  []models.AccessStatusENUMType{models.AccessStatusGranted},
	})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for itr := len(active) - 1; itr >= 0; itr-- {
		doctor := active[itr].Doctor
		if seen[doctor] {
			continue
		}
		seen[doctor] = true
		grantees = append(grantees, doctor)
	}
	return grantees, nil
}

// listAccessLogEntries query access log entries matching the filter
func (d *databaseImpl) listAccessLogEntries(
	filters AccessGrantQueryFilter,
) ([]accessLogEntry, error) {
	query := d.db.Model(&accessLogEntry{})

	if filters.Patient != nil {
		query = query.Where("LOWER(patient) = LOWER(?)", *filters.Patient)
	}
	if filters.Doctor != nil {
		query = query.Where("doctor = ?", *filters.Doctor)
	}
	if len(filters.Status) > 0 {
		query = query.Where("status in ?", filters.Status)
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	query = query.Order(accessGrantOrdering)

	var entries []accessLogEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list access grants [%w]", tmp.Error)
	}
	return entries, nil
}

/*
ListAccessGrants list access grant log entries, newest first

	@param ctx context.Context - execution context
	@param filters AccessGrantQueryFilter - entry listing filter
	@return list of log entries
*/
func (d *databaseImpl) ListAccessGrants(
	_ context.Context, filters AccessGrantQueryFilter,
) ([]models.AccessGrant, error) {
	entries, err := d.listAccessLogEntries(filters)
	if err != nil {
		return nil, err
	}

	result := []models.AccessGrant{}
	for _, entry := range entries {
		result = append(result, entry.AccessGrant)
	}

	return result, nil
}
