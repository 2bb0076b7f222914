package store

import (
	"context"
	"fmt"

	"github.com/alwitt/healthvault/db"
	"github.com/alwitt/healthvault/models"
	"github.com/apex/log"
)

func (s *healthRecordStore) Grant(
	ctx context.Context, patient string, doctor string,
) (models.AccessGrant, error) {
	var entry models.AccessGrant
	if err := s.mutate(ctx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		entry, err = dbClient.GrantAccess(ctx, patient, doctor)
		return err
	}); err != nil {
		return models.AccessGrant{}, fmt.Errorf(
			"failed to grant %s access to %s [%w]", doctor, patient, err,
		)
	}
	log.WithFields(s.GetLogTagsForContext(ctx)).
		WithField("patient", patient).
		WithField("doctor", doctor).
		WithField("grant-id", entry.ID).
		Info("Granted access")
	return entry, nil
}

func (s *healthRecordStore) Revoke(
	ctx context.Context, patient string, doctor string,
) ([]models.AccessGrant, error) {
	var revoked []models.AccessGrant
	if err := s.mutate(ctx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		revoked, err = dbClient.RevokeAccess(ctx, patient, doctor)
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to revoke %s access to %s [%w]", doctor, patient, err)
	}
	logHandle := log.WithFields(s.GetLogTagsForContext(ctx)).
		WithField("patient", patient).
		WithField("doctor", doctor)
	if len(revoked) == 0 {
		logHandle.Warn("Revoked access with no active grant on record")
	} else {
		logHandle.WithField("revoked", len(revoked)).Info("Revoked access")
	}
	return revoked, nil
}

func (s *healthRecordStore) LogForPatient(
	ctx context.Context, patient string,
) ([]models.AccessGrant, error) {
	var entries []models.AccessGrant
	if err := s.read(ctx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		entries, err = dbClient.ListAccessGrants(ctx, db.AccessGrantQueryFilter{Patient: &patient})
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list access log of '%s' [%w]", patient, err)
	}
	return entries, nil
}

func (s *healthRecordStore) LogAll(ctx context.Context) ([]models.AccessGrant, error) {
	var entries []models.AccessGrant
	if err := s.read(ctx, func(ctx context.Context, dbClient db.Database) error {
		var err error
		entries, err = dbClient.ListAccessGrants(ctx, db.AccessGrantQueryFilter{})
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list access log [%w]", err)
	}
	return entries, nil
}
