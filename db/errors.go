package db

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	// ErrCorruptSnapshot the stored snapshot could not be decoded into a database
	ErrCorruptSnapshot = errors.New("corrupt database snapshot")

	// ErrConstraintViolation a write broke a uniqueness or primary key constraint
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrMutationConflict a write collided with another in-flight write; safe to retry
	ErrMutationConflict = errors.New("concurrent mutation conflict")
)

// classifyError tag engine errors with the matching sentinel error
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w [%w]", ErrConstraintViolation, err)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w [%w]", ErrConstraintViolation, err)
		}
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w [%w]", ErrMutationConflict, err)
		}
	}
	return err
}
