package db

import (
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"gorm.io/gorm"
)

const (
	sqlStateUniqueViolation      = "23505"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return constraintName == "" || strings.Contains(msg, constraintName)
	}
	if pkgerrors.SQLState(err) == sqlStateUniqueViolation {
		return constraintName == ""
	}
	if constraintName != "" {
		return false
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsNotFound reports whether a lookup returned no rows.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsBusy reports whether the datastore refused the work because of lock
// contention or a serialization conflict.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	switch pkgerrors.SQLState(err) {
	case sqlStateLockNotAvailable, sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// ClassifyError maps a raw driver failure onto the typed taxonomy. Typed
// errors pass through untouched.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if IsBusy(err) {
		return pkgerrors.Wrap(pkgerrors.CodeBusy, err, "datastore busy, retry later")
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "datastore operation failed")
}
