package repository

import (
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/homeledger/incident-engine/internal/errors"
	"gorm.io/gorm"
)

var (
	ErrIncidentNotFound      = errors.NewStd("incident not found")
	ErrActionNotFound        = errors.NewStd("incident action not found")
	ErrChecklistItemNotFound = errors.NewStd("checklist item not found")
	ErrPropertyNotFound      = errors.NewStd("property not found")
	// ErrConflict means a concurrent writer won the race for the same key.
	// Retrying the whole operation with the same inputs is safe.
	ErrConflict = errors.NewStd("concurrent write conflict")
)

// mysql error numbers treated as lost races.
const (
	mysqlErrDuplicateEntry = 1062
	mysqlErrLockDeadlock   = 1213
	mysqlErrLockWait       = 1205
)

// isConflict reports whether err is a unique violation, deadlock or
// serialization failure on any supported dialect.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDuplicateEntry, mysqlErrLockDeadlock, mysqlErrLockWait:
			return true
		}
	}
	msg := err.Error()
	for _, s := range []string{
		"UNIQUE constraint failed",   // sqlite
		"database is locked",         // sqlite busy
		"database table is locked",   // sqlite shared cache
		"duplicate key value",        // postgres 23505
		"could not serialize access", // postgres 40001
		"deadlock detected",          // postgres 40P01
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// translate maps conflict-class errors to ErrConflict and leaves others intact.
func translate(err error) error {
	if errors.Is(err, ErrConflict) {
		return err
	}
	if isConflict(err) {
		return errors.Join(ErrConflict, err)
	}
	return err
}
