// Package repository defines error types that are reused across multiple
// repositories and the translation of MySQL driver errors into application
// error kinds.  Handlers and the booking engine only ever see apperr kinds.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-booking/internal/apperr"
)

// MySQL server error numbers the repositories react to.
const (
	errDupEntry         = 1062
	errLockWaitTimeout  = 1205
	errLockDeadlock     = 1213
	errRowIsReferenced  = 1451
	errNoReferencedRow  = 1452
	errRowIsReferenced2 = 1217
	errOutOfRange       = 1264
	errDataOverflow     = 1690
)

var (
	ErrUserNotFound        = apperr.New(apperr.NotFound, "user not found")
	ErrHotelNotFound       = apperr.New(apperr.NotFound, "hotel not found")
	ErrRoomTypeNotFound    = apperr.New(apperr.NotFound, "room type not found")
	ErrInventoryNotFound   = apperr.New(apperr.NotFound, "inventory record not found")
	ErrReservationNotFound = apperr.New(apperr.NotFound, "reservation not found")

	// ErrReferenceNotFound is returned when an insert or update points at a
	// parent row that does not exist.
	ErrReferenceNotFound = apperr.New(apperr.NotFound, "referenced record not found")

	// ErrEmailExists is returned when a user is created or renamed to an
	// email that is already taken.
	ErrEmailExists = apperr.Invalid("email already exists")

	// ErrDuplicate is returned for any other unique key violation.
	ErrDuplicate = apperr.Invalid("record already exists")

	// ErrOutOfRange is returned when a value does not fit its column, such
	// as an availability above the unsigned 32-bit limit.
	ErrOutOfRange = apperr.Invalid("value out of range")

	// ErrConflict is returned when a delete cannot be performed because of
	// dependent records, such as a hotel that still has reservations.
	ErrConflict = apperr.Invalid("record is still referenced by other records")
)

// classify turns a driver error into an application error.  notFound is
// returned for sql.ErrNoRows and duplicate for unique key violations; both may
// be nil to use the generic values.
func classify(err error, notFound, duplicate *apperr.Error) error {
	if err == nil {
		return nil
	}
	if apperr.Classified(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		if notFound == nil {
			return apperr.ErrNotFound
		}
		return notFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errLockDeadlock, errLockWaitTimeout:
			return apperr.Wrap(apperr.ConcurrencyConflict, "transaction conflict", err)
		case errDupEntry:
			if duplicate == nil {
				return ErrDuplicate
			}
			return duplicate
		case errRowIsReferenced, errRowIsReferenced2:
			return ErrConflict
		case errNoReferencedRow:
			return ErrReferenceNotFound
		case errOutOfRange, errDataOverflow:
			return ErrOutOfRange
		}
	}
	return apperr.Wrap(apperr.StorageFailure, "database error", err)
}
