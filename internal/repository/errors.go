// Package repository implements MySQL persistence for users, refresh
// tokens, hotels and bookings.  Driver errors are translated at this
// boundary: missing rows become the domain's not-found errors, lock
// contention becomes reservation.ErrTransient and duplicate keys become
// ErrConflict, so higher layers never inspect MySQL error codes.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hotel-reservation/internal/reservation"
)

// ErrConflict is returned when an insert or update collides with an
// existing row, such as a duplicate email.  Handlers should translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers handled by classify.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// classify wraps driver errors with the sentinel callers match on.  Other
// errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDeadlock, errLockWaitTimeout:
		return fmt.Errorf("%w: %v", reservation.ErrTransient, err)
	case errDupEntry:
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
