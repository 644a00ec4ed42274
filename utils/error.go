package utils

import (
	"errors"
	"fmt"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrUnidadDiaExists is returned when a unit-day record already exists for
// the requested (day, unit) key. Callers branch on it; it is a rejected
// operation, not a retryable failure.
var ErrUnidadDiaExists = errors.New("unidad-dia record already exists")

// ValidationError marks a per-record problem (bad date, missing mapping)
// that batch flows count and skip instead of aborting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
