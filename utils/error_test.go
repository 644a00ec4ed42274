package utils

import (
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	dup := &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}
	assert.True(t, IsDuplicateKeyErr(dup))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("create: %w", dup)))

	other := &mysqlDriver.MySQLError{Number: 1205, Message: "Lock wait timeout"}
	assert.False(t, IsDuplicateKeyErr(other))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
	assert.False(t, IsDuplicateKeyErr(nil))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("fecha", "expected YYYY-MM-DD")
	assert.Contains(t, err.Error(), "fecha")
	assert.Contains(t, err.Error(), "expected YYYY-MM-DD")

	var validationErr *ValidationError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &validationErr))
}
