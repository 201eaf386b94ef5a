package datastore

import (
	"errors"
	"fmt"
)

// ErrCodeAlreadyInitialized is reported when Define is called twice.
const ErrCodeAlreadyInitialized = "ALREADY_INITIALIZED"

// StoreError is a coded data store failure.
type StoreError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsAlreadyInitialized reports whether err is a redefinition error.
func IsAlreadyInitialized(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == ErrCodeAlreadyInitialized
}
