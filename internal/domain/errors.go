package domain

import "errors"

// ErrValidation marks user input that failed a format or business rule check.
// Flows recover from it locally by re-prompting in the same state.
var ErrValidation = errors.New("validation error")

// ErrNotFound is returned when a referenced trip, session or index does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a trip name is already taken by the same user.
var ErrDuplicate = errors.New("already exists")

// StoreError wraps a failure of the backing store. It is not recoverable
// inside a flow and must reach the top-level handler.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return "store " + e.Op + " failed"
	}
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// Code is picked up by the handler summary logs as err_code.
func (e *StoreError) Code() string { return "store_io" }

// IsStoreError reports whether err carries a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
