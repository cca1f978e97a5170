package core

import (
	"errors"
	"fmt"
)

// TransientError marks a retryable server-side condition such as
// throttling or temporary unavailability.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError marks an unrecoverable condition such as rejected
// credentials or broken configuration.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsFatal reports whether err must terminate the scan.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}
