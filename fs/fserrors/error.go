// Package fserrors provides errors and error handling
package fserrors

import (
	"github.com/pkg/errors"
)

// Fataler is an optional interface for error as to whether the
// operation should cause the entire operation to finish immediately.
//
// This should be returned from Update or Put methods as required
type Fataler interface {
	error
	Fatal() bool
}

// wrappedFatalError is an error wrapped so it will satisfy the
// Fataler interface and return true
type wrappedFatalError struct {
	error
}

// Fatal interface
func (err wrappedFatalError) Fatal() bool {
	return true
}

// Cause returns the wrapped error so errors.Is and errors.As see
// through it
func (err wrappedFatalError) Cause() error {
	return err.error
}

// Unwrap returns the wrapped error
func (err wrappedFatalError) Unwrap() error {
	return err.error
}

// Check interface
var _ Fataler = wrappedFatalError{error(nil)}

// FatalError makes an error which indicates it is a fatal error and
// the process should stop.
func FatalError(err error) error {
	if err == nil {
		err = errors.New("fatal error")
	}
	return wrappedFatalError{err}
}

// IsFatalError returns true if err conforms to the Fatal interface
// and calling the Fatal method returns true.
func IsFatalError(err error) bool {
	var fatal Fataler
	return errors.As(err, &fatal) && fatal.Fatal()
}

// Cause is a souped up errors.Cause which can unwrap both Cause()
// and Unwrap() chains, returning the innermost error.
func Cause(cause error) error {
	for cause != nil {
		var next error
		switch x := cause.(type) {
		case interface{ Cause() error }:
			next = x.Cause()
		case interface{ Unwrap() error }:
			next = x.Unwrap()
		}
		if next == nil {
			break
		}
		cause = next
	}
	return cause
}
