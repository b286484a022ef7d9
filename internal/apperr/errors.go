// Package apperr holds the error taxonomy shared by the gateway, the stores and the
// HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalid         = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrRemote          = errors.New("remote failure")
	ErrDisposed        = errors.New("store disposed")
)

// OpError is a failed remote operation. It matches ErrRemote and its cause.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func (e *OpError) Is(target error) bool { return target == ErrRemote }

// Remote wraps err as a remote failure of op. A nil err stays nil.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Err: err}
}

// Invalid reports a validation failure caught before any remote call.
func Invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}
