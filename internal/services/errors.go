package services

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrMalformedPayload   = errors.New("invalid QR code")
	ErrUserNotFound       = errors.New("user not found")
	ErrBusMismatch        = errors.New("wrong bus for this user")
	ErrUserExists         = errors.New("user already registered")
	ErrInvalidCredentials = errors.New("invalid user id or password")
	ErrNoQRCode           = errors.New("user has no QR code")

	// ErrStoreFailure wraps every persistence error. Callers should not
	// show the wrapped detail to clients.
	ErrStoreFailure = errors.New("store failure")
)

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
