package constants

import "errors"

// Errors
var (
	ErrInvalidResponse = errors.New("invalid BlockPress response")
	ErrIDInUse         = errors.New("id already in use")
	ErrTimeout         = errors.New("timeout")
	ErrClosed          = errors.New("connection closed")
	ErrNoBaseURL       = errors.New("base url not set")
	ErrNoMarshaler     = errors.New("marshaler is not set")
	ErrNoUnmarshaler   = errors.New("unmarshaler is not set")

	// ErrMethodNotAvailable is returned when a procedure is invoked against a
	// deployment whose capability set does not include it.
	ErrMethodNotAvailable = errors.New("method not available on this deployment")
)
