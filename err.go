package blockpress

import "errors"

var (
	// ErrUpdateRejected reports a mutating call that the service answered
	// with a boolean false: the transport succeeded but the change was
	// refused. Distinct from a transport or service error.
	ErrUpdateRejected = errors.New("update rejected by the service")

	// ErrNoPostID reports a createPost call whose option-wrapped result was
	// empty.
	ErrNoPostID = errors.New("service returned no post id")

	// ErrAuthRequired reports a call that needs an authenticated handle but
	// was issued on an anonymous one.
	ErrAuthRequired = errors.New("authenticated identity required")

	// ErrValidation reports a required field that is missing or empty.
	// Validation failures never reach the network.
	ErrValidation = errors.New("missing required field")
)
