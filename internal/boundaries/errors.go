package boundaries

import "errors"

// Sentinel errors for the read path. Handlers map these to HTTP statuses
// in one place; everything else surfaces as a 500.
var (
	// ErrInvalidFilter marks a malformed filter value, e.g. an unparseable
	// distance in "near".
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrNotFound marks an unknown slug or external id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks input that cannot be slugified at all.
	ErrInvalidInput = errors.New("invalid input")
)
