package rate

import "errors"

var (
	// ErrStoreUnavailable wraps any failure of the backing counter store.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	// ErrInvalidLimit is returned when a limit or window is not positive.
	ErrInvalidLimit = errors.New("invalid rate limit")
)
