package track

import "errors"

var (
	// ErrAuthMissing is returned by Connect when no token is stored; no
	// transport attempt is made.
	ErrAuthMissing = errors.New("no stored access token")

	// ErrNotConnected is returned when an operation requires an open
	// transport connection.
	ErrNotConnected = errors.New("transport not connected")

	// ErrPermissionDenied is returned when location access was declined.
	// Recoverable: a later RequestPermission may succeed.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrLocationFetch wraps provider failures to produce a position.
	ErrLocationFetch = errors.New("location fetch failed")

	// ErrConfirmRequired is returned by ClearHistory without confirmation.
	ErrConfirmRequired = errors.New("confirmation required")
)
