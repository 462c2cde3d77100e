package connector

import "errors"

var (
	// ErrNotConnected is returned by any operation that needs a live
	// socket. The message is load-bearing for callers matching on it.
	ErrNotConnected = errors.New("socket disconnected")

	// ErrNotLoggedIn is returned for commands gated behind a successful
	// login response.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrTimeout is returned when a read deadline expires while the
	// socket itself is still healthy.
	ErrTimeout = errors.New("receive timeout")
)
