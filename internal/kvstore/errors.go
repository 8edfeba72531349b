package kvstore

import "errors"

var (
	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("kvstore closed")

	// ErrSubscriptionClosed indicates the subscription manager has shut down.
	ErrSubscriptionClosed = errors.New("subscription manager closed")

	// ErrInvalidPath indicates an empty or malformed path.
	ErrInvalidPath = errors.New("invalid path")
)
