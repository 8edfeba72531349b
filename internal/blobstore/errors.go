package blobstore

import "errors"

var (
	// ErrDecode indicates a malformed data URL.
	ErrDecode = errors.New("malformed data url")

	// ErrCorruptChunks indicates stored chunks that cannot be reassembled.
	ErrCorruptChunks = errors.New("corrupt chunk set")
)
