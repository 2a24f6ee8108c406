package storage

import "errors"

// Common client storage errors
var (
	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrCorruptRecord indicates that a persisted value can not be decoded
	ErrCorruptRecord = errors.New("corrupt stored record")
)
