package storage

import "github.com/pkg/errors"

var (
	// ErrInsufficientStorage is returned by the preflight disk check.
	ErrInsufficientStorage = errors.New("insufficient storage")

	// ErrCriticalStorageExceeded is returned when the log directory stays at or
	// above its ceiling after every compressed segment has been deleted.
	ErrCriticalStorageExceeded = errors.New("log directory exceeds its size ceiling")
)
