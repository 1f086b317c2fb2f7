package store

import "errors"

// Sentinel errors for package store.
// These errors can be checked with errors.Is() for specific error handling.
var (
	// Key errors
	ErrEmptyKey   = errors.New("key has no segments")
	ErrInvalidKey = errors.New("invalid key")

	// Path errors
	ErrInvalidPath = errors.New("invalid storage path")
)
