package hfs

import "errors"

// Sentinel errors for package hfs.
// These errors can be checked with errors.Is() for specific error handling.
var (
	// Type mismatches between the requested handle and what exists
	ErrExpectedFile      = errors.New("expected file, got directory")
	ErrExpectedDirectory = errors.New("expected directory but got file")

	// Names that cannot be stored
	ErrInvalidName = errors.New("invalid entry name")

	// Non-recursive removal of a populated directory
	ErrDirectoryNotEmpty = errors.New("directory not empty")
)
