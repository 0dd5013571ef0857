// Package errors defines all exported error sentinels for the bdzhash library.
//
// This is the single source of truth for error values. Both the top-level
// bdzhash package and internal algorithm packages import from here,
// ensuring errors.Is checks work across package boundaries.
package errors

import "errors"

// Argument errors
var (
	ErrInvalidArgument = errors.New("bdzhash: invalid argument")
)

// Build errors
var (
	ErrBuilderClosed      = errors.New("bdzhash: builder is closed")
	ErrEmptyKeySet        = errors.New("bdzhash: cannot build a hash function over zero keys")
	ErrTooManyKeys        = errors.New("bdzhash: key count exceeds maximum (2^31)")
	ErrKeyTooLong         = errors.New("bdzhash: key exceeds maximum length (65535 bytes)")
	ErrDuplicateKey       = errors.New("bdzhash: duplicate key detected")
	ErrKeyCountMismatch   = errors.New("bdzhash: key count mismatch")
	ErrUnknownHashFamily  = errors.New("bdzhash: unknown hash family")
	ErrInvalidLoadFactor  = errors.New("bdzhash: load factor must be greater than 1.0")
	ErrCyclicGraph        = errors.New("bdzhash: hypergraph is cyclic - retry with a different seed")
	ErrRetryLimitExceeded = errors.New("bdzhash: acyclic hypergraph not found within the attempt limit")
)

// Index errors
var (
	ErrInvalidMagic   = errors.New("bdzhash: invalid magic number")
	ErrInvalidVersion = errors.New("bdzhash: unsupported version")
	ErrChecksumFailed = errors.New("bdzhash: file checksum verification failed")
	ErrTruncatedFile  = errors.New("bdzhash: index file is truncated")
	ErrCorruptedIndex = errors.New("bdzhash: index data is corrupted")
)

// Query errors
var (
	ErrIndexClosed = errors.New("bdzhash: index is closed")
)
