package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrMarshal is returned when a value cannot be encoded for storage.
	ErrMarshal = errors.New("cache: failed to marshal value")

	// ErrUnmarshal is returned when stored bytes cannot be decoded into the requested type.
	ErrUnmarshal = errors.New("cache: failed to unmarshal value")

	// ErrInvalidPattern is returned by InvalidatePattern when the pattern is not a valid regular expression.
	ErrInvalidPattern = errors.New("cache: invalid invalidation pattern")

	// ErrProducerPanic wraps a panic raised by a producer passed to Load.
	ErrProducerPanic = errors.New("cache: producer panicked")
)
