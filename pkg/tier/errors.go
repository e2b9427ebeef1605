package tier

import "errors"

// Sentinel errors for tier operations.
var (
	// ErrNotFound is returned by Load when no blob has been saved yet.
	ErrNotFound = errors.New("tier: blob not found")

	// ErrEmptyName is returned when a tier is created without a blob name.
	ErrEmptyName = errors.New("tier: blob name is empty")

	// ErrNilClient is returned when a backend client is nil.
	ErrNilClient = errors.New("tier: client is nil")

	// ErrInvalidConfig is returned when an S3 tier configuration is incomplete.
	ErrInvalidConfig = errors.New("tier: invalid configuration")

	ErrLoadFailed   = errors.New("tier: load failed")
	ErrSaveFailed   = errors.New("tier: save failed")
	ErrRemoveFailed = errors.New("tier: remove failed")
)
