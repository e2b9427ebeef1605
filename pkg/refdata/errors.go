package refdata

import "errors"

var (
	ErrEmptyID    = errors.New("refdata: id is empty")
	ErrReservedID = errors.New("refdata: id is reserved")
	ErrNilSource  = errors.New("refdata: source is nil")
	ErrNilCache   = errors.New("refdata: cache is nil")

	// ErrNotFound is wrapped by every Source when an id is unknown.
	ErrNotFound = errors.New("refdata: not found")
)
