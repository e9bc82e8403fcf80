package directory

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCollection is returned for collection names the catalog does
	// not serve.
	ErrUnknownCollection = errors.New("directory: unknown collection")
	// ErrUnknownSort is returned for sort keys the collection does not define.
	ErrUnknownSort = errors.New("directory: unknown sort")
	// ErrNotFound is returned when a record id is not in the collection.
	ErrNotFound = errors.New("directory: record not found")
)

// LoadError wraps a source failure. Callers should show an empty list and
// offer a retry rather than filter partial data.
type LoadError struct {
	Collection string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("directory: load %s: %v", e.Collection, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Retryable is always true; load failures are treated as transient.
func (e *LoadError) Retryable() bool { return true }
