package book

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a book is not found.
var ErrNotFound = errors.New("book not found")

// ErrProviderUnavailable marks a provider call that failed at the transport
// level. Adapters log it and degrade to empty results.
var ErrProviderUnavailable = errors.New("provider unavailable")

// ValidationError is a malformed filter or payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidFilterError is returned by an adapter that got no usable filter.
type InvalidFilterError struct {
	Source     Source
	Recognized []string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("%s: you must define at least one of the following filters: %s",
		e.Source, strings.Join(e.Recognized, ", "))
}

// SaveFailedError wraps a failed transactional write.
type SaveFailedError struct {
	Err error
}

func (e *SaveFailedError) Error() string {
	return "save failed: " + e.Err.Error()
}

func (e *SaveFailedError) Unwrap() error { return e.Err }
